package chains

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/giankylabs/relayer/pkg/config"
)

// Router selects the RPC client for a target chain
type Router struct {
	clients        map[int64]*Client
	defaultChainID int64
}

// NewRouter connects to every configured chain and syncs the relayer nonce
// source for each. The relayer's on-chain transaction count is authoritative,
// so it is re-read at startup rather than restored from any local state.
func NewRouter(ctx context.Context, cfgs []config.ChainConfig, relayer common.Address, defaultChainID int64, logger *zap.Logger) (*Router, error) {
	clients := make(map[int64]*Client, len(cfgs))
	for _, cfg := range cfgs {
		client, err := NewClient(cfg, logger)
		if err != nil {
			for _, c := range clients {
				c.Close()
			}
			return nil, err
		}

		nonces := NewNonceSource(func(ctx context.Context) (uint64, error) {
			return client.PendingNonceAt(ctx, relayer)
		}, logger.With(zap.Int64("chain_id", cfg.ChainID)))
		if err := nonces.Resync(ctx); err != nil {
			client.Close()
			for _, c := range clients {
				c.Close()
			}
			return nil, err
		}
		client.BindNonces(nonces)

		clients[cfg.ChainID] = client
	}

	if _, ok := clients[defaultChainID]; !ok {
		for _, c := range clients {
			c.Close()
		}
		return nil, fmt.Errorf("default chain %d is not configured", defaultChainID)
	}

	return &Router{clients: clients, defaultChainID: defaultChainID}, nil
}

// Client returns the RPC client for the given chain ID. A zero chain ID
// resolves to the default chain.
func (r *Router) Client(chainID int64) (*Client, error) {
	if chainID == 0 {
		chainID = r.defaultChainID
	}
	client, ok := r.clients[chainID]
	if !ok {
		return nil, fmt.Errorf("unsupported chain: %d", chainID)
	}
	return client, nil
}

// Default returns the client for the default chain
func (r *Router) Default() *Client {
	return r.clients[r.defaultChainID]
}

// All returns every configured client keyed by chain ID
func (r *Router) All() map[int64]*Client {
	return r.clients
}

// Close closes all clients
func (r *Router) Close() {
	for _, c := range r.clients {
		c.Close()
	}
}
