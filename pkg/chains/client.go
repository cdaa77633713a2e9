// Package chains provides per-chain RPC clients, routing, and relayer nonce
// sequencing.
package chains

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/giankylabs/relayer/pkg/config"
	"github.com/giankylabs/relayer/pkg/forwarder"
)

// Client wraps an Ethereum RPC connection for one target chain
type Client struct {
	cfg       config.ChainConfig
	client    *ethclient.Client
	forwarder common.Address
	nonces    *NonceSource
	logger    *zap.Logger
}

// NewClient connects to the chain's RPC endpoint
func NewClient(cfg config.ChainConfig, logger *zap.Logger) (*Client, error) {
	client, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC for chain %d: %w", cfg.ChainID, err)
	}

	logger.Info("Connected to chain",
		zap.String("name", cfg.Name),
		zap.Int64("chain_id", cfg.ChainID),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("forwarder_contract", cfg.ForwarderContract))

	return &Client{
		cfg:       cfg,
		client:    client,
		forwarder: common.HexToAddress(cfg.ForwarderContract),
		logger:    logger,
	}, nil
}

// Close closes the underlying RPC connection
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// ChainID returns the chain's numeric identifier
func (c *Client) ChainID() int64 {
	return c.cfg.ChainID
}

// Name returns the configured chain name
func (c *Client) Name() string {
	return c.cfg.Name
}

// ForwarderAddress returns the forwarder contract address on this chain
func (c *Client) ForwarderAddress() common.Address {
	return c.forwarder
}

// NFTContract returns the NFT contract address on this chain
func (c *Client) NFTContract() common.Address {
	return common.HexToAddress(c.cfg.NFTContract)
}

// TokenContract returns the ERC-20 token contract address on this chain
func (c *Client) TokenContract() common.Address {
	return common.HexToAddress(c.cfg.TokenContract)
}

// BindNonces attaches the relayer nonce source synced for this chain
func (c *Client) BindNonces(n *NonceSource) {
	c.nonces = n
}

// Nonces returns the relayer nonce source for this chain
func (c *Client) Nonces() *NonceSource {
	return c.nonces
}

// RelayerNonce allocates the next relayer transaction nonce
func (c *Client) RelayerNonce(ctx context.Context) (uint64, error) {
	return c.nonces.Next(ctx)
}

// ResyncNonce re-reads the relayer's pending transaction count from the chain
func (c *Client) ResyncNonce(ctx context.Context) error {
	return c.nonces.Resync(ctx)
}

// PendingNonceAt returns the pending transaction count for an address
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	nonce, err := c.client.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to get transaction count: %w", err)
	}
	return nonce, nil
}

// SuggestGasPrice returns the chain's current gas price
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return c.client.SuggestGasPrice(ctx)
}

// EstimateGas simulates a call and returns its gas cost
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return c.client.EstimateGas(ctx, msg)
}

// BalanceAt returns the current balance of an address
func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return c.client.BalanceAt(ctx, account, nil)
}

// SendTransaction broadcasts a signed transaction
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.client.SendTransaction(ctx, tx)
}

// TransactionReceipt returns the receipt for a transaction hash, or
// ethereum.NotFound while it is still pending
func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.client.TransactionReceipt(ctx, txHash)
}

// ForwarderNonce reads the forwarder contract's logical nonce for an account.
// This is replay protection for the user, distinct from the relayer's own
// transaction nonce.
func (c *Client) ForwarderNonce(ctx context.Context, account common.Address) (*big.Int, error) {
	data, err := forwarder.PackGetNonce(account)
	if err != nil {
		return nil, err
	}

	output, err := c.client.CallContract(ctx, ethereum.CallMsg{
		To:   &c.forwarder,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read forwarder nonce: %w", err)
	}

	return forwarder.UnpackNonce(output)
}
