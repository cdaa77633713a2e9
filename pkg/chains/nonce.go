package chains

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// NonceFetcher reads the relayer's true pending transaction count from the
// chain. It is the source of truth; the local counter is only a cache.
type NonceFetcher func(ctx context.Context) (uint64, error)

// NonceSource is the single in-process sequencing point for the relayer's
// own transaction nonce on one chain. Two concurrent submissions must never
// share a nonce, so every allocation goes through the mutex.
type NonceSource struct {
	mu     sync.Mutex
	next   uint64
	synced bool

	fetch  NonceFetcher
	logger *zap.Logger
}

// NewNonceSource creates a nonce source backed by the given fetcher
func NewNonceSource(fetch NonceFetcher, logger *zap.Logger) *NonceSource {
	return &NonceSource{
		fetch:  fetch,
		logger: logger,
	}
}

// Next allocates the next relayer nonce, syncing from the chain on first use
func (n *NonceSource) Next(ctx context.Context) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.synced {
		if err := n.resyncLocked(ctx); err != nil {
			return 0, err
		}
	}

	nonce := n.next
	n.next++
	return nonce, nil
}

// Resync discards the local counter and re-reads the pending transaction
// count from the chain. Called at startup and whenever the node reports
// "nonce too low", which means the local cache went stale.
func (n *NonceSource) Resync(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.resyncLocked(ctx)
}

func (n *NonceSource) resyncLocked(ctx context.Context) error {
	nonce, err := n.fetch(ctx)
	if err != nil {
		n.synced = false
		return fmt.Errorf("failed to sync relayer nonce: %w", err)
	}
	n.next = nonce
	n.synced = true
	n.logger.Info("Relayer nonce synced", zap.Uint64("nonce", nonce))
	return nil
}
