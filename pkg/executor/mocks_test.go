package executor

import (
	"context"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type mockChain struct {
	chainIDFn            func() int64
	forwarderAddressFn   func() common.Address
	forwarderNonceFn     func(ctx context.Context, account common.Address) (*big.Int, error)
	suggestGasPriceFn    func(ctx context.Context) (*big.Int, error)
	estimateGasFn        func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	sendTransactionFn    func(ctx context.Context, tx *types.Transaction) error
	transactionReceiptFn func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	resyncNonceFn        func(ctx context.Context) error

	mu        sync.Mutex
	nextNonce uint64
	sent      []*types.Transaction
}

// newMockChain returns a chain where every submission succeeds and confirms
// immediately. Tests override individual funcs to inject failures.
func newMockChain() *mockChain {
	m := &mockChain{}
	m.chainIDFn = func() int64 { return 80002 }
	m.forwarderAddressFn = func() common.Address {
		return common.HexToAddress("0x00000000000000000000000000000000f0f0f0f0")
	}
	m.forwarderNonceFn = func(ctx context.Context, account common.Address) (*big.Int, error) {
		return big.NewInt(0), nil
	}
	m.suggestGasPriceFn = func(ctx context.Context) (*big.Int, error) {
		return big.NewInt(20_000_000_000), nil
	}
	m.estimateGasFn = func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
		return 100_000, nil
	}
	m.sendTransactionFn = func(ctx context.Context, tx *types.Transaction) error {
		return nil
	}
	m.transactionReceiptFn = func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
		return &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			GasUsed:     90_000,
			BlockNumber: big.NewInt(1234),
		}, nil
	}
	m.resyncNonceFn = func(ctx context.Context) error { return nil }
	return m
}

func (m *mockChain) ChainID() int64 {
	return m.chainIDFn()
}

func (m *mockChain) ForwarderAddress() common.Address {
	return m.forwarderAddressFn()
}

func (m *mockChain) ForwarderNonce(ctx context.Context, account common.Address) (*big.Int, error) {
	return m.forwarderNonceFn(ctx, account)
}

func (m *mockChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return m.suggestGasPriceFn(ctx)
}

func (m *mockChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return m.estimateGasFn(ctx, msg)
}

func (m *mockChain) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := m.sendTransactionFn(ctx, tx); err != nil {
		return err
	}
	m.mu.Lock()
	m.sent = append(m.sent, tx)
	m.mu.Unlock()
	return nil
}

func (m *mockChain) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return m.transactionReceiptFn(ctx, txHash)
}

func (m *mockChain) RelayerNonce(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	nonce := m.nextNonce
	m.nextNonce++
	return nonce, nil
}

func (m *mockChain) ResyncNonce(ctx context.Context) error {
	return m.resyncNonceFn(ctx)
}

func (m *mockChain) sentTransactions() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Transaction, len(m.sent))
	copy(out, m.sent)
	return out
}
