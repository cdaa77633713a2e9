package service

import (
	"context"
	"math/big"
	"sync"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/giankylabs/relayer/pkg/executor"
	"github.com/giankylabs/relayer/pkg/reward"
	rewardsvc "github.com/giankylabs/relayer/pkg/reward/service"
)

type mockExecutor struct {
	mu        sync.Mutex
	executeFn func(ctx context.Context, intent *executor.CallIntent) (*executor.Receipt, error)
	intents   []*executor.CallIntent
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		executeFn: func(ctx context.Context, intent *executor.CallIntent) (*executor.Receipt, error) {
			return &executor.Receipt{
				TxHash:      common.HexToHash("0xabc123"),
				GasUsed:     95_000,
				BlockNumber: 7_000_001,
				ChainID:     137,
			}, nil
		},
	}
}

func (m *mockExecutor) Execute(ctx context.Context, intent *executor.CallIntent) (*executor.Receipt, error) {
	m.mu.Lock()
	m.intents = append(m.intents, intent)
	m.mu.Unlock()
	return m.executeFn(ctx, intent)
}

func (m *mockExecutor) RelayerAddress() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000e1a17")
}

func (m *mockExecutor) executedIntents() []*executor.CallIntent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*executor.CallIntent(nil), m.intents...)
}

type mockRewards struct {
	claimFn          func(ctx context.Context, req *rewardsvc.ClaimRequest) (*rewardsvc.ClaimResult, error)
	historyFn        func(ctx context.Context, userAddress string) ([]*reward.Reward, error)
	statisticsFn     func(ctx context.Context, userAddress string) (*reward.Stats, error)
	mintNFTFn        func(ctx context.Context, userAddress, tier, metadataURI string) (*rewardsvc.TransferResult, error)
	transferTokensFn func(ctx context.Context, userAddress, token string, amount decimal.Decimal) (*rewardsvc.TransferResult, error)
}

func newMockRewards() *mockRewards {
	return &mockRewards{
		claimFn: func(ctx context.Context, req *rewardsvc.ClaimRequest) (*rewardsvc.ClaimResult, error) {
			return &rewardsvc.ClaimResult{RewardID: "r1", TxHash: "0xdead", Message: "Reward claimed"}, nil
		},
		historyFn: func(ctx context.Context, userAddress string) ([]*reward.Reward, error) {
			return nil, nil
		},
		statisticsFn: func(ctx context.Context, userAddress string) (*reward.Stats, error) {
			return &reward.Stats{}, nil
		},
		mintNFTFn: func(ctx context.Context, userAddress, tier, metadataURI string) (*rewardsvc.TransferResult, error) {
			return &rewardsvc.TransferResult{TxHash: "0xbeef", MetadataURI: metadataURI}, nil
		},
		transferTokensFn: func(ctx context.Context, userAddress, token string, amount decimal.Decimal) (*rewardsvc.TransferResult, error) {
			return &rewardsvc.TransferResult{TxHash: "0xbeef", Amount: amount.String(), TokenType: token}, nil
		},
	}
}

func (m *mockRewards) Claim(ctx context.Context, req *rewardsvc.ClaimRequest) (*rewardsvc.ClaimResult, error) {
	return m.claimFn(ctx, req)
}

func (m *mockRewards) History(ctx context.Context, userAddress string) ([]*reward.Reward, error) {
	return m.historyFn(ctx, userAddress)
}

func (m *mockRewards) Statistics(ctx context.Context, userAddress string) (*reward.Stats, error) {
	return m.statisticsFn(ctx, userAddress)
}

func (m *mockRewards) MintNFT(ctx context.Context, userAddress, tier, metadataURI string) (*rewardsvc.TransferResult, error) {
	return m.mintNFTFn(ctx, userAddress, tier, metadataURI)
}

func (m *mockRewards) TransferTokens(ctx context.Context, userAddress, token string, amount decimal.Decimal) (*rewardsvc.TransferResult, error) {
	return m.transferTokensFn(ctx, userAddress, token, amount)
}

type mockChain struct {
	chainIDFn         func() int64
	nameFn            func() string
	suggestGasPriceFn func(ctx context.Context) (*big.Int, error)
	estimateGasFn     func(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	balanceAtFn       func(ctx context.Context, account common.Address) (*big.Int, error)
}

func newMockChain() *mockChain {
	return &mockChain{
		chainIDFn: func() int64 { return 137 },
		nameFn:    func() string { return "polygon" },
		suggestGasPriceFn: func(ctx context.Context) (*big.Int, error) {
			return big.NewInt(30_000_000_000), nil
		},
		estimateGasFn: func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
			return 100_000, nil
		},
		balanceAtFn: func(ctx context.Context, account common.Address) (*big.Int, error) {
			return big.NewInt(5_000_000_000_000_000_000), nil
		},
	}
}

func (m *mockChain) ChainID() int64 { return m.chainIDFn() }
func (m *mockChain) Name() string   { return m.nameFn() }

func (m *mockChain) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return m.suggestGasPriceFn(ctx)
}

func (m *mockChain) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return m.estimateGasFn(ctx, msg)
}

func (m *mockChain) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	return m.balanceAtFn(ctx, account)
}

type mockChainSource struct {
	chain *mockChain
}

func (m *mockChainSource) Chain(chainID int64) (Chain, error) {
	return m.chain, nil
}

func (m *mockChainSource) Chains() []Chain {
	return []Chain{m.chain}
}
