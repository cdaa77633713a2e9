package service

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/giankylabs/relayer/pkg/executor"
	"github.com/giankylabs/relayer/pkg/reward"
	"github.com/giankylabs/relayer/pkg/rewardstore"
)

type mockStore struct {
	getOrCreateUserFn      func(ctx context.Context, walletAddress string) (*rewardstore.UserDao, error)
	getRewardBySessionFn   func(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error)
	admitPendingRewardFn   func(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error
	completeRewardFn       func(ctx context.Context, rewardID, txHash string) error
	failRewardFn           func(ctx context.Context, rewardID, reason string) error
	resetFailedRewardFn    func(ctx context.Context, rewardID, userAddress string, since time.Time, maxPerDay int) error
	listUserRewardsFn      func(ctx context.Context, userAddress string, limit, offset int) ([]*reward.Reward, error)
	listUserRewardsSinceFn func(ctx context.Context, userAddress string, since time.Time) ([]*reward.Reward, error)
	recordTransactionFn    func(ctx context.Context, tx *reward.Transaction) error
	recordGameSessionFn    func(ctx context.Context, sessionID, userAddress, gameType string) error
}

// newMockStore returns a store where every call succeeds: no existing claim,
// empty history, zero quota usage.
func newMockStore() *mockStore {
	return &mockStore{
		getOrCreateUserFn: func(ctx context.Context, walletAddress string) (*rewardstore.UserDao, error) {
			return &rewardstore.UserDao{WalletAddress: walletAddress}, nil
		},
		getRewardBySessionFn: func(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error) {
			return nil, rewardstore.ErrRewardNotFound
		},
		admitPendingRewardFn: func(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error { return nil },
		completeRewardFn:     func(ctx context.Context, rewardID, txHash string) error { return nil },
		failRewardFn:         func(ctx context.Context, rewardID, reason string) error { return nil },
		resetFailedRewardFn: func(ctx context.Context, rewardID, userAddress string, since time.Time, maxPerDay int) error {
			return nil
		},
		listUserRewardsFn: func(ctx context.Context, userAddress string, limit, offset int) ([]*reward.Reward, error) {
			return nil, nil
		},
		listUserRewardsSinceFn: func(ctx context.Context, userAddress string, since time.Time) ([]*reward.Reward, error) {
			return nil, nil
		},
		recordTransactionFn: func(ctx context.Context, tx *reward.Transaction) error { return nil },
		recordGameSessionFn: func(ctx context.Context, sessionID, userAddress, gameType string) error { return nil },
	}
}

func (m *mockStore) GetOrCreateUser(ctx context.Context, walletAddress string) (*rewardstore.UserDao, error) {
	return m.getOrCreateUserFn(ctx, walletAddress)
}

func (m *mockStore) GetRewardBySession(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error) {
	return m.getRewardBySessionFn(ctx, userAddress, gameSessionID)
}

func (m *mockStore) AdmitPendingReward(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error {
	return m.admitPendingRewardFn(ctx, r, since, maxPerDay)
}

func (m *mockStore) CompleteReward(ctx context.Context, rewardID, txHash string) error {
	return m.completeRewardFn(ctx, rewardID, txHash)
}

func (m *mockStore) FailReward(ctx context.Context, rewardID, reason string) error {
	return m.failRewardFn(ctx, rewardID, reason)
}

func (m *mockStore) ResetFailedReward(ctx context.Context, rewardID, userAddress string, since time.Time, maxPerDay int) error {
	return m.resetFailedRewardFn(ctx, rewardID, userAddress, since, maxPerDay)
}

func (m *mockStore) ListUserRewards(ctx context.Context, userAddress string, limit, offset int) ([]*reward.Reward, error) {
	return m.listUserRewardsFn(ctx, userAddress, limit, offset)
}

func (m *mockStore) ListUserRewardsSince(ctx context.Context, userAddress string, since time.Time) ([]*reward.Reward, error) {
	return m.listUserRewardsSinceFn(ctx, userAddress, since)
}

func (m *mockStore) RecordTransaction(ctx context.Context, tx *reward.Transaction) error {
	return m.recordTransactionFn(ctx, tx)
}

func (m *mockStore) RecordGameSession(ctx context.Context, sessionID, userAddress, gameType string) error {
	return m.recordGameSessionFn(ctx, sessionID, userAddress, gameType)
}

type executedCall struct {
	to    common.Address
	value *big.Int
	data  []byte
}

type mockExecutor struct {
	executeDirectFn func(ctx context.Context, chainID int64, to common.Address, value *big.Int, data []byte) (*executor.Receipt, error)
	calls           []executedCall
}

func newMockExecutor() *mockExecutor {
	m := &mockExecutor{}
	m.executeDirectFn = func(ctx context.Context, chainID int64, to common.Address, value *big.Int, data []byte) (*executor.Receipt, error) {
		return &executor.Receipt{
			TxHash:      common.HexToHash("0xfeed"),
			GasUsed:     90_000,
			BlockNumber: 42,
			ChainID:     chainID,
		}, nil
	}
	return m
}

func (m *mockExecutor) ExecuteDirect(ctx context.Context, chainID int64, to common.Address, value *big.Int, data []byte) (*executor.Receipt, error) {
	receipt, err := m.executeDirectFn(ctx, chainID, to, value, data)
	if err == nil {
		m.calls = append(m.calls, executedCall{to: to, value: value, data: data})
	}
	return receipt, err
}

func (m *mockExecutor) RelayerAddress() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000e1a17")
}

type mockRewardChain struct {
	balance *big.Int
}

func (m *mockRewardChain) ChainID() int64 { return 137 }

func (m *mockRewardChain) NFTContract() common.Address {
	return common.HexToAddress("0x0000000000000000000000000000000000000f71")
}

func (m *mockRewardChain) TokenContract() common.Address {
	return common.HexToAddress("0x00000000000000000000000000000000000070c1")
}

func (m *mockRewardChain) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	if m.balance == nil {
		// plenty by default
		return new(big.Int).Mul(big.NewInt(1000), big.NewInt(1_000_000_000_000_000_000)), nil
	}
	return m.balance, nil
}

type stubPublisher struct {
	uri string
}

func (s *stubPublisher) MetadataURI(ctx context.Context, tier string, owner common.Address) string {
	if s.uri != "" {
		return s.uri
	}
	return "https://ipfs.io/ipfs/QmStub"
}
