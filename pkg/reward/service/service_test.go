package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "github.com/giankylabs/relayer/pkg/app/errors"
	"github.com/giankylabs/relayer/pkg/config"
	"github.com/giankylabs/relayer/pkg/executor"
	"github.com/giankylabs/relayer/pkg/reward"
	"github.com/giankylabs/relayer/pkg/rewardstore"
)

const testUser = "0x1111111111111111111111111111111111111111"

func newTestService(store *mockStore, exec *mockExecutor, chain *mockRewardChain) *Service {
	return New(store, exec, chain, &stubPublisher{}, config.RewardsConfig{
		MaxPerUserPerDay: 10,
		HistoryLimit:     50,
	}, zap.NewNop())
}

func claimRequest(sessionID string) *ClaimRequest {
	return &ClaimRequest{
		UserAddress:   testUser,
		RewardType:    "wheel",
		RewardValue:   "👑 VIP NFT",
		GameSessionID: sessionID,
	}
}

func TestClaimNFTReward(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	chain := &mockRewardChain{}

	var completed string
	store.completeRewardFn = func(ctx context.Context, rewardID, txHash string) error {
		completed = txHash
		return nil
	}

	svc := newTestService(store, exec, chain)
	result, err := svc.Claim(context.Background(), claimRequest("s1"))
	require.NoError(t, err)

	assert.NotEmpty(t, result.RewardID)
	assert.Equal(t, "Successfully claimed 👑 VIP NFT", result.Message)
	assert.Equal(t, result.TxHash, completed)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, chain.NFTContract(), exec.calls[0].to)
	// safeMint(address,string) selector
	assert.Equal(t, []byte{0xd2, 0x04, 0xc4, 0x5e}, exec.calls[0].data[:4])
}

func TestClaimNativeTokenReward(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	chain := &mockRewardChain{}

	svc := newTestService(store, exec, chain)
	req := claimRequest("s1")
	req.RewardValue = "🪙 25 Polygon"

	_, err := svc.Claim(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, common.HexToAddress(testUser), exec.calls[0].to)
	assert.Nil(t, exec.calls[0].data)
	assert.Equal(t, "25000000000000000000", exec.calls[0].value.String())
}

func TestClaimERC20TokenReward(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	chain := &mockRewardChain{}

	svc := newTestService(store, exec, chain)
	req := claimRequest("s1")
	req.RewardValue = "💰 30 Gianky Coin"

	_, err := svc.Claim(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, exec.calls, 1)
	assert.Equal(t, chain.TokenContract(), exec.calls[0].to)
	// transfer(address,uint256) selector
	assert.Equal(t, []byte{0xa9, 0x05, 0x9c, 0xbb}, exec.calls[0].data[:4])
}

func TestClaimUnknownReward(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	svc := newTestService(store, exec, &mockRewardChain{})

	req := claimRequest("s1")
	req.RewardValue = "💀 1000 Polygon"

	_, err := svc.Claim(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
	assert.Empty(t, exec.calls)
}

func TestClaimDuplicateSession(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	store.getRewardBySessionFn = func(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error) {
		return &reward.Reward{RewardID: "r1", Status: reward.StatusCompleted}, nil
	}

	svc := newTestService(store, exec, &mockRewardChain{})
	_, err := svc.Claim(context.Background(), claimRequest("s1"))
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
	assert.Empty(t, exec.calls)
}

func TestClaimDuplicateRace(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	// the fast-path check sees nothing, the insert loses the race
	store.admitPendingRewardFn = func(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error {
		return rewardstore.ErrDuplicateClaim
	}

	svc := newTestService(store, exec, &mockRewardChain{})
	_, err := svc.Claim(context.Background(), claimRequest("s1"))
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataConflict))
	assert.Empty(t, exec.calls)
}

func TestClaimDailyLimit(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	var admittedMax int
	store.admitPendingRewardFn = func(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error {
		admittedMax = maxPerDay
		return rewardstore.ErrDailyLimit
	}

	svc := newTestService(store, exec, &mockRewardChain{})
	_, err := svc.Claim(context.Background(), claimRequest("s1"))
	assert.True(t, apperrors.Is(err, apperrors.CategoryPolicyRejected))
	assert.Equal(t, 10, admittedMax)
	assert.Empty(t, exec.calls)
}

func TestClaimFailedRetry(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	store.getRewardBySessionFn = func(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error) {
		return &reward.Reward{RewardID: "r1", Status: reward.StatusFailed}, nil
	}
	resets := 0
	store.resetFailedRewardFn = func(ctx context.Context, rewardID, userAddress string, since time.Time, maxPerDay int) error {
		resets++
		return nil
	}
	created := 0
	store.admitPendingRewardFn = func(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error {
		created++
		return nil
	}

	svc := newTestService(store, exec, &mockRewardChain{})
	result, err := svc.Claim(context.Background(), claimRequest("s1"))
	require.NoError(t, err)

	// the failed record is reused, not re-inserted
	assert.Equal(t, "r1", result.RewardID)
	assert.Equal(t, 1, resets)
	assert.Equal(t, 0, created)
}

func TestClaimFailedRetryDailyLimit(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	store.getRewardBySessionFn = func(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error) {
		return &reward.Reward{RewardID: "r1", Status: reward.StatusFailed}, nil
	}
	store.resetFailedRewardFn = func(ctx context.Context, rewardID, userAddress string, since time.Time, maxPerDay int) error {
		return rewardstore.ErrDailyLimit
	}

	svc := newTestService(store, exec, &mockRewardChain{})
	_, err := svc.Claim(context.Background(), claimRequest("s1"))
	assert.True(t, apperrors.Is(err, apperrors.CategoryPolicyRejected))
	assert.Empty(t, exec.calls)
}

func TestClaimExecutionFailureMarksFailed(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	exec.executeDirectFn = func(ctx context.Context, chainID int64, to common.Address, value *big.Int, data []byte) (*executor.Receipt, error) {
		return nil, &executor.ExecutionError{Reason: executor.ReasonGasPolicyRejected}
	}

	var failedReason string
	store.failRewardFn = func(ctx context.Context, rewardID, reason string) error {
		failedReason = reason
		return nil
	}

	svc := newTestService(store, exec, &mockRewardChain{})
	_, err := svc.Claim(context.Background(), claimRequest("s1"))
	assert.True(t, apperrors.Is(err, apperrors.CategoryPolicyRejected))
	assert.Equal(t, string(executor.ReasonGasPolicyRejected), failedReason)
}

func TestClaimInsufficientRelayerBalance(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	chain := &mockRewardChain{balance: big.NewInt(1)}

	svc := newTestService(store, exec, chain)
	req := claimRequest("s1")
	req.RewardValue = "🪙 50 Polygon"

	_, err := svc.Claim(context.Background(), req)
	assert.True(t, apperrors.Is(err, apperrors.CategoryDependencyFailure))
	assert.Empty(t, exec.calls)
}

func TestStatistics(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	history := []*reward.Reward{
		{RewardValue: "👑 VIP NFT", Status: reward.StatusCompleted, CreatedAt: now},
		{RewardValue: "🪙 25 Polygon", Status: reward.StatusCompleted, CreatedAt: now.Add(-time.Hour)},
		{RewardValue: "💰 50 Gianky Coin", Status: reward.StatusCompleted, CreatedAt: now.Add(-2 * time.Hour)},
		{RewardValue: "🪙 10 Polygon", Status: reward.StatusFailed, CreatedAt: now.Add(-3 * time.Hour)},
	}
	store.listUserRewardsFn = func(ctx context.Context, userAddress string, limit, offset int) ([]*reward.Reward, error) {
		if offset > 0 {
			return nil, nil
		}
		return history, nil
	}
	store.listUserRewardsSinceFn = func(ctx context.Context, userAddress string, since time.Time) ([]*reward.Reward, error) {
		return history[:3], nil
	}

	svc := newTestService(store, newMockExecutor(), &mockRewardChain{})
	stats, err := svc.Statistics(context.Background(), testUser)
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalRewards)
	assert.Equal(t, 1, stats.NFTRewards)
	assert.Equal(t, 2, stats.TokenRewards)
	assert.Equal(t, int64(25), stats.MaticEarned)
	assert.Equal(t, int64(50), stats.GiankyEarned)
	assert.Equal(t, 3, stats.RecentActivity)
	require.NotNil(t, stats.LastRewardDate)
	assert.Equal(t, now, *stats.LastRewardDate)
}

func TestStatisticsPagesFullHistory(t *testing.T) {
	store := newMockStore()
	now := time.Now()
	history := []*reward.Reward{
		{RewardValue: "🪙 25 Polygon", Status: reward.StatusCompleted, CreatedAt: now},
		{RewardValue: "🪙 25 Polygon", Status: reward.StatusCompleted, CreatedAt: now.Add(-time.Hour)},
		{RewardValue: "💰 50 Gianky Coin", Status: reward.StatusCompleted, CreatedAt: now.Add(-2 * time.Hour)},
	}
	var offsets []int
	store.listUserRewardsFn = func(ctx context.Context, userAddress string, limit, offset int) ([]*reward.Reward, error) {
		offsets = append(offsets, offset)
		if offset >= len(history) {
			return nil, nil
		}
		end := offset + limit
		if end > len(history) {
			end = len(history)
		}
		return history[offset:end], nil
	}

	svc := New(store, newMockExecutor(), &mockRewardChain{}, &stubPublisher{}, config.RewardsConfig{
		MaxPerUserPerDay: 10,
		HistoryLimit:     2,
	}, zap.NewNop())
	stats, err := svc.Statistics(context.Background(), testUser)
	require.NoError(t, err)

	// totals cover rows past the first page
	assert.Equal(t, 3, stats.TotalRewards)
	assert.Equal(t, int64(50), stats.MaticEarned)
	assert.Equal(t, int64(50), stats.GiankyEarned)
	assert.Equal(t, []int{0, 2}, offsets)
	require.NotNil(t, stats.LastRewardDate)
	assert.Equal(t, now, *stats.LastRewardDate)
}

func TestMintNFTPublishesURI(t *testing.T) {
	store := newMockStore()
	exec := newMockExecutor()
	svc := newTestService(store, exec, &mockRewardChain{})

	result, err := svc.MintNFT(context.Background(), testUser, "Diamond NFT", "")
	require.NoError(t, err)
	assert.Equal(t, "https://ipfs.io/ipfs/QmStub", result.MetadataURI)
	require.Len(t, exec.calls, 1)
}

func TestTransferTokensUnsupported(t *testing.T) {
	svc := newTestService(newMockStore(), newMockExecutor(), &mockRewardChain{})
	_, err := svc.TransferTokens(context.Background(), testUser, "DOGE", decimal.NewFromInt(1))
	assert.True(t, apperrors.Is(err, apperrors.CategoryDataError))
}
