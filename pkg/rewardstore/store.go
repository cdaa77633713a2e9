package rewardstore

import (
	"context"
	"errors"
	"time"

	"github.com/giankylabs/relayer/pkg/reward"
)

var (
	// ErrRewardNotFound is returned when a reward lookup finds no matching record.
	ErrRewardNotFound = errors.New("reward not found")
	// ErrDuplicateClaim is returned when a reward for the same user and game
	// session already exists.
	ErrDuplicateClaim = errors.New("reward already claimed for this game session")
	// ErrDailyLimit is returned when admitting a claim would exceed the user's
	// daily reward quota.
	ErrDailyLimit = errors.New("daily reward limit reached")
)

// Store defines the interface for reward data persistence
type Store interface {
	GetOrCreateUser(ctx context.Context, walletAddress string) (*UserDao, error)
	GetRewardBySession(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error)
	AdmitPendingReward(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error
	CompleteReward(ctx context.Context, rewardID, txHash string) error
	FailReward(ctx context.Context, rewardID, reason string) error
	ResetFailedReward(ctx context.Context, rewardID, userAddress string, since time.Time, maxPerDay int) error
	ListUserRewards(ctx context.Context, userAddress string, limit, offset int) ([]*reward.Reward, error)
	ListUserRewardsSince(ctx context.Context, userAddress string, since time.Time) ([]*reward.Reward, error)
	RecordTransaction(ctx context.Context, tx *reward.Transaction) error
	RecordGameSession(ctx context.Context, sessionID, userAddress, gameType string) error
}
