// Package reward defines the game reward domain: the claimable catalog, the
// reward lifecycle, and the on-chain transfer plans that fulfil each reward.
package reward

import "time"

// Status tracks a reward through its lifecycle. A reward is recorded as
// pending before any chain submission and finalized exactly once.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Reward is one claimed game reward
type Reward struct {
	RewardID      string
	UserAddress   string
	RewardType    string
	RewardValue   string
	GameSessionID string
	TxHash        string
	Status        Status
	FailureReason string
	CreatedAt     time.Time
	CompletedAt   *time.Time
}

// Transaction is the on-chain record of a relayer submission
type Transaction struct {
	TxHash      string
	UserAddress string
	ChainID     int64
	Kind        string
	GasUsed     uint64
	BlockNumber uint64
	CreatedAt   time.Time
}

// Stats aggregates a user's reward history
type Stats struct {
	TotalRewards   int        `json:"total_rewards"`
	NFTRewards     int        `json:"nft_rewards"`
	TokenRewards   int        `json:"token_rewards"`
	MaticEarned    int64      `json:"matic_earned"`
	GiankyEarned   int64      `json:"gianky_earned"`
	RecentActivity int        `json:"recent_activity"`
	LastRewardDate *time.Time `json:"last_reward_date"`
}
