// Package rewardstore persists users, rewards, game sessions and relayer
// transactions in PostgreSQL.
package rewardstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/giankylabs/relayer/pkg/reward"
)

// UserDao is a data access object that maps directly to the 'users' table in PostgreSQL.
type UserDao struct {
	bun.BaseModel `bun:"table:users,alias:u"`
	ID            int64     `bun:"id,pk,autoincrement"`
	WalletAddress string    `bun:"wallet_address,unique,notnull,type:varchar(42)"`
	TotalRewards  int64     `bun:"total_rewards,notnull,default:0"`
	CreatedAt     time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// RewardDao is a data access object that maps directly to the 'rewards' table
// in PostgreSQL. The composite unique constraint on (user_address,
// game_session_id) is what makes claims idempotent under concurrency.
type RewardDao struct {
	bun.BaseModel `bun:"table:rewards,alias:r"`
	ID            int64      `bun:"id,pk,autoincrement"`
	RewardID      string     `bun:"reward_id,unique,notnull,type:varchar(36)"`
	UserAddress   string     `bun:"user_address,notnull,type:varchar(42),unique:rewards_user_session"`
	RewardType    string     `bun:"reward_type,notnull,type:varchar(64)"`
	RewardValue   string     `bun:"reward_value,notnull,type:varchar(64)"`
	GameSessionID string     `bun:"game_session_id,notnull,type:varchar(128),unique:rewards_user_session"`
	TxHash        *string    `bun:"tx_hash,type:varchar(66)"`
	Status        string     `bun:"status,notnull,default:'pending',type:varchar(16)"`
	FailureReason *string    `bun:"failure_reason,type:varchar(255)"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	CompletedAt   *time.Time `bun:"completed_at"`
}

// TransactionDao is a data access object that maps directly to the
// 'transactions' table in PostgreSQL.
type TransactionDao struct {
	bun.BaseModel   `bun:"table:transactions,alias:t"`
	ID              int64     `bun:"id,pk,autoincrement"`
	TxHash          string    `bun:"tx_hash,unique,notnull,type:varchar(66)"`
	UserAddress     string    `bun:"user_address,notnull,type:varchar(42)"`
	ChainID         int64     `bun:"chain_id,notnull"`
	TransactionType string    `bun:"transaction_type,notnull,type:varchar(32)"`
	GasUsed         int64     `bun:"gas_used"`
	BlockNumber     int64     `bun:"block_number"`
	CreatedAt       time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

// GameSessionDao is a data access object that maps directly to the
// 'game_sessions' table in PostgreSQL.
type GameSessionDao struct {
	bun.BaseModel `bun:"table:game_sessions,alias:g"`
	ID            int64      `bun:"id,pk,autoincrement"`
	SessionID     string     `bun:"session_id,unique,notnull,type:varchar(128)"`
	UserAddress   string     `bun:"user_address,notnull,type:varchar(42)"`
	GameType      string     `bun:"game_type,notnull,default:'wheel',type:varchar(32)"`
	Status        string     `bun:"status,notnull,default:'active',type:varchar(16)"`
	CreatedAt     time.Time  `bun:"created_at,nullzero,default:current_timestamp"`
	CompletedAt   *time.Time `bun:"completed_at"`
}

// toRewardDao converts a reward.Reward to RewardDao.
func toRewardDao(r *reward.Reward) *RewardDao {
	dao := &RewardDao{
		RewardID:      r.RewardID,
		UserAddress:   r.UserAddress,
		RewardType:    r.RewardType,
		RewardValue:   r.RewardValue,
		GameSessionID: r.GameSessionID,
		Status:        string(r.Status),
	}
	if r.TxHash != "" {
		dao.TxHash = &r.TxHash
	}
	if r.FailureReason != "" {
		dao.FailureReason = &r.FailureReason
	}
	if r.CompletedAt != nil {
		dao.CompletedAt = r.CompletedAt
	}
	return dao
}

// toReward converts a RewardDao to reward.Reward.
func toReward(dao *RewardDao) *reward.Reward {
	r := &reward.Reward{
		RewardID:      dao.RewardID,
		UserAddress:   dao.UserAddress,
		RewardType:    dao.RewardType,
		RewardValue:   dao.RewardValue,
		GameSessionID: dao.GameSessionID,
		Status:        reward.Status(dao.Status),
		CreatedAt:     dao.CreatedAt,
		CompletedAt:   dao.CompletedAt,
	}
	if dao.TxHash != nil {
		r.TxHash = *dao.TxHash
	}
	if dao.FailureReason != nil {
		r.FailureReason = *dao.FailureReason
	}
	return r
}

func toTransactionDao(tx *reward.Transaction) *TransactionDao {
	return &TransactionDao{
		TxHash:          tx.TxHash,
		UserAddress:     tx.UserAddress,
		ChainID:         tx.ChainID,
		TransactionType: tx.Kind,
		GasUsed:         int64(tx.GasUsed),
		BlockNumber:     int64(tx.BlockNumber),
	}
}
