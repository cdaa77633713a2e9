package rewardstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/giankylabs/relayer/pkg/reward"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the reward store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C') == "23505"
	}
	return false
}

func (s *pgStore) GetOrCreateUser(ctx context.Context, walletAddress string) (*UserDao, error) {
	dao := &UserDao{WalletAddress: walletAddress}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (wallet_address) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	err = s.db.NewSelect().
		Model(dao).
		Where("wallet_address = ?", walletAddress).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return dao, nil
}

func (s *pgStore) GetRewardBySession(ctx context.Context, userAddress, gameSessionID string) (*reward.Reward, error) {
	dao := new(RewardDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("user_address = ?", userAddress).
		Where("game_session_id = ?", gameSessionID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRewardNotFound
		}
		return nil, fmt.Errorf("failed to get reward by session: %w", err)
	}
	return toReward(dao), nil
}

// AdmitPendingReward checks the daily quota and inserts the pending claim in
// one transaction. The user row is locked for the duration, so concurrent
// claims by the same user serialize on the quota check and cannot jointly
// exceed maxPerDay. The unique constraint on (user_address, game_session_id)
// is the final arbiter between concurrent claims for the same session.
func (s *pgStore) AdmitPendingReward(ctx context.Context, r *reward.Reward, since time.Time, maxPerDay int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := checkQuota(ctx, tx, r.UserAddress, since, maxPerDay); err != nil {
			return err
		}

		dao := toRewardDao(r)
		dao.Status = string(reward.StatusPending)
		if _, err := tx.NewInsert().Model(dao).Exec(ctx); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicateClaim
			}
			return fmt.Errorf("failed to create reward: %w", err)
		}
		return nil
	})
}

// checkQuota locks the user row and counts the non-failed claims in the
// window. Failed claims do not consume quota.
func checkQuota(ctx context.Context, tx bun.Tx, userAddress string, since time.Time, maxPerDay int) error {
	locked := new(UserDao)
	err := tx.NewSelect().
		Model(locked).
		Where("wallet_address = ?", userAddress).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}

	count, err := tx.NewSelect().
		Model((*RewardDao)(nil)).
		Where("user_address = ?", userAddress).
		Where("created_at >= ?", since).
		Where("status != ?", string(reward.StatusFailed)).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count rewards: %w", err)
	}
	if count >= maxPerDay {
		return ErrDailyLimit
	}
	return nil
}

// CompleteReward finalizes a reward and bumps the user's lifetime counter in
// one transaction.
func (s *pgStore) CompleteReward(ctx context.Context, rewardID, txHash string) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		dao := new(RewardDao)
		err := tx.NewSelect().
			Model(dao).
			Where("reward_id = ?", rewardID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrRewardNotFound
			}
			return fmt.Errorf("failed to get reward: %w", err)
		}

		_, err = tx.NewUpdate().
			Model((*RewardDao)(nil)).
			Set("status = ?", string(reward.StatusCompleted)).
			Set("tx_hash = ?", txHash).
			Set("completed_at = NOW()").
			Where("reward_id = ?", rewardID).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to complete reward: %w", err)
		}

		_, err = tx.NewUpdate().
			Model((*UserDao)(nil)).
			Set("total_rewards = total_rewards + 1").
			Set("updated_at = NOW()").
			Where("wallet_address = ?", dao.UserAddress).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to increment user rewards: %w", err)
		}
		return nil
	})
}

func (s *pgStore) FailReward(ctx context.Context, rewardID, reason string) error {
	_, err := s.db.NewUpdate().
		Model((*RewardDao)(nil)).
		Set("status = ?", string(reward.StatusFailed)).
		Set("failure_reason = ?", reason).
		Set("completed_at = NOW()").
		Where("reward_id = ?", rewardID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark reward failed: %w", err)
	}
	return nil
}

// ResetFailedReward returns a failed claim to pending so it can be retried.
// The retried claim re-enters the quota, so the same user-row lock guards it.
// The status guard makes the reset itself atomic: of two concurrent retries
// only one observes the failed row and proceeds.
func (s *pgStore) ResetFailedReward(ctx context.Context, rewardID, userAddress string, since time.Time, maxPerDay int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := checkQuota(ctx, tx, userAddress, since, maxPerDay); err != nil {
			return err
		}

		res, err := tx.NewUpdate().
			Model((*RewardDao)(nil)).
			Set("status = ?", string(reward.StatusPending)).
			Set("failure_reason = NULL").
			Set("completed_at = NULL").
			Where("reward_id = ?", rewardID).
			Where("status = ?", string(reward.StatusFailed)).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to reset reward: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to reset reward: %w", err)
		}
		if affected == 0 {
			return ErrDuplicateClaim
		}
		return nil
	})
}

func (s *pgStore) ListUserRewards(ctx context.Context, userAddress string, limit, offset int) ([]*reward.Reward, error) {
	var daos []RewardDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_address = ?", userAddress).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	rewards := make([]*reward.Reward, len(daos))
	for i := range daos {
		rewards[i] = toReward(&daos[i])
	}
	return rewards, nil
}

func (s *pgStore) ListUserRewardsSince(ctx context.Context, userAddress string, since time.Time) ([]*reward.Reward, error) {
	var daos []RewardDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("user_address = ?", userAddress).
		Where("created_at >= ?", since).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rewards: %w", err)
	}

	rewards := make([]*reward.Reward, len(daos))
	for i := range daos {
		rewards[i] = toReward(&daos[i])
	}
	return rewards, nil
}

func (s *pgStore) RecordTransaction(ctx context.Context, tx *reward.Transaction) error {
	_, err := s.db.NewInsert().
		Model(toTransactionDao(tx)).
		On("CONFLICT (tx_hash) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %w", err)
	}
	return nil
}

// RecordGameSession upserts the session as completed. Sessions are recorded
// at claim time, when the game has already finished.
func (s *pgStore) RecordGameSession(ctx context.Context, sessionID, userAddress, gameType string) error {
	now := time.Now()
	dao := &GameSessionDao{
		SessionID:   sessionID,
		UserAddress: userAddress,
		GameType:    gameType,
		Status:      "completed",
		CompletedAt: &now,
	}

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (session_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to record game session: %w", err)
	}
	return nil
}
