// Package service orchestrates reward claims: idempotency, daily quotas, and
// on-chain fulfilment through the relayer.
package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/giankylabs/relayer/pkg/app/errors"
	"github.com/giankylabs/relayer/pkg/config"
	"github.com/giankylabs/relayer/pkg/executor"
	"github.com/giankylabs/relayer/pkg/reward"
	"github.com/giankylabs/relayer/pkg/rewardstore"
)

// gasReserveWei is kept back from the relayer balance for its own gas
var gasReserveWei = big.NewInt(10_000_000_000_000_000) // 0.01

// Executor submits relayer-paid transactions. Satisfied by *executor.Executor.
type Executor interface {
	ExecuteDirect(ctx context.Context, chainID int64, to common.Address, value *big.Int, data []byte) (*executor.Receipt, error)
	RelayerAddress() common.Address
}

// Chain exposes the reward chain's contracts and balances. Satisfied by
// *chains.Client.
type Chain interface {
	ChainID() int64
	NFTContract() common.Address
	TokenContract() common.Address
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}

// MetadataPublisher produces token URIs for NFT mints. Satisfied by
// *nft.Publisher.
type MetadataPublisher interface {
	MetadataURI(ctx context.Context, tier string, owner common.Address) string
}

// ClaimRequest is one game reward claim
type ClaimRequest struct {
	UserAddress   string
	RewardType    string
	RewardValue   string
	GameSessionID string
}

// ClaimResult reports a fulfilled claim
type ClaimResult struct {
	RewardID string `json:"reward_id"`
	TxHash   string `json:"tx_hash"`
	Message  string `json:"message"`
}

// TransferResult reports a direct mint or token transfer
type TransferResult struct {
	TxHash      string `json:"tx_hash"`
	MetadataURI string `json:"metadata_uri,omitempty"`
	Amount      string `json:"amount,omitempty"`
	TokenType   string `json:"token_type,omitempty"`
}

// Service processes reward claims
type Service struct {
	store        rewardstore.Store
	exec         Executor
	chain        Chain
	publisher    MetadataPublisher
	maxPerDay    int
	historyLimit int
	logger       *zap.Logger
}

// New creates the reward service
func New(store rewardstore.Store, exec Executor, chain Chain, publisher MetadataPublisher, cfg config.RewardsConfig, logger *zap.Logger) *Service {
	return &Service{
		store:        store,
		exec:         exec,
		chain:        chain,
		publisher:    publisher,
		maxPerDay:    cfg.MaxPerUserPerDay,
		historyLimit: cfg.HistoryLimit,
		logger:       logger,
	}
}

// Claim validates, records and fulfils a game reward. The pending record is
// inserted before any chain submission; its unique constraint on user and
// session is what guarantees a session pays out at most once even under
// concurrent claims.
func (s *Service) Claim(ctx context.Context, req *ClaimRequest) (*ClaimResult, error) {
	entry, err := reward.Lookup(req.RewardValue)
	if err != nil {
		return nil, apperrors.BadRequestError(err, fmt.Sprintf("Invalid reward: %s", req.RewardValue))
	}

	if _, err := s.store.GetOrCreateUser(ctx, req.UserAddress); err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("failed to register user: %w", err))
	}

	rewardID, err := s.admitClaim(ctx, req)
	if err != nil {
		return nil, err
	}

	receipt, err := s.fulfil(ctx, entry, common.HexToAddress(req.UserAddress))
	if err != nil {
		if failErr := s.store.FailReward(ctx, rewardID, failureReason(err)); failErr != nil {
			s.logger.Error("Failed to mark reward failed", zap.String("reward_id", rewardID), zap.Error(failErr))
		}
		return nil, claimError(err)
	}

	s.finalize(ctx, rewardID, req, receipt)

	return &ClaimResult{
		RewardID: rewardID,
		TxHash:   receipt.TxHash.Hex(),
		Message:  fmt.Sprintf("Successfully claimed %s", req.RewardValue),
	}, nil
}

// admitClaim enforces idempotency and the daily quota, then inserts the
// pending record. The quota check and the insert run in one store transaction
// so concurrent claims for different sessions cannot jointly exceed the
// limit. Returns the reward id to fulfil.
func (s *Service) admitClaim(ctx context.Context, req *ClaimRequest) (string, error) {
	existing, err := s.store.GetRewardBySession(ctx, req.UserAddress, req.GameSessionID)
	if err != nil && !errors.Is(err, rewardstore.ErrRewardNotFound) {
		return "", apperrors.GeneralError(fmt.Errorf("failed to check claim status: %w", err))
	}
	if existing != nil && existing.Status != reward.StatusFailed {
		return "", apperrors.ConflictError(nil, "Reward already claimed for this game session")
	}

	since := time.Now().Add(-24 * time.Hour)

	// a failed claim for this session may be retried, reusing its record
	if existing != nil {
		if err := s.store.ResetFailedReward(ctx, existing.RewardID, req.UserAddress, since, s.maxPerDay); err != nil {
			return "", admitError(err, "failed to retry claim")
		}
		return existing.RewardID, nil
	}

	pending := &reward.Reward{
		RewardID:      uuid.NewString(),
		UserAddress:   req.UserAddress,
		RewardType:    req.RewardType,
		RewardValue:   req.RewardValue,
		GameSessionID: req.GameSessionID,
		Status:        reward.StatusPending,
	}
	if err := s.store.AdmitPendingReward(ctx, pending, since, s.maxPerDay); err != nil {
		return "", admitError(err, "failed to record claim")
	}
	return pending.RewardID, nil
}

// admitError maps store admission failures to service error categories
func admitError(err error, message string) error {
	switch {
	case errors.Is(err, rewardstore.ErrDailyLimit):
		return apperrors.PolicyRejectedError(nil, "Daily reward limit exceeded")
	case errors.Is(err, rewardstore.ErrDuplicateClaim):
		return apperrors.ConflictError(nil, "Reward already claimed for this game session")
	}
	return apperrors.GeneralError(fmt.Errorf("%s: %w", message, err))
}

// fulfil performs the on-chain action the catalog entry calls for
func (s *Service) fulfil(ctx context.Context, entry reward.Entry, recipient common.Address) (*executor.Receipt, error) {
	var plan *reward.Plan
	var err error

	switch entry.Kind {
	case reward.KindNFT:
		uri := s.publisher.MetadataURI(ctx, entry.Tier, recipient)
		plan, err = reward.PlanNFTMint(s.chain.NFTContract(), recipient, uri)
	case reward.KindToken:
		if entry.Token == reward.TokenMatic {
			plan, err = s.planNative(ctx, recipient, entry.Amount)
		} else {
			plan, err = reward.PlanTokenTransfer(s.chain.TokenContract(), recipient, entry.Amount)
		}
	default:
		err = fmt.Errorf("unknown reward kind %q", entry.Kind)
	}
	if err != nil {
		return nil, err
	}

	return s.exec.ExecuteDirect(ctx, s.chain.ChainID(), plan.To, plan.Value, plan.Data)
}

// planNative checks the relayer can cover the payout plus its own gas before
// building a native transfer.
func (s *Service) planNative(ctx context.Context, recipient common.Address, amount decimal.Decimal) (*reward.Plan, error) {
	plan, err := reward.PlanNativeTransfer(recipient, amount)
	if err != nil {
		return nil, err
	}

	balance, err := s.chain.BalanceAt(ctx, s.exec.RelayerAddress())
	if err != nil {
		return nil, fmt.Errorf("failed to read relayer balance: %w", err)
	}
	required := new(big.Int).Add(plan.Value, gasReserveWei)
	if balance.Cmp(required) < 0 {
		return nil, apperrors.DependencyError(nil, "Insufficient relayer balance")
	}
	return plan, nil
}

// finalize records the completed claim. The chain transfer has already
// happened, so bookkeeping failures are logged rather than surfaced as a
// claim failure.
func (s *Service) finalize(ctx context.Context, rewardID string, req *ClaimRequest, receipt *executor.Receipt) {
	if err := s.store.CompleteReward(ctx, rewardID, receipt.TxHash.Hex()); err != nil {
		s.logger.Error("Failed to finalize reward",
			zap.String("reward_id", rewardID),
			zap.String("tx_hash", receipt.TxHash.Hex()),
			zap.Error(err))
	}
	if err := s.store.RecordTransaction(ctx, &reward.Transaction{
		TxHash:      receipt.TxHash.Hex(),
		UserAddress: req.UserAddress,
		ChainID:     receipt.ChainID,
		Kind:        "reward",
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber,
	}); err != nil {
		s.logger.Error("Failed to record transaction", zap.String("tx_hash", receipt.TxHash.Hex()), zap.Error(err))
	}
	if err := s.store.RecordGameSession(ctx, req.GameSessionID, req.UserAddress, req.RewardType); err != nil {
		s.logger.Error("Failed to record game session", zap.String("session_id", req.GameSessionID), zap.Error(err))
	}
}

// History returns the user's most recent rewards
func (s *Service) History(ctx context.Context, userAddress string) ([]*reward.Reward, error) {
	rewards, err := s.store.ListUserRewards(ctx, userAddress, s.historyLimit, 0)
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("failed to list rewards: %w", err))
	}
	return rewards, nil
}

// Statistics aggregates the user's lifetime reward totals. History is paged
// through in full; the history limit caps page size, not the totals.
func (s *Service) Statistics(ctx context.Context, userAddress string) (*reward.Stats, error) {
	stats := &reward.Stats{}
	for offset := 0; ; offset += s.historyLimit {
		rewards, err := s.store.ListUserRewards(ctx, userAddress, s.historyLimit, offset)
		if err != nil {
			return nil, apperrors.GeneralError(fmt.Errorf("failed to list rewards: %w", err))
		}
		if offset == 0 && len(rewards) > 0 {
			stats.LastRewardDate = &rewards[0].CreatedAt
		}

		for _, r := range rewards {
			if r.Status == reward.StatusFailed {
				continue
			}
			stats.TotalRewards++

			entry, err := reward.Lookup(r.RewardValue)
			if err != nil {
				continue
			}
			switch entry.Kind {
			case reward.KindNFT:
				stats.NFTRewards++
			case reward.KindToken:
				stats.TokenRewards++
				switch entry.Token {
				case reward.TokenMatic:
					stats.MaticEarned += entry.Amount.IntPart()
				case reward.TokenGianky:
					stats.GiankyEarned += entry.Amount.IntPart()
				}
			}
		}

		if len(rewards) == 0 || len(rewards) < s.historyLimit {
			break
		}
	}

	recent, err := s.store.ListUserRewardsSince(ctx, userAddress, time.Now().Add(-7*24*time.Hour))
	if err != nil {
		return nil, apperrors.GeneralError(fmt.Errorf("failed to list recent rewards: %w", err))
	}
	stats.RecentActivity = len(recent)

	return stats, nil
}

// MintNFT mints a tier NFT outside of a game claim. The metadata URI may be
// supplied by the caller; otherwise one is published.
func (s *Service) MintNFT(ctx context.Context, userAddress, tier, metadataURI string) (*TransferResult, error) {
	recipient := common.HexToAddress(userAddress)
	if metadataURI == "" {
		metadataURI = s.publisher.MetadataURI(ctx, tier, recipient)
	}

	plan, err := reward.PlanNFTMint(s.chain.NFTContract(), recipient, metadataURI)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "Invalid mint request")
	}

	receipt, err := s.exec.ExecuteDirect(ctx, s.chain.ChainID(), plan.To, plan.Value, plan.Data)
	if err != nil {
		return nil, claimError(err)
	}
	s.recordDirect(ctx, userAddress, "nft_mint", receipt)

	return &TransferResult{TxHash: receipt.TxHash.Hex(), MetadataURI: metadataURI}, nil
}

// TransferTokens sends tokens to a user outside of a game claim
func (s *Service) TransferTokens(ctx context.Context, userAddress, token string, amount decimal.Decimal) (*TransferResult, error) {
	recipient := common.HexToAddress(userAddress)

	var plan *reward.Plan
	var err error
	switch token {
	case reward.TokenMatic:
		plan, err = s.planNative(ctx, recipient, amount)
	case reward.TokenGianky:
		plan, err = reward.PlanTokenTransfer(s.chain.TokenContract(), recipient, amount)
	default:
		return nil, apperrors.BadRequestError(nil, fmt.Sprintf("Unsupported token: %s", token))
	}
	if err != nil {
		var svcErr *apperrors.ServiceError
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, apperrors.BadRequestError(err, "Invalid transfer request")
	}

	receipt, err := s.exec.ExecuteDirect(ctx, s.chain.ChainID(), plan.To, plan.Value, plan.Data)
	if err != nil {
		return nil, claimError(err)
	}
	s.recordDirect(ctx, userAddress, plan.Description, receipt)

	return &TransferResult{
		TxHash:    receipt.TxHash.Hex(),
		Amount:    amount.String(),
		TokenType: token,
	}, nil
}

func (s *Service) recordDirect(ctx context.Context, userAddress, kind string, receipt *executor.Receipt) {
	if err := s.store.RecordTransaction(ctx, &reward.Transaction{
		TxHash:      receipt.TxHash.Hex(),
		UserAddress: userAddress,
		ChainID:     receipt.ChainID,
		Kind:        kind,
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber,
	}); err != nil {
		s.logger.Error("Failed to record transaction", zap.String("tx_hash", receipt.TxHash.Hex()), zap.Error(err))
	}
}

// failureReason maps a fulfilment error to the stored failure label
func failureReason(err error) string {
	if reason, ok := executor.Reason(err); ok {
		return string(reason)
	}
	return err.Error()
}

// claimError maps fulfilment failures to service error categories
func claimError(err error) error {
	var svcErr *apperrors.ServiceError
	if errors.As(err, &svcErr) {
		return err
	}
	if reason, ok := executor.Reason(err); ok {
		switch reason {
		case executor.ReasonGasPolicyRejected:
			return apperrors.PolicyRejectedError(err, "Gas policy rejected the transaction")
		case executor.ReasonInvalidSignature:
			return apperrors.BadRequestError(err, "Invalid signature")
		default:
			return apperrors.DependencyError(err, "Transaction failed")
		}
	}
	return apperrors.GeneralError(fmt.Errorf("failed to process reward: %w", err))
}
