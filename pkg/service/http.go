package service

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/giankylabs/relayer/internal/metrics"
	apperrors "github.com/giankylabs/relayer/pkg/app/errors"
	apphttp "github.com/giankylabs/relayer/pkg/app/http"
	"github.com/giankylabs/relayer/pkg/auth"
	"github.com/giankylabs/relayer/pkg/executor"
	rewardsvc "github.com/giankylabs/relayer/pkg/reward/service"
)

// ConnectRequest opens a wallet session
type ConnectRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
	Message       string `json:"message" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

// MetaTransactionRequest is a user-signed call to relay
type MetaTransactionRequest struct {
	To        string `json:"to" validate:"required"`
	Data      string `json:"data"`
	Value     string `json:"value"`
	Gas       uint64 `json:"gas" validate:"required"`
	ChainID   int64  `json:"chain_id"`
	Signature string `json:"signature" validate:"required"`
}

// ClaimRewardRequest claims a game reward
type ClaimRewardRequest struct {
	RewardType    string `json:"reward_type" validate:"required"`
	RewardValue   string `json:"reward_value" validate:"required"`
	GameSessionID string `json:"game_session_id" validate:"required"`
}

// MintNFTRequest mints a tier NFT directly
type MintNFTRequest struct {
	NFTType     string `json:"nft_type" validate:"required"`
	MetadataURI string `json:"metadata_uri"`
}

// TransferTokensRequest sends tokens directly
type TransferTokensRequest struct {
	TokenType string `json:"token_type" validate:"required"`
	Amount    string `json:"amount" validate:"required"`
}

// GasEstimateRequest prices a prospective call
type GasEstimateRequest struct {
	To      string `json:"to" validate:"required"`
	Data    string `json:"data"`
	ChainID int64  `json:"chain_id"`
}

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service  *Service
	validate *validator.Validate
	logger   *zap.Logger
}

// RegisterRoutes registers all relayer API endpoints on the given chi router
func RegisterRoutes(r chi.Router, service *Service, issuer *auth.TokenIssuer, logger *zap.Logger) {
	h := &HTTP{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}

	r.Get("/health", apphttp.HandleError(h.health))
	r.Post("/api/wallet/connect", apphttp.HandleError(h.connect))
	r.Post("/api/gas/estimate", apphttp.HandleError(h.estimateGas))
	r.Get("/api/relayer/balance", apphttp.HandleError(h.relayerBalance))

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(issuer, logger))
		r.Post("/api/gasless/meta-transaction", apphttp.HandleError(h.relay))
		r.Post("/api/rewards/claim", apphttp.HandleError(h.claimReward))
		r.Get("/api/user/rewards", apphttp.HandleError(h.rewardHistory))
		r.Get("/api/rewards/stats", apphttp.HandleError(h.rewardStats))
		r.Post("/api/nft/mint", apphttp.HandleError(h.mintNFT))
		r.Post("/api/tokens/transfer", apphttp.HandleError(h.transferTokens))
	})
}

// decode parses and validates a JSON request body
func (h *HTTP) decode(r *http.Request, dst any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB limit
	if err != nil {
		return apperrors.BadRequestError(err, "failed to read request")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return apperrors.BadRequestError(err, "invalid JSON")
	}
	if err := h.validate.Struct(dst); err != nil {
		return apperrors.BadRequestError(err, "missing or invalid fields")
	}
	return nil
}

func (h *HTTP) health(w http.ResponseWriter, r *http.Request) error {
	apphttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	return nil
}

func (h *HTTP) connect(w http.ResponseWriter, r *http.Request) error {
	var req ConnectRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	token, err := h.service.Connect(req.WalletAddress, req.Message, req.Signature)
	if err != nil {
		metrics.AuthFailures.WithLabelValues("connect").Inc()
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]string{
		"token":          token,
		"wallet_address": auth.NormalizeAddress(req.WalletAddress),
	})
	return nil
}

func (h *HTTP) relay(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing session")
	}

	var req MetaTransactionRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	start := time.Now()
	result, err := h.service.Relay(r.Context(), wallet, &req)
	if err != nil {
		metrics.RelayedTransactions.WithLabelValues(chainLabel(req.ChainID), "failed").Inc()
		if reason, ok := executor.Reason(err); ok && reason == executor.ReasonGasPolicyRejected {
			metrics.GasPolicyRejections.WithLabelValues(chainLabel(req.ChainID), "price_or_limit").Inc()
		}
		return err
	}
	metrics.RelayDuration.WithLabelValues(chainLabel(result.ChainID)).Observe(time.Since(start).Seconds())

	metrics.RelayedTransactions.WithLabelValues(chainLabel(result.ChainID), "confirmed").Inc()
	metrics.GasUsed.WithLabelValues(chainLabel(result.ChainID)).Observe(float64(result.GasUsed))

	apphttp.WriteJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) claimReward(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing session")
	}

	var req ClaimRewardRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	result, err := h.service.rewards.Claim(r.Context(), &rewardsvc.ClaimRequest{
		UserAddress:   wallet,
		RewardType:    req.RewardType,
		RewardValue:   req.RewardValue,
		GameSessionID: req.GameSessionID,
	})
	if err != nil {
		metrics.RewardClaims.WithLabelValues(req.RewardType, "failed").Inc()
		return err
	}

	metrics.RewardClaims.WithLabelValues(req.RewardType, "completed").Inc()
	apphttp.WriteJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) rewardHistory(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing session")
	}

	rewards, err := h.service.rewards.History(r.Context(), wallet)
	if err != nil {
		return err
	}

	type rewardResponse struct {
		RewardID      string `json:"reward_id"`
		RewardType    string `json:"reward_type"`
		RewardValue   string `json:"reward_value"`
		GameSessionID string `json:"game_session_id"`
		TxHash        string `json:"tx_hash,omitempty"`
		Status        string `json:"status"`
		CreatedAt     string `json:"created_at"`
	}

	out := make([]rewardResponse, len(rewards))
	for i, rw := range rewards {
		out[i] = rewardResponse{
			RewardID:      rw.RewardID,
			RewardType:    rw.RewardType,
			RewardValue:   rw.RewardValue,
			GameSessionID: rw.GameSessionID,
			TxHash:        rw.TxHash,
			Status:        string(rw.Status),
			CreatedAt:     rw.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		}
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"wallet_address": wallet,
		"rewards":        out,
		"total_count":    len(out),
	})
	return nil
}

func (h *HTTP) rewardStats(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing session")
	}

	stats, err := h.service.rewards.Statistics(r.Context(), wallet)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, stats)
	return nil
}

func (h *HTTP) mintNFT(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing session")
	}

	var req MintNFTRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	result, err := h.service.rewards.MintNFT(r.Context(), wallet, req.NFTType, req.MetadataURI)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) transferTokens(w http.ResponseWriter, r *http.Request) error {
	wallet, ok := auth.WalletAddressFromContext(r.Context())
	if !ok {
		return apperrors.UnAuthorizedError(nil, "missing session")
	}

	var req TransferTokensRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || amount.Sign() <= 0 {
		return apperrors.BadRequestError(err, "Invalid amount")
	}

	result, err := h.service.rewards.TransferTokens(r.Context(), wallet, req.TokenType, amount)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, result)
	return nil
}

func (h *HTTP) estimateGas(w http.ResponseWriter, r *http.Request) error {
	var req GasEstimateRequest
	if err := h.decode(r, &req); err != nil {
		return err
	}

	estimate, err := h.service.EstimateGas(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, estimate)
	return nil
}

func (h *HTTP) relayerBalance(w http.ResponseWriter, r *http.Request) error {
	balances, err := h.service.RelayerBalances(r.Context())
	if err != nil {
		return err
	}

	for _, balance := range balances {
		if wei, ok := newFloat(balance.BalanceWei); ok {
			metrics.RelayerBalance.WithLabelValues(balance.Chain).Set(wei)
		}
	}

	apphttp.WriteJSON(w, http.StatusOK, map[string]any{
		"relayer_address": h.service.exec.RelayerAddress().Hex(),
		"balances":        balances,
	})
	return nil
}

func chainLabel(chainID int64) string {
	return strconv.FormatInt(chainID, 10)
}

func newFloat(wei string) (float64, bool) {
	f, err := strconv.ParseFloat(wei, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
