// Package service exposes the relayer's HTTP API: wallet session auth,
// gasless meta-transactions, reward claims, and operational endpoints.
package service

import (
	"context"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	apperrors "github.com/giankylabs/relayer/pkg/app/errors"
	"github.com/giankylabs/relayer/pkg/auth"
	"github.com/giankylabs/relayer/pkg/executor"
	"github.com/giankylabs/relayer/pkg/gas"
	"github.com/giankylabs/relayer/pkg/reward"
	rewardsvc "github.com/giankylabs/relayer/pkg/reward/service"
)

// RelayExecutor submits user-signed calls through the forwarder. Satisfied by
// *executor.Executor.
type RelayExecutor interface {
	Execute(ctx context.Context, intent *executor.CallIntent) (*executor.Receipt, error)
	RelayerAddress() common.Address
}

// RewardService fulfils game reward operations. Satisfied by
// *reward/service.Service.
type RewardService interface {
	Claim(ctx context.Context, req *rewardsvc.ClaimRequest) (*rewardsvc.ClaimResult, error)
	History(ctx context.Context, userAddress string) ([]*reward.Reward, error)
	Statistics(ctx context.Context, userAddress string) (*reward.Stats, error)
	MintNFT(ctx context.Context, userAddress, tier, metadataURI string) (*rewardsvc.TransferResult, error)
	TransferTokens(ctx context.Context, userAddress, token string, amount decimal.Decimal) (*rewardsvc.TransferResult, error)
}

// Chain is the per-chain surface the API needs for estimates and balances
type Chain interface {
	ChainID() int64
	Name() string
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}

// ChainSource resolves chains by id. Satisfied by RouterSource.
type ChainSource interface {
	Chain(chainID int64) (Chain, error)
	Chains() []Chain
}

// Service implements the relayer API operations
type Service struct {
	exec    RelayExecutor
	rewards RewardService
	issuer  *auth.TokenIssuer
	chains  ChainSource
	policy  *gas.Policy
	logger  *zap.Logger
}

// New creates the API service
func New(exec RelayExecutor, rewards RewardService, issuer *auth.TokenIssuer, chains ChainSource, policy *gas.Policy, logger *zap.Logger) *Service {
	return &Service{
		exec:    exec,
		rewards: rewards,
		issuer:  issuer,
		chains:  chains,
		policy:  policy,
		logger:  logger,
	}
}

// Connect verifies the wallet's signed challenge and issues a session token
func (s *Service) Connect(walletAddress, message, signature string) (string, error) {
	if !auth.ValidateAddress(walletAddress) {
		return "", apperrors.BadRequestError(nil, "Invalid wallet address")
	}
	if !auth.VerifySignature(walletAddress, message, signature) {
		return "", apperrors.UnAuthorizedError(nil, "Signature verification failed")
	}

	token, err := s.issuer.Issue(auth.NormalizeAddress(walletAddress))
	if err != nil {
		return "", apperrors.GeneralError(fmt.Errorf("failed to issue token: %w", err))
	}
	return token, nil
}

// RelayResult reports a confirmed meta-transaction
type RelayResult struct {
	TxHash      string `json:"tx_hash"`
	GasUsed     uint64 `json:"gas_used"`
	BlockNumber uint64 `json:"block_number"`
	ChainID     int64  `json:"chain_id"`
}

// Relay executes a user-signed meta-transaction
func (s *Service) Relay(ctx context.Context, from string, req *MetaTransactionRequest) (*RelayResult, error) {
	if !auth.ValidateAddress(req.To) {
		return nil, apperrors.BadRequestError(nil, "Invalid target address")
	}

	data := []byte{}
	if req.Data != "" {
		decoded, err := hexutil.Decode(req.Data)
		if err != nil {
			return nil, apperrors.BadRequestError(err, "Invalid call data")
		}
		data = decoded
	}

	value := big.NewInt(0)
	if req.Value != "" {
		parsed, ok := new(big.Int).SetString(req.Value, 10)
		if !ok || parsed.Sign() < 0 {
			return nil, apperrors.BadRequestError(nil, "Invalid value")
		}
		value = parsed
	}

	receipt, err := s.exec.Execute(ctx, &executor.CallIntent{
		From:      common.HexToAddress(from),
		To:        common.HexToAddress(req.To),
		Value:     value,
		Data:      data,
		Gas:       req.Gas,
		Signature: req.Signature,
		ChainID:   req.ChainID,
	})
	if err != nil {
		return nil, relayError(err)
	}

	return &RelayResult{
		TxHash:      receipt.TxHash.Hex(),
		GasUsed:     receipt.GasUsed,
		BlockNumber: receipt.BlockNumber,
		ChainID:     receipt.ChainID,
	}, nil
}

// GasEstimate is the response of the estimate endpoint
type GasEstimate struct {
	GasLimit     uint64 `json:"gas_limit"`
	GasPriceWei  string `json:"gas_price_wei"`
	EstimatedWei string `json:"estimated_cost_wei"`
	ChainID      int64  `json:"chain_id"`
	Admitted     bool   `json:"admitted"`
}

// EstimateGas simulates a call and prices it under the current gas policy
func (s *Service) EstimateGas(ctx context.Context, req *GasEstimateRequest) (*GasEstimate, error) {
	if !auth.ValidateAddress(req.To) {
		return nil, apperrors.BadRequestError(nil, "Invalid target address")
	}

	chain, err := s.chains.Chain(req.ChainID)
	if err != nil {
		return nil, apperrors.BadRequestError(err, "Unsupported chain")
	}

	var data []byte
	if req.Data != "" {
		data, err = hexutil.Decode(req.Data)
		if err != nil {
			return nil, apperrors.BadRequestError(err, "Invalid call data")
		}
	}

	to := common.HexToAddress(req.To)
	msg := ethereum.CallMsg{
		From: s.exec.RelayerAddress(),
		To:   &to,
		Data: data,
	}

	gasLimit, err := s.policy.Estimate(ctx, chain, msg)
	if err != nil {
		return nil, apperrors.DependencyError(err, "Gas estimation failed")
	}
	price, err := s.policy.CurrentPrice(ctx, chain)
	if err != nil {
		return nil, apperrors.DependencyError(err, "Gas price lookup failed")
	}

	return &GasEstimate{
		GasLimit:     gasLimit,
		GasPriceWei:  price.String(),
		EstimatedWei: s.policy.EstimateCost(gasLimit, price).String(),
		ChainID:      chain.ChainID(),
		Admitted:     s.policy.Admit(price, gasLimit) == nil,
	}, nil
}

// ChainBalance is one chain's relayer balance
type ChainBalance struct {
	Chain      string `json:"chain"`
	ChainID    int64  `json:"chain_id"`
	BalanceWei string `json:"balance_wei"`
}

// RelayerBalances reads the relayer's native balance on every chain
func (s *Service) RelayerBalances(ctx context.Context) ([]ChainBalance, error) {
	relayer := s.exec.RelayerAddress()

	balances := make([]ChainBalance, 0)
	for _, chain := range s.chains.Chains() {
		balance, err := chain.BalanceAt(ctx, relayer)
		if err != nil {
			return nil, apperrors.DependencyError(err, "Balance lookup failed")
		}
		balances = append(balances, ChainBalance{
			Chain:      chain.Name(),
			ChainID:    chain.ChainID(),
			BalanceWei: balance.String(),
		})
	}
	return balances, nil
}

// relayError maps executor failures to service error categories
func relayError(err error) error {
	if reason, ok := executor.Reason(err); ok {
		switch reason {
		case executor.ReasonInvalidSignature:
			return apperrors.UnAuthorizedError(err, "Signature does not authorize this request")
		case executor.ReasonGasPolicyRejected:
			return apperrors.PolicyRejectedError(err, "Gas policy rejected the transaction")
		case executor.ReasonConfirmationTimeout:
			return &apperrors.ServiceError{
				Category: apperrors.CategoryConnectionTimeout,
				Message:  "Transaction not confirmed in time",
				Err:      err,
			}
		default:
			return apperrors.DependencyError(err, "Transaction failed")
		}
	}
	return apperrors.GeneralError(err)
}
