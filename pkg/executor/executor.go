// Package executor drives meta-transactions through the on-chain forwarder:
// signature verification, gas admission, relayer nonce allocation, submission
// and confirmation.
package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/giankylabs/relayer/pkg/config"
	"github.com/giankylabs/relayer/pkg/forwarder"
	"github.com/giankylabs/relayer/pkg/gas"
)

// FailureReason classifies why an execution did not land on-chain
type FailureReason string

const (
	ReasonInvalidSignature    FailureReason = "invalid_signature"
	ReasonGasPolicyRejected   FailureReason = "gas_policy_rejected"
	ReasonSubmitFailed        FailureReason = "submit_failed"
	ReasonExecutionReverted   FailureReason = "execution_reverted"
	ReasonConfirmationTimeout FailureReason = "confirmation_timeout"
)

// ExecutionError carries the failure classification alongside the cause
type ExecutionError struct {
	Reason FailureReason
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Reason, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// Reason extracts the failure classification from an error chain
func Reason(err error) (FailureReason, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Reason, true
	}
	return "", false
}

// CallIntent is a user-authorized contract call to be relayed. Signature is
// the user's EIP-712 signature over the corresponding forward request.
type CallIntent struct {
	From      common.Address
	To        common.Address
	Value     *big.Int
	Data      []byte
	Gas       uint64
	Signature string
	ChainID   int64
}

// Receipt summarizes a confirmed execution
type Receipt struct {
	TxHash      common.Hash
	GasUsed     uint64
	BlockNumber uint64
	ChainID     int64
}

// Chain is the slice of chain operations the executor needs. Satisfied by
// *chains.Client.
type Chain interface {
	ChainID() int64
	ForwarderAddress() common.Address
	ForwarderNonce(ctx context.Context, account common.Address) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	RelayerNonce(ctx context.Context) (uint64, error)
	ResyncNonce(ctx context.Context) error
}

// Executor submits relayer-paid transactions across the configured chains
type Executor struct {
	chains         map[int64]Chain
	key            *ecdsa.PrivateKey
	relayer        common.Address
	policy         *gas.Policy
	defaultChainID int64
	confirmTimeout time.Duration
	submitRetries  int
	logger         *zap.Logger
}

// New creates an executor over the given chains, signing with key
func New(chns map[int64]Chain, key *ecdsa.PrivateKey, policy *gas.Policy, cfg config.RelayerConfig, logger *zap.Logger) *Executor {
	return &Executor{
		chains:         chns,
		key:            key,
		relayer:        crypto.PubkeyToAddress(key.PublicKey),
		policy:         policy,
		defaultChainID: cfg.DefaultChainID,
		confirmTimeout: cfg.ConfirmationTimeout,
		submitRetries:  cfg.SubmitRetries,
		logger:         logger,
	}
}

// RelayerAddress returns the address paying for submitted transactions
func (e *Executor) RelayerAddress() common.Address {
	return e.relayer
}

func (e *Executor) chain(chainID int64) (Chain, error) {
	if chainID == 0 {
		chainID = e.defaultChainID
	}
	chain, ok := e.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("unsupported chain: %d", chainID)
	}
	return chain, nil
}

// Execute relays a user-signed call through the forwarder and waits for
// confirmation. The user's signature and the gas policy are checked before
// a relayer nonce is allocated, so rejected requests never burn a nonce.
func (e *Executor) Execute(ctx context.Context, intent *CallIntent) (*Receipt, error) {
	chain, err := e.chain(intent.ChainID)
	if err != nil {
		return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
	}

	req, err := e.verifyIntent(ctx, chain, intent)
	if err != nil {
		return nil, err
	}

	calldata, err := forwarder.PackExecute(req, intent.Signature)
	if err != nil {
		return nil, &ExecutionError{Reason: ReasonInvalidSignature, Err: err}
	}

	forwarderAddr := chain.ForwarderAddress()
	return e.submit(ctx, chain, forwarderAddr, big.NewInt(0), calldata)
}

// ExecuteDirect submits a relayer-signed call without forwarder mediation.
// Used for system-initiated transfers where the relayer itself is the
// authorizing party; user calls always go through Execute.
func (e *Executor) ExecuteDirect(ctx context.Context, chainID int64, to common.Address, value *big.Int, data []byte) (*Receipt, error) {
	chain, err := e.chain(chainID)
	if err != nil {
		return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
	}
	if value == nil {
		value = big.NewInt(0)
	}
	return e.submit(ctx, chain, to, value, data)
}

// verifyIntent reconstructs the forward request and checks the user's typed
// signature against the forwarder's current nonce. The nonce may advance
// between the user signing and the relayer verifying, so one re-fetch is
// attempted before the signature is declared invalid.
func (e *Executor) verifyIntent(ctx context.Context, chain Chain, intent *CallIntent) (*forwarder.ForwardRequest, error) {
	domain := forwarder.DefaultDomain(chain.ChainID(), chain.ForwarderAddress())

	for attempt := 0; attempt < 2; attempt++ {
		nonce, err := chain.ForwarderNonce(ctx, intent.From)
		if err != nil {
			return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
		}

		req := &forwarder.ForwardRequest{
			From:  intent.From,
			To:    intent.To,
			Value: intent.Value,
			Gas:   intent.Gas,
			Nonce: nonce,
			Data:  intent.Data,
		}
		if forwarder.VerifyTyped(domain, req, intent.Signature, intent.From) {
			return req, nil
		}
	}

	return nil, &ExecutionError{
		Reason: ReasonInvalidSignature,
		Err:    fmt.Errorf("signature does not authorize request from %s", intent.From.Hex()),
	}
}

// submit runs gas admission, allocates the relayer nonce, broadcasts and
// waits for the receipt.
func (e *Executor) submit(ctx context.Context, chain Chain, to common.Address, value *big.Int, calldata []byte) (*Receipt, error) {
	gasLimit, err := e.policy.Estimate(ctx, chain, ethereum.CallMsg{
		From:  e.relayer,
		To:    &to,
		Value: value,
		Data:  calldata,
	})
	if err != nil {
		return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
	}

	gasPrice, err := e.policy.CurrentPrice(ctx, chain)
	if err != nil {
		return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
	}

	if err := e.policy.Admit(gasPrice, gasLimit); err != nil {
		return nil, &ExecutionError{Reason: ReasonGasPolicyRejected, Err: err}
	}

	tx, err := e.broadcast(ctx, chain, to, value, gasLimit, gasPrice, calldata)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Transaction submitted",
		zap.Int64("chain_id", chain.ChainID()),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("gas_limit", gasLimit),
		zap.String("gas_price", gasPrice.String()))

	return e.waitConfirmed(ctx, chain, tx.Hash())
}

// broadcast signs and sends the transaction, retrying on transient failures.
// The relayer nonce is allocated once and reused across retries: a send that
// never reached the mempool leaves its nonce unspent, and allocating a fresh
// one would open a gap no later transaction could mine past. Only a
// "nonce too low" response invalidates the allocation, so only then is the
// source resynced and a fresh nonce taken.
func (e *Executor) broadcast(ctx context.Context, chain Chain, to common.Address, value *big.Int, gasLimit uint64, gasPrice *big.Int, calldata []byte) (*types.Transaction, error) {
	signer := types.LatestSignerForChainID(big.NewInt(chain.ChainID()))

	nonce, err := chain.RelayerNonce(ctx)
	if err != nil {
		return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
	}

	var lastErr error
	for attempt := 0; attempt <= e.submitRetries; attempt++ {
		tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, calldata)
		signed, err := types.SignTx(tx, signer, e.key)
		if err != nil {
			return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
		}

		if err := chain.SendTransaction(ctx, signed); err != nil {
			lastErr = err
			if strings.Contains(err.Error(), "nonce too low") {
				e.logger.Warn("Relayer nonce stale, resyncing",
					zap.Int64("chain_id", chain.ChainID()),
					zap.Uint64("nonce", nonce))
				if resyncErr := chain.ResyncNonce(ctx); resyncErr != nil {
					return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: resyncErr}
				}
				nonce, err = chain.RelayerNonce(ctx)
				if err != nil {
					return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: err}
				}
				continue
			}
			e.logger.Warn("Transaction submission failed",
				zap.Int64("chain_id", chain.ChainID()),
				zap.Int("attempt", attempt),
				zap.Uint64("nonce", nonce),
				zap.Error(err))
			continue
		}

		return signed, nil
	}

	// the local counter sits past a nonce that never reached the mempool
	if err := chain.ResyncNonce(ctx); err != nil {
		e.logger.Error("Failed to resync nonce after submit failure", zap.Error(err))
	}
	return nil, &ExecutionError{Reason: ReasonSubmitFailed, Err: lastErr}
}

// waitConfirmed polls for the receipt with bounded exponential backoff
func (e *Executor) waitConfirmed(ctx context.Context, chain Chain, txHash common.Hash) (*Receipt, error) {
	deadline := time.Now().Add(e.confirmTimeout)
	interval := 2 * time.Second

	for {
		receipt, err := chain.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, &ExecutionError{
					Reason: ReasonExecutionReverted,
					Err:    fmt.Errorf("transaction %s reverted", txHash.Hex()),
				}
			}
			return &Receipt{
				TxHash:      txHash,
				GasUsed:     receipt.GasUsed,
				BlockNumber: receipt.BlockNumber.Uint64(),
				ChainID:     chain.ChainID(),
			}, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			e.logger.Warn("Receipt poll failed", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
		}

		if time.Now().After(deadline) {
			return nil, &ExecutionError{
				Reason: ReasonConfirmationTimeout,
				Err:    fmt.Errorf("transaction %s not confirmed within %s", txHash.Hex(), e.confirmTimeout),
			}
		}

		select {
		case <-ctx.Done():
			return nil, &ExecutionError{Reason: ReasonConfirmationTimeout, Err: ctx.Err()}
		case <-time.After(interval):
		}
		if interval < 15*time.Second {
			interval *= 2
		}
	}
}
