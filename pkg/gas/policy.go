// Package gas enforces the relayer's static gas policy. The ceilings are the
// relayer's only protection against a user intent draining its funds under
// inflated gas prices.
package gas

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"

	"github.com/giankylabs/relayer/pkg/config"
)

var (
	// ErrGasPriceTooHigh is returned when the network gas price exceeds the
	// configured ceiling. The caller may retry once the price drops.
	ErrGasPriceTooHigh = errors.New("gas price exceeds configured maximum")
	// ErrGasLimitTooHigh is returned when the requested gas limit exceeds the
	// configured maximum. Never retried as-is.
	ErrGasLimitTooHigh = errors.New("gas limit exceeds configured maximum")
)

// Estimator provides the chain-side inputs for gas decisions
type Estimator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Policy evaluates gas estimates and admission against static ceilings
type Policy struct {
	maxGasPrice *big.Int
	maxGasLimit uint64
	overhead    uint64
}

// NewPolicy creates a gas policy from configuration
func NewPolicy(cfg config.GasConfig) *Policy {
	return &Policy{
		maxGasPrice: GweiToWei(cfg.MaxGasPriceGwei),
		maxGasLimit: cfg.MaxGasLimit,
		overhead:    cfg.ForwarderOverhead,
	}
}

// GweiToWei converts a gwei amount to wei
func GweiToWei(gwei int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(gwei), big.NewInt(1_000_000_000))
}

// Overhead returns the fixed gas overhead added for forwarder dispatch
func (p *Policy) Overhead() uint64 {
	return p.overhead
}

// Estimate simulates the call on the chain and adds the forwarder dispatch
// overhead.
func (p *Policy) Estimate(ctx context.Context, chain Estimator, msg ethereum.CallMsg) (uint64, error) {
	estimate, err := chain.EstimateGas(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return estimate + p.overhead, nil
}

// CurrentPrice queries the live gas price
func (p *Policy) CurrentPrice(ctx context.Context, chain Estimator) (*big.Int, error) {
	price, err := chain.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}
	return price, nil
}

// Admit rejects a submission whose gas price or limit is out of bounds.
// The price ceiling is inclusive: a price equal to the maximum is admitted.
func (p *Policy) Admit(price *big.Int, gasLimit uint64) error {
	if price != nil && price.Cmp(p.maxGasPrice) > 0 {
		return fmt.Errorf("%w: price=%s max=%s", ErrGasPriceTooHigh, price, p.maxGasPrice)
	}
	if gasLimit > p.maxGasLimit {
		return fmt.Errorf("%w: limit=%d max=%d", ErrGasLimitTooHigh, gasLimit, p.maxGasLimit)
	}
	return nil
}

// EstimateCost returns the total wei cost of a submission at the given gas
// values.
func (p *Policy) EstimateCost(gasLimit uint64, price *big.Int) *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(gasLimit), price)
}
