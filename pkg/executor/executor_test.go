package executor

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/giankylabs/relayer/pkg/config"
	"github.com/giankylabs/relayer/pkg/forwarder"
	"github.com/giankylabs/relayer/pkg/gas"
)

func newTestExecutor(t *testing.T, chain *mockChain) (*Executor, *ecdsa.PrivateKey) {
	t.Helper()

	relayerKey, err := crypto.GenerateKey()
	require.NoError(t, err)

	policy := gas.NewPolicy(config.GasConfig{
		MaxGasPriceGwei:   50,
		MaxGasLimit:       500_000,
		ForwarderOverhead: 50_000,
	})
	exec := New(map[int64]Chain{chain.ChainID(): chain}, relayerKey, policy, config.RelayerConfig{
		DefaultChainID:      chain.ChainID(),
		ConfirmationTimeout: 5 * time.Second,
		SubmitRetries:       2,
	}, zap.NewNop())
	return exec, relayerKey
}

func signedIntent(t *testing.T, chain *mockChain, forwarderNonce int64) (*CallIntent, *ecdsa.PrivateKey) {
	t.Helper()

	userKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	from := crypto.PubkeyToAddress(userKey.PublicKey)
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	data := []byte{0xde, 0xad, 0xbe, 0xef}

	domain := forwarder.DefaultDomain(chain.ChainID(), chain.ForwarderAddress())
	sig, err := forwarder.Sign(domain, &forwarder.ForwardRequest{
		From:  from,
		To:    to,
		Value: big.NewInt(0),
		Gas:   100_000,
		Nonce: big.NewInt(forwarderNonce),
		Data:  data,
	}, userKey)
	require.NoError(t, err)

	return &CallIntent{
		From:      from,
		To:        to,
		Value:     big.NewInt(0),
		Data:      data,
		Gas:       100_000,
		Signature: sig,
		ChainID:   chain.ChainID(),
	}, userKey
}

func TestExecuteSuccess(t *testing.T) {
	chain := newMockChain()
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	receipt, err := exec.Execute(context.Background(), intent)
	require.NoError(t, err)

	assert.Equal(t, uint64(90_000), receipt.GasUsed)
	assert.Equal(t, uint64(1234), receipt.BlockNumber)
	assert.Equal(t, chain.ChainID(), receipt.ChainID)

	sent := chain.sentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, chain.ForwarderAddress(), *sent[0].To())
	assert.Equal(t, uint64(0), sent[0].Nonce())
	// forwarder overhead is added on top of the simulated estimate
	assert.Equal(t, uint64(150_000), sent[0].Gas())
}

func TestExecuteInvalidSignature(t *testing.T) {
	chain := newMockChain()
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	// authorize with a different user's key
	otherKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	domain := forwarder.DefaultDomain(chain.ChainID(), chain.ForwarderAddress())
	intent.Signature, err = forwarder.Sign(domain, &forwarder.ForwardRequest{
		From:  intent.From,
		To:    intent.To,
		Value: intent.Value,
		Gas:   intent.Gas,
		Nonce: big.NewInt(0),
		Data:  intent.Data,
	}, otherKey)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), intent)
	reason, ok := Reason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonInvalidSignature, reason)
	assert.Empty(t, chain.sentTransactions())
}

func TestExecuteStaleForwarderNonceRecovers(t *testing.T) {
	chain := newMockChain()
	exec, _ := newTestExecutor(t, chain)

	// user signed over nonce 1, first chain read returns the stale 0
	intent, _ := signedIntent(t, chain, 1)
	reads := 0
	chain.forwarderNonceFn = func(ctx context.Context, account common.Address) (*big.Int, error) {
		reads++
		if reads == 1 {
			return big.NewInt(0), nil
		}
		return big.NewInt(1), nil
	}

	_, err := exec.Execute(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, 2, reads)
}

func TestExecuteGasPriceRejected(t *testing.T) {
	chain := newMockChain()
	chain.suggestGasPriceFn = func(ctx context.Context) (*big.Int, error) {
		return big.NewInt(60_000_000_000), nil
	}
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	_, err := exec.Execute(context.Background(), intent)
	reason, ok := Reason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonGasPolicyRejected, reason)
	assert.ErrorIs(t, err, gas.ErrGasPriceTooHigh)
	assert.Empty(t, chain.sentTransactions())
}

func TestExecuteGasPriceAtCeilingAdmitted(t *testing.T) {
	chain := newMockChain()
	chain.suggestGasPriceFn = func(ctx context.Context) (*big.Int, error) {
		return big.NewInt(50_000_000_000), nil
	}
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	_, err := exec.Execute(context.Background(), intent)
	require.NoError(t, err)
}

func TestExecuteGasLimitRejected(t *testing.T) {
	chain := newMockChain()
	chain.estimateGasFn = func(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
		return 460_000, nil
	}
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	// 460k estimate plus 50k overhead exceeds the 500k cap
	_, err := exec.Execute(context.Background(), intent)
	reason, ok := Reason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonGasPolicyRejected, reason)
	assert.ErrorIs(t, err, gas.ErrGasLimitTooHigh)
}

func TestExecuteNonceTooLowResyncs(t *testing.T) {
	chain := newMockChain()
	attempts := 0
	chain.sendTransactionFn = func(ctx context.Context, tx *types.Transaction) error {
		attempts++
		if attempts == 1 {
			return errors.New("nonce too low")
		}
		return nil
	}
	resyncs := 0
	chain.resyncNonceFn = func(ctx context.Context) error {
		resyncs++
		return nil
	}
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	_, err := exec.Execute(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1, resyncs)
}

func TestExecuteTransientSubmitFailureReusesNonce(t *testing.T) {
	chain := newMockChain()
	attempts := 0
	chain.sendTransactionFn = func(ctx context.Context, tx *types.Transaction) error {
		attempts++
		if attempts == 1 {
			return errors.New("connection refused")
		}
		return nil
	}
	resyncs := 0
	chain.resyncNonceFn = func(ctx context.Context) error {
		resyncs++
		return nil
	}
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	_, err := exec.Execute(context.Background(), intent)
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 0, resyncs)

	// the failed send never reached the mempool, so the retry must reuse
	// its nonce rather than allocate a fresh one and leave a gap
	sent := chain.sentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, uint64(0), sent[0].Nonce())

	// the next submission continues the sequence without a hole
	_, err = exec.ExecuteDirect(context.Background(), 0, intent.To, nil, []byte{0x01})
	require.NoError(t, err)
	sent = chain.sentTransactions()
	require.Len(t, sent, 2)
	assert.Equal(t, uint64(1), sent[1].Nonce())
}

func TestExecuteSubmitExhaustsRetries(t *testing.T) {
	chain := newMockChain()
	submitErr := errors.New("connection refused")
	chain.sendTransactionFn = func(ctx context.Context, tx *types.Transaction) error {
		return submitErr
	}
	resyncs := 0
	chain.resyncNonceFn = func(ctx context.Context) error {
		resyncs++
		return nil
	}
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	_, err := exec.Execute(context.Background(), intent)
	reason, ok := Reason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonSubmitFailed, reason)
	assert.ErrorIs(t, err, submitErr)
	assert.Equal(t, 1, resyncs)
}

func TestExecuteReverted(t *testing.T) {
	chain := newMockChain()
	chain.transactionReceiptFn = func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(1)}, nil
	}
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)

	_, err := exec.Execute(context.Background(), intent)
	reason, ok := Reason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonExecutionReverted, reason)
}

func TestExecuteConfirmationTimeout(t *testing.T) {
	chain := newMockChain()
	chain.transactionReceiptFn = func(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
		return nil, ethereum.NotFound
	}

	relayerKey, err := crypto.GenerateKey()
	require.NoError(t, err)
	policy := gas.NewPolicy(config.GasConfig{MaxGasPriceGwei: 50, MaxGasLimit: 500_000, ForwarderOverhead: 50_000})
	exec := New(map[int64]Chain{chain.ChainID(): chain}, relayerKey, policy, config.RelayerConfig{
		DefaultChainID:      chain.ChainID(),
		ConfirmationTimeout: time.Millisecond,
		SubmitRetries:       1,
	}, zap.NewNop())
	intent, _ := signedIntent(t, chain, 0)

	_, err = exec.Execute(context.Background(), intent)
	reason, ok := Reason(err)
	require.True(t, ok)
	assert.Equal(t, ReasonConfirmationTimeout, reason)
}

func TestExecuteDirect(t *testing.T) {
	chain := newMockChain()
	exec, _ := newTestExecutor(t, chain)
	to := common.HexToAddress("0x2222222222222222222222222222222222222222")

	receipt, err := exec.ExecuteDirect(context.Background(), 0, to, nil, []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, chain.ChainID(), receipt.ChainID)

	sent := chain.sentTransactions()
	require.Len(t, sent, 1)
	assert.Equal(t, to, *sent[0].To())
}

func TestExecuteUnsupportedChain(t *testing.T) {
	chain := newMockChain()
	exec, _ := newTestExecutor(t, chain)
	intent, _ := signedIntent(t, chain, 0)
	intent.ChainID = 999

	_, err := exec.Execute(context.Background(), intent)
	assert.Error(t, err)
	assert.Empty(t, chain.sentTransactions())
}

func TestExecuteConcurrentUniqueNonces(t *testing.T) {
	chain := newMockChain()
	exec, _ := newTestExecutor(t, chain)
	to := common.HexToAddress("0x3333333333333333333333333333333333333333")

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := exec.ExecuteDirect(context.Background(), 0, to, nil, []byte{0x01})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sent := chain.sentTransactions()
	require.Len(t, sent, workers)
	seen := make(map[uint64]bool, workers)
	for _, tx := range sent {
		assert.False(t, seen[tx.Nonce()], "nonce %d used twice", tx.Nonce())
		seen[tx.Nonce()] = true
	}
}
