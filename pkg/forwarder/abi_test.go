package forwarder

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackExecute(t *testing.T) {
	sig := "0x" + hex.EncodeToString(make([]byte, 65))

	data, err := PackExecute(testRequest(), sig)
	require.NoError(t, err)

	method, err := forwarderABI.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "execute", method.Name)

	args, err := method.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	require.Len(t, args, 2)
	assert.Equal(t, make([]byte, 65), args[1])
}

func TestPackExecuteInvalidSignature(t *testing.T) {
	_, err := PackExecute(testRequest(), "0xzz")
	assert.Error(t, err)
}

func TestGetNonceRoundTrip(t *testing.T) {
	from := common.HexToAddress("0x1111111111111111111111111111111111111111")

	data, err := PackGetNonce(from)
	require.NoError(t, err)

	method, err := forwarderABI.MethodById(data[:4])
	require.NoError(t, err)
	assert.Equal(t, "getNonce", method.Name)

	output, err := method.Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)

	nonce, err := UnpackNonce(output)
	require.NoError(t, err)
	assert.Equal(t, int64(42), nonce.Int64())
}

func TestUnpackNonceGarbage(t *testing.T) {
	_, err := UnpackNonce([]byte{0x01, 0x02})
	assert.Error(t, err)
}
