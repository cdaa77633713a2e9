package forwarder

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Minimal forwarder ABI, matching the on-chain EIP-2771 MinimalForwarder
const forwarderABIJSON = `[
	{
		"inputs": [
			{
				"components": [
					{"internalType": "address", "name": "from", "type": "address"},
					{"internalType": "address", "name": "to", "type": "address"},
					{"internalType": "uint256", "name": "value", "type": "uint256"},
					{"internalType": "uint256", "name": "gas", "type": "uint256"},
					{"internalType": "uint256", "name": "nonce", "type": "uint256"},
					{"internalType": "bytes", "name": "data", "type": "bytes"}
				],
				"internalType": "struct MinimalForwarder.ForwardRequest",
				"name": "req",
				"type": "tuple"
			},
			{"internalType": "bytes", "name": "signature", "type": "bytes"}
		],
		"name": "execute",
		"outputs": [
			{"internalType": "bool", "name": "", "type": "bool"},
			{"internalType": "bytes", "name": "", "type": "bytes"}
		],
		"stateMutability": "payable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "from", "type": "address"}],
		"name": "getNonce",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

var forwarderABI = mustParseABI(forwarderABIJSON)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid forwarder ABI: %v", err))
	}
	return parsed
}

// abiForwardRequest mirrors the ForwardRequest tuple for ABI encoding
type abiForwardRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   *big.Int
	Nonce *big.Int
	Data  []byte
}

// PackExecute encodes the forwarder execute(req, signature) calldata
func PackExecute(req *ForwardRequest, signature string) ([]byte, error) {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}

	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	nonce := req.Nonce
	if nonce == nil {
		nonce = big.NewInt(0)
	}

	data, err := forwarderABI.Pack("execute", abiForwardRequest{
		From:  req.From,
		To:    req.To,
		Value: value,
		Gas:   new(big.Int).SetUint64(req.Gas),
		Nonce: nonce,
		Data:  req.Data,
	}, sigBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to pack execute call: %w", err)
	}
	return data, nil
}

// PackGetNonce encodes the forwarder getNonce(from) calldata
func PackGetNonce(from common.Address) ([]byte, error) {
	data, err := forwarderABI.Pack("getNonce", from)
	if err != nil {
		return nil, fmt.Errorf("failed to pack getNonce call: %w", err)
	}
	return data, nil
}

// UnpackNonce decodes the getNonce return value
func UnpackNonce(output []byte) (*big.Int, error) {
	values, err := forwarderABI.Unpack("getNonce", output)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack getNonce result: %w", err)
	}
	nonce, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected getNonce result type %T", values[0])
	}
	return nonce, nil
}
