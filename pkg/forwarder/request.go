// Package forwarder models EIP-2771 meta-transaction forward requests and the
// typed-data hashing the on-chain MinimalForwarder verifies against. The
// off-chain hash construction must match the contract byte for byte or every
// relayed transaction fails verification on-chain.
package forwarder

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// ForwardRequest is the user-signed intent relayed through the forwarder.
// Nonce is the forwarder's per-user logical nonce, not the relayer's own
// transaction nonce.
type ForwardRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   uint64
	Nonce *big.Int
	Data  []byte
}

// Domain identifies the forwarder deployment the typed data is bound to
type Domain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract common.Address
}

// DefaultDomain returns the domain of an OpenZeppelin MinimalForwarder deployment
func DefaultDomain(chainID int64, contract common.Address) Domain {
	return Domain{
		Name:              "MinimalForwarder",
		Version:           "0.0.1",
		ChainID:           chainID,
		VerifyingContract: contract,
	}
}

// TypedHash computes the EIP-712 digest of the forward request under the
// given domain.
func TypedHash(domain Domain, req *ForwardRequest) ([]byte, error) {
	value := req.Value
	if value == nil {
		value = big.NewInt(0)
	}
	nonce := req.Nonce
	if nonce == nil {
		nonce = big.NewInt(0)
	}

	typedData := apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": {
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"ForwardRequest": {
				{Name: "from", Type: "address"},
				{Name: "to", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "gas", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "data", Type: "bytes"},
			},
		},
		PrimaryType: "ForwardRequest",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           math.NewHexOrDecimal256(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":  req.From.Hex(),
			"to":    req.To.Hex(),
			"value": (*math.HexOrDecimal256)(value),
			"gas":   (*math.HexOrDecimal256)(new(big.Int).SetUint64(req.Gas)),
			"nonce": (*math.HexOrDecimal256)(nonce),
			"data":  hexutil.Encode(req.Data),
		},
	}

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return digest, nil
}

// Sign produces the user authorization signature over the request's typed
// hash. Used by tests and tooling; production signatures come from wallets.
func Sign(domain Domain, req *ForwardRequest, key *ecdsa.PrivateKey) (string, error) {
	digest, err := TypedHash(domain, req)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("failed to sign request: %w", err)
	}
	// crypto.Sign yields v in {0, 1}; the on-chain ECDSA.recover wants {27, 28}
	sig[64] += 27
	return "0x" + hex.EncodeToString(sig), nil
}

// VerifyTyped reports whether signature authorizes req under domain and was
// produced by signer. Malformed signatures verify as false, never as errors.
func VerifyTyped(domain Domain, req *ForwardRequest, signature string, signer common.Address) bool {
	sigBytes, err := hex.DecodeString(strings.TrimPrefix(signature, "0x"))
	if err != nil || len(sigBytes) != 65 {
		return false
	}
	if sigBytes[64] >= 27 {
		sigBytes[64] -= 27
	}

	digest, err := TypedHash(domain, req)
	if err != nil {
		return false
	}

	pubKey, err := crypto.SigToPub(digest, sigBytes)
	if err != nil {
		return false
	}

	return crypto.PubkeyToAddress(*pubKey) == signer
}
