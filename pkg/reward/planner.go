package reward

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// tokenDecimals is shared by the native coin and the GIANKY ERC-20
const tokenDecimals = 18

const erc20ABIJSON = `[
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

const nftABIJSON = `[
	{
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "uri", "type": "string"}
		],
		"name": "safeMint",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

var (
	erc20ABI = mustParseABI(erc20ABIJSON)
	nftABI   = mustParseABI(nftABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI: %v", err))
	}
	return parsed
}

// BaseUnits scales a human-readable token amount to integer base units.
// Scaling goes through decimal arithmetic so an amount like 0.1 never loses
// precision; amounts that do not land on a whole base unit are rejected.
func BaseUnits(amount decimal.Decimal, decimals int32) (*big.Int, error) {
	scaled := amount.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s is not representable in %d decimals", amount, decimals)
	}
	if scaled.Sign() < 0 {
		return nil, fmt.Errorf("amount %s is negative", amount)
	}
	return scaled.BigInt(), nil
}

// Plan is the on-chain action fulfilling one reward: either a native value
// transfer (Data nil) or a contract call.
type Plan struct {
	To          common.Address
	Value       *big.Int
	Data        []byte
	Description string
}

// PlanNFTMint builds the safeMint call for a tier NFT
func PlanNFTMint(contract, recipient common.Address, metadataURI string) (*Plan, error) {
	data, err := nftABI.Pack("safeMint", recipient, metadataURI)
	if err != nil {
		return nil, fmt.Errorf("failed to pack safeMint call: %w", err)
	}
	return &Plan{
		To:          contract,
		Value:       big.NewInt(0),
		Data:        data,
		Description: "nft_mint",
	}, nil
}

// PlanNativeTransfer builds a native coin transfer to the recipient
func PlanNativeTransfer(recipient common.Address, amount decimal.Decimal) (*Plan, error) {
	value, err := BaseUnits(amount, tokenDecimals)
	if err != nil {
		return nil, err
	}
	return &Plan{
		To:          recipient,
		Value:       value,
		Description: "native_transfer",
	}, nil
}

// PlanTokenTransfer builds an ERC-20 transfer call to the recipient
func PlanTokenTransfer(contract, recipient common.Address, amount decimal.Decimal) (*Plan, error) {
	units, err := BaseUnits(amount, tokenDecimals)
	if err != nil {
		return nil, err
	}
	data, err := erc20ABI.Pack("transfer", recipient, units)
	if err != nil {
		return nil, fmt.Errorf("failed to pack transfer call: %w", err)
	}
	return &Plan{
		To:          contract,
		Value:       big.NewInt(0),
		Data:        data,
		Description: "token_transfer",
	}, nil
}
