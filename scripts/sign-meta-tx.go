//go:build ignore
// +build ignore

// This script signs a test meta-transaction against a local relayer so the
// gasless endpoint can be exercised with curl.
// Run with: go run scripts/sign-meta-tx.go -to 0x... -data 0x... -nonce 0
// The user key is read from USER_PRIVATE_KEY.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/giankylabs/relayer/pkg/forwarder"
)

func main() {
	to := flag.String("to", "", "Target contract address")
	data := flag.String("data", "0x", "Hex-encoded call data")
	value := flag.String("value", "0", "Value in wei")
	gas := flag.Uint64("gas", 100000, "Gas limit for the inner call")
	nonce := flag.Int64("nonce", 0, "Forwarder nonce for the user (getNonce)")
	chainID := flag.Int64("chain-id", 80002, "Chain id of the forwarder deployment")
	forwarderAddr := flag.String("forwarder", "", "MinimalForwarder contract address")
	flag.Parse()

	if *to == "" || *forwarderAddr == "" {
		fmt.Fprintln(os.Stderr, "-to and -forwarder are required")
		os.Exit(1)
	}

	privHex := os.Getenv("USER_PRIVATE_KEY")
	if privHex == "" {
		fmt.Fprintln(os.Stderr, "USER_PRIVATE_KEY is not set")
		os.Exit(1)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key: %v\n", err)
		os.Exit(1)
	}
	from := crypto.PubkeyToAddress(key.PublicKey)

	callData, err := hexutil.Decode(*data)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid call data: %v\n", err)
		os.Exit(1)
	}

	weiValue, ok := new(big.Int).SetString(*value, 10)
	if !ok {
		fmt.Fprintln(os.Stderr, "Invalid value")
		os.Exit(1)
	}

	req := &forwarder.ForwardRequest{
		From:  from,
		To:    common.HexToAddress(*to),
		Value: weiValue,
		Gas:   *gas,
		Nonce: big.NewInt(*nonce),
		Data:  callData,
	}

	domain := forwarder.DefaultDomain(*chainID, common.HexToAddress(*forwarderAddr))
	signature, err := forwarder.Sign(domain, req, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Signing failed: %v\n", err)
		os.Exit(1)
	}

	body := map[string]any{
		"to":        *to,
		"data":      *data,
		"value":     *value,
		"gas":       *gas,
		"chain_id":  *chainID,
		"signature": signature,
	}
	bodyJSON, _ := json.MarshalIndent(body, "", "  ")

	fmt.Println("=== Signed Meta-Transaction ===")
	fmt.Println()
	fmt.Println("From:", from.Hex())
	fmt.Println()
	fmt.Println("Request body:")
	fmt.Println(string(bodyJSON))
	fmt.Println()
	fmt.Println("To relay it:")
	fmt.Println("curl -X POST http://localhost:8080/api/gasless/meta-transaction \\")
	fmt.Println("  -H \"Authorization: Bearer $TOKEN\" \\")
	fmt.Println("  -H 'Content-Type: application/json' \\")
	fmt.Println("  -d '" + string(bodyJSON) + "'")
}
