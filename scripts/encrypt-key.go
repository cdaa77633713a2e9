//go:build ignore
// +build ignore

// This script encrypts a relayer private key for use with
// relayer.encrypted_key_file.
// Run with: go run scripts/encrypt-key.go -out relayer.key
// The private key is read from RELAYER_PRIVATE_KEY and the passphrase from
// RELAYER_KEY_PASSPHRASE so neither ends up in shell history.

package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/giankylabs/relayer/pkg/keys"
)

func main() {
	out := flag.String("out", "relayer.key", "Path to write the encrypted key file")
	flag.Parse()

	privHex := os.Getenv("RELAYER_PRIVATE_KEY")
	if privHex == "" {
		fmt.Fprintln(os.Stderr, "RELAYER_PRIVATE_KEY is not set")
		os.Exit(1)
	}
	passphrase := os.Getenv("RELAYER_KEY_PASSPHRASE")
	if passphrase == "" {
		fmt.Fprintln(os.Stderr, "RELAYER_KEY_PASSPHRASE is not set")
		os.Exit(1)
	}

	privBytes, err := hex.DecodeString(strings.TrimPrefix(privHex, "0x"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key hex: %v\n", err)
		os.Exit(1)
	}

	key, err := crypto.ToECDSA(privBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid private key: %v\n", err)
		os.Exit(1)
	}

	encrypted, err := keys.EncryptKey(privBytes, passphrase)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Encryption failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(*out, []byte(encrypted), 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", *out, err)
		os.Exit(1)
	}

	fmt.Println("=== Relayer Key Encrypted ===")
	fmt.Println()
	fmt.Println("Address:", crypto.PubkeyToAddress(key.PublicKey).Hex())
	fmt.Println("Written:", *out)
	fmt.Println()
	fmt.Println("To use this key:")
	fmt.Println("1. Update config.yaml: relayer.encrypted_key_file:", *out)
	fmt.Println("2. Set RELAYER_KEY_PASSPHRASE in the relayer's environment")
}
