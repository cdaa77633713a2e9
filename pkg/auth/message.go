package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuthMessage builds the login challenge text a wallet signs to authenticate.
// Signing it costs no gas and triggers no transaction.
func AuthMessage(walletAddress, nonce string) string {
	if nonce == "" {
		nonce = uuid.NewString()
	}
	return fmt.Sprintf(`Welcome to Gianky!

Sign this message to authenticate with your wallet.

Wallet: %s
Nonce: %s
Timestamp: %s

This request will not trigger a blockchain transaction or cost any gas fees.`,
		walletAddress, nonce, time.Now().UTC().Format(time.RFC3339))
}
