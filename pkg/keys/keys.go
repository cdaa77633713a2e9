// Package keys handles loading and at-rest encryption of the relayer's
// signing key. The key never touches the database; it lives in config or in
// an encrypted file unlocked by a passphrase.
package keys

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/scrypt"
)

const saltSize = 16

// scrypt parameters, interactive-login strength
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

func deriveMasterKey(passphrase string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, 32)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return key, nil
}

// EncryptKey encrypts a 32-byte private key under a passphrase using
// scrypt-derived AES-256-GCM. Returns base64(salt || nonce || ciphertext).
func EncryptKey(privateKey []byte, passphrase string) (string, error) {
	if len(privateKey) != 32 {
		return "", fmt.Errorf("private key must be 32 bytes")
	}
	if passphrase == "" {
		return "", fmt.Errorf("passphrase must not be empty")
	}

	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	masterKey, err := deriveMasterKey(passphrase, salt)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return "", fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, privateKey, nil)

	payload := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	payload = append(payload, salt...)
	payload = append(payload, nonce...)
	payload = append(payload, ciphertext...)

	return base64.StdEncoding.EncodeToString(payload), nil
}

// DecryptKey reverses EncryptKey. A wrong passphrase fails GCM
// authentication rather than yielding garbage key bytes.
func DecryptKey(encoded, passphrase string) ([]byte, error) {
	payload, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("invalid encrypted key encoding: %w", err)
	}
	if len(payload) < saltSize {
		return nil, fmt.Errorf("encrypted key too short")
	}

	salt := payload[:saltSize]
	masterKey, err := deriveMasterKey(passphrase, salt)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(masterKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	rest := payload[saltSize:]
	if len(rest) < gcm.NonceSize() {
		return nil, fmt.Errorf("encrypted key too short")
	}
	nonce, ciphertext := rest[:gcm.NonceSize()], rest[gcm.NonceSize():]

	privateKey, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key: %w", err)
	}
	return privateKey, nil
}

// KeySource selects where the relayer key comes from
type KeySource struct {
	PrivateKeyHex    string
	EncryptedKeyFile string
	Passphrase       string
}

// Load returns the relayer signing key from hex config or the encrypted file
func (s KeySource) Load() (*ecdsa.PrivateKey, error) {
	if s.PrivateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(s.PrivateKeyHex, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid relayer private key: %w", err)
		}
		return key, nil
	}

	if s.EncryptedKeyFile == "" {
		return nil, fmt.Errorf("no relayer key configured")
	}

	encoded, err := os.ReadFile(s.EncryptedKeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read encrypted key file: %w", err)
	}
	keyBytes, err := DecryptKey(string(encoded), s.Passphrase)
	if err != nil {
		return nil, err
	}
	key, err := crypto.ToECDSA(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("invalid decrypted key: %w", err)
	}
	return key, nil
}
