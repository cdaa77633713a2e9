package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer issues and verifies HS256 session tokens carrying the
// authenticated wallet address.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a new token issuer
func NewTokenIssuer(secret, issuer string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
	}
}

// Issue creates a signed session token for the given wallet address
func (t *TokenIssuer) Issue(walletAddress string) (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"wallet_address": NormalizeAddress(walletAddress),
		"iss":            t.issuer,
		"iat":            now.Unix(),
		"exp":            now.Add(t.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a session token and returns the wallet address it carries
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid claims type")
	}

	if t.issuer != "" {
		iss, ok := claims["iss"].(string)
		if !ok || iss != t.issuer {
			return "", fmt.Errorf("invalid issuer")
		}
	}

	wallet, ok := claims["wallet_address"].(string)
	if !ok || wallet == "" {
		return "", fmt.Errorf("missing wallet_address claim")
	}

	return wallet, nil
}
