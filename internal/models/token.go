// ABOUTME: ApprovalToken is the single-use credential gating the publish transition
// ABOUTME: Only the SHA-256 hash is ever persisted; the raw token is disclosed once
package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenTTL is how long an issued approval token stays redeemable.
const TokenTTL = 48 * time.Hour

// ApprovalToken tracks the lifecycle of one approval credential.
// ConsumedAt is set at most once, through the storage-level claim.
type ApprovalToken struct {
	TokenHash  string     `json:"token_hash"`
	DecisionID string     `json:"decision_id"`
	IssuedAt   time.Time  `json:"issued_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	ConsumedAt *time.Time `json:"consumed_at,omitempty"`
	// Notified is false until the raw token has been dispatched; an
	// unnotified token is not redeemable by anyone.
	Notified bool `json:"notified"`
}

// Expired reports whether the token is past its TTL at the given time.
func (t *ApprovalToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// Consumed reports whether the token has already been redeemed.
func (t *ApprovalToken) Consumed() bool {
	return t.ConsumedAt != nil
}

// NewRawToken generates a 32-byte URL-safe random token.
func NewRawToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashToken returns the hex SHA-256 digest of a raw token.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
