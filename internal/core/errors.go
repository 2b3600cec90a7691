// ABOUTME: Sentinel errors for token redemption outcomes
// ABOUTME: Mapped to HTTP statuses by the approval API server
package core

import "errors"

var (
	// ErrTokenNotFound means no token matches the presented value.
	ErrTokenNotFound = errors.New("approval token not found")

	// ErrTokenExpired means the token's validity window has passed.
	ErrTokenExpired = errors.New("approval token expired")

	// ErrTokenAlreadyUsed means the token was consumed by an earlier request.
	ErrTokenAlreadyUsed = errors.New("approval token already used")
)
