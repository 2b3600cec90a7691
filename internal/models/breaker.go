// ABOUTME: BreakerState is the persisted circuit breaker row guarding the publish path
// ABOUTME: While open, no new candidate work is admitted until a probe or manual reset
package models

import "time"

// Breaker reason codes.
const (
	BreakerReasonFailures = "consecutive_publish_failures"
	BreakerReasonAnomaly  = "anomaly_signal"
)

// BreakerState is a singleton row in the state store.
type BreakerState struct {
	Open                bool      `json:"open"`
	OpenedAt            time.Time `json:"opened_at"`
	Reason              string    `json:"reason,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// CooledDown reports whether the open breaker has been open for at least
// the cool-down window, making it eligible for a probe publish.
func (b *BreakerState) CooledDown(now time.Time, cooldown time.Duration) bool {
	return b.Open && now.Sub(b.OpenedAt) >= cooldown
}
