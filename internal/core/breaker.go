// ABOUTME: Circuit breaker guarding publish actions against shadowban signals
// ABOUTME: Opens after consecutive failures and allows a single probe after cooldown
package core

import (
	"fmt"
	"log"
	"time"

	"github.com/harper/engage-standalone/internal/config"
	"github.com/harper/engage-standalone/internal/models"
	"github.com/harper/engage-standalone/internal/storage"
)

// Breaker wraps the persisted breaker state with threshold and cooldown
// policy. All counting is done in the store so concurrent processes see
// one consistent failure streak.
type Breaker struct {
	cfg   *config.Config
	store *storage.Storage
}

func NewBreaker(cfg *config.Config, store *storage.Storage) *Breaker {
	return &Breaker{cfg: cfg, store: store}
}

func (b *Breaker) State() (*models.BreakerState, error) {
	return b.store.Breaker.Get()
}

// Open reports whether the breaker currently blocks publishing.
func (b *Breaker) Open() (bool, error) {
	state, err := b.store.Breaker.Get()
	if err != nil {
		return false, fmt.Errorf("loading breaker state: %w", err)
	}
	return state.Open, nil
}

// CanProbe reports whether the breaker is open but cooled down enough to
// allow one trial publish.
func (b *Breaker) CanProbe(now time.Time) (bool, error) {
	state, err := b.store.Breaker.Get()
	if err != nil {
		return false, fmt.Errorf("loading breaker state: %w", err)
	}
	return state.Open && state.CooledDown(now, b.cfg.BreakerCooldown), nil
}

// RecordFailure counts a publish failure and opens the breaker when the
// streak reaches the configured threshold.
func (b *Breaker) RecordFailure(now time.Time) error {
	state, err := b.store.Breaker.RecordFailure(b.cfg.BreakerThreshold, now)
	if err != nil {
		return err
	}
	if state.Open && state.ConsecutiveFailures == b.cfg.BreakerThreshold {
		log.Printf("[Breaker] Opened after %d consecutive publish failures", state.ConsecutiveFailures)
	}
	return nil
}

// RecordSuccess resets the failure streak and closes the breaker.
func (b *Breaker) RecordSuccess(now time.Time) error {
	return b.store.Breaker.RecordSuccess(now)
}

// Trip opens the breaker immediately, bypassing the failure count.
func (b *Breaker) Trip(reason string, now time.Time) error {
	return b.store.Breaker.Trip(reason, now)
}

// Reset closes the breaker and clears the streak.
func (b *Breaker) Reset(now time.Time) error {
	return b.store.Breaker.Reset(now)
}
