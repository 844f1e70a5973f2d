// ABOUTME: Secret store holding the long-term secret and deriving rotating codes
// ABOUTME: Codes are a truncated hash of a per-period seed, deterministic per period

package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// DefaultRotationPeriod is how often the rotating code changes.
const DefaultRotationPeriod = 24 * time.Hour

// rotatingCodeLen is the length in hex characters of a rotating code.
const rotatingCodeLen = 32

// Store owns the long-term secret and the rotating-code derivation.
// It has no mutable state and is safe for concurrent use.
type Store struct {
	secret []byte
	seed   string
	period time.Duration
}

// NewStore creates a store for the given long-term secret and rotating-code
// seed. A non-positive period falls back to DefaultRotationPeriod.
func NewStore(longTermSecret, rotatingSeed string, period time.Duration) *Store {
	if period <= 0 {
		period = DefaultRotationPeriod
	}
	return &Store{
		secret: []byte(longTermSecret),
		seed:   rotatingSeed,
		period: period,
	}
}

// CurrentRotatingCode derives the rotating code for the period containing
// the given instant. For the default daily period the label is the UTC
// calendar date, matching what a detached secure device derives on its own.
func (s *Store) CurrentRotatingCode(at time.Time) string {
	sum := sha256.Sum256([]byte(s.seed + s.periodLabel(at)))
	return hex.EncodeToString(sum[:])[:rotatingCodeLen]
}

// periodLabel maps an instant to the stable label of its rotation period.
func (s *Store) periodLabel(at time.Time) string {
	at = at.UTC()
	if s.period == DefaultRotationPeriod {
		return at.Format("2006-01-02")
	}
	return at.Truncate(s.period).Format(time.RFC3339)
}

// LongTermSecret returns the raw secret. Callers must never serialize it
// into a response or log entry.
func (s *Store) LongTermSecret() []byte {
	return s.secret
}
