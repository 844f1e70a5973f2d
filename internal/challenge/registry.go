// ABOUTME: Thread-safe registry of outstanding authentication challenges
// ABOUTME: Enforces TTL expiry and atomic single-use consumption under concurrency

package challenge

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/secret"
)

const (
	// DefaultTTL is how long an issued challenge remains valid.
	DefaultTTL = 5 * time.Minute

	// idBytes and nonceBytes size the random identifiers. 128 bits for the
	// id and 256 bits for the nonce make guessing infeasible.
	idBytes    = 16
	nonceBytes = 32

	// sweepInterval is how often the background sweep removes expired
	// entries. Lazy expiry on access is authoritative; the sweep only
	// bounds memory for challenges that are never consumed.
	sweepInterval = time.Minute
)

// Registry errors. A consumed, swept, or never-issued id all surface as
// ErrNotFound so callers cannot tell which case occurred.
var (
	ErrNotFound = errors.New("challenge not found")
	ErrExpired  = errors.New("challenge expired")
)

// Challenge represents one outstanding authentication attempt. Once consumed
// or expired it is removed from the registry and can never be verified again.
type Challenge struct {
	ID           string    `json:"id"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	RotatingCode string    `json:"rotating_code"`
	Nonce        string    `json:"nonce"`
}

// Config holds configuration for a Registry.
type Config struct {
	Secrets *secret.Store
	Audit   audit.Log
	Logger  *slog.Logger
	TTL     time.Duration    // defaults to DefaultTTL
	Now     func() time.Time // defaults to time.Now; injectable for tests
}

// Registry stores pending challenges keyed by id.
type Registry struct {
	secrets  *secret.Store
	auditLog audit.Log
	logger   *slog.Logger
	ttl      time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]Challenge

	done   chan struct{}
	closed bool
}

// NewRegistry creates a challenge registry and starts its background sweep.
func NewRegistry(cfg Config) (*Registry, error) {
	if cfg.Secrets == nil {
		return nil, errors.New("secret store is required")
	}
	if cfg.Audit == nil {
		return nil, errors.New("audit log is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	r := &Registry{
		secrets:  cfg.Secrets,
		auditLog: cfg.Audit,
		logger:   logger,
		ttl:      ttl,
		now:      now,
		pending:  make(map[string]Challenge),
		done:     make(chan struct{}),
	}
	go r.sweep()
	return r, nil
}

// Issue generates a new single-use challenge for the given action, stores it,
// and records a challenge_issued audit event.
func (r *Registry) Issue(ctx context.Context, action, reason string) (Challenge, error) {
	id, err := randomHex(idBytes)
	if err != nil {
		return Challenge{}, fmt.Errorf("generating challenge id: %w", err)
	}
	nonce, err := randomHex(nonceBytes)
	if err != nil {
		return Challenge{}, fmt.Errorf("generating challenge nonce: %w", err)
	}

	issuedAt := r.now().UTC()
	ch := Challenge{
		ID:           id,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(r.ttl),
		RotatingCode: r.secrets.CurrentRotatingCode(issuedAt),
		Nonce:        nonce,
	}

	r.mu.Lock()
	r.pending[ch.ID] = ch
	r.mu.Unlock()

	if err := r.auditLog.Append(ctx, audit.Record{
		Event:       audit.EventChallengeIssued,
		Action:      action,
		ChallengeID: ch.ID,
		Reason:      reason,
	}); err != nil {
		r.logger.Warn("failed to append audit record", "event", audit.EventChallengeIssued, "error", err)
	}

	r.logger.Info("challenge issued",
		"challenge_id", ch.ID,
		"action", action,
		"expires_at", ch.ExpiresAt,
	)
	return ch, nil
}

// Consume removes and returns the challenge with the given id. Returns
// ErrNotFound if it was never issued, already consumed, or swept, and
// ErrExpired (removing the entry) if it outlived its TTL. The atomic
// remove-and-return is what enforces single use: of any number of
// concurrent Consume calls for the same id, exactly one succeeds.
func (r *Registry) Consume(id string) (Challenge, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.pending[id]
	if !ok {
		return Challenge{}, ErrNotFound
	}
	delete(r.pending, id)

	if r.now().After(ch.ExpiresAt) {
		return Challenge{}, ErrExpired
	}
	return ch, nil
}

// Pending returns the number of outstanding challenges (for monitoring).
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// sweep runs in a background goroutine, periodically removing expired entries.
func (r *Registry) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.runSweep()
		case <-r.done:
			return
		}
	}
}

// runSweep removes all expired entries.
func (r *Registry) runSweep() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, ch := range r.pending {
		if now.After(ch.ExpiresAt) {
			delete(r.pending, id)
		}
	}
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.closed {
		close(r.done)
		r.closed = true
	}
}

// randomHex returns n cryptographically random bytes as lowercase hex.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
