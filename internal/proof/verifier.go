// ABOUTME: Proof verifier that recomputes the expected digest and tag for a challenge
// ABOUTME: Fails closed, compares in constant time, and audits every outcome

package proof

import (
	"context"
	"crypto/hmac"
	"errors"
	"log/slog"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/secret"
)

// Config holds configuration for a Verifier.
type Config struct {
	Secrets  *secret.Store
	Registry *challenge.Registry
	Audit    audit.Log
	Logger   *slog.Logger
}

// Verifier checks submitted proofs against stored challenges. Consuming the
// challenge happens before any cryptographic check, so a failed verification
// permanently discards the challenge; retries require a fresh issuance.
type Verifier struct {
	secrets  *secret.Store
	registry *challenge.Registry
	auditLog audit.Log
	logger   *slog.Logger
}

// NewVerifier creates a proof verifier.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.Secrets == nil {
		return nil, errors.New("secret store is required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("challenge registry is required")
	}
	if cfg.Audit == nil {
		return nil, errors.New("audit log is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Verifier{
		secrets:  cfg.Secrets,
		registry: cfg.Registry,
		auditLog: cfg.Audit,
		logger:   logger,
	}, nil
}

// Verify checks a proof against its challenge. Returns true only if the
// challenge exists, has not expired, and both the digest and the keyed tag
// match. Any other condition fails closed.
func (v *Verifier) Verify(ctx context.Context, p Proof) bool {
	ch, err := v.registry.Consume(p.ChallengeID)
	if err != nil {
		event := audit.EventProofUnknown
		if errors.Is(err, challenge.ErrExpired) {
			event = audit.EventProofExpired
		}
		v.record(ctx, event, p.ChallengeID)
		v.logger.Warn("proof rejected", "challenge_id", p.ChallengeID, "error", err)
		return false
	}

	secretBytes := v.secrets.LongTermSecret()

	// The digest check distinguishes a stale code or wrong nonce from a
	// secret mismatch in the audit trail. Callers only ever see a generic
	// rejection.
	expectedDigest := computeDigest(secretBytes, ch.RotatingCode, ch.Nonce)
	if !hmac.Equal([]byte(p.Digest), []byte(expectedDigest)) {
		v.record(ctx, audit.EventProofInvalid, p.ChallengeID)
		v.logger.Warn("proof digest mismatch", "challenge_id", p.ChallengeID)
		return false
	}

	expectedTag := computeTag(secretBytes, expectedDigest)
	if !hmac.Equal([]byte(p.AuthTag), []byte(expectedTag)) {
		v.record(ctx, audit.EventSignatureInvalid, p.ChallengeID)
		v.logger.Warn("proof auth tag mismatch", "challenge_id", p.ChallengeID)
		return false
	}

	v.record(ctx, audit.EventProofAccepted, p.ChallengeID)
	v.logger.Info("proof accepted", "challenge_id", p.ChallengeID)
	return true
}

// record appends an audit event, logging a warning if the append fails.
// A failed append never turns a rejection into an approval or vice versa.
func (v *Verifier) record(ctx context.Context, event audit.Event, challengeID string) {
	if err := v.auditLog.Append(ctx, audit.Record{
		Event:       event,
		ChallengeID: challengeID,
	}); err != nil {
		v.logger.Warn("failed to append audit record", "event", event, "error", err)
	}
}
