// ABOUTME: Orchestrator that classifies actions and gates sensitive ones behind proofs
// ABOUTME: Delegates to the challenge registry and proof verifier, auditing every decision

package gatekeeper

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/proof"
)

// Result statuses and caller-visible reasons. Rejection reasons are
// deliberately generic: the specific failure cause lives only in the audit
// trail, never in the response.
const (
	StatusAllowed = "allowed"
	StatusBlocked = "blocked"

	ReasonAuthRequired   = "Authentication required"
	ReasonInvalidProof   = "Invalid authentication proof"
	ReasonProofValidated = "Proof validated"

	// Instruction accompanies every blocked-awaiting-proof response.
	Instruction = "Complete the out-of-band authentication challenge on your secure device"
)

// DefaultSensitiveActions is the sensitive set used when none is configured.
var DefaultSensitiveActions = []string{
	"delete_database",
	"execute_shell",
	"access_credentials",
	"modify_system",
}

// ChallengeInfo is the public view of a challenge returned to the caller.
// It intentionally carries no secret material: the rotating code is
// disclosed so the caller can convey it to the human, and is worthless
// without the long-term secret.
type ChallengeInfo struct {
	ID           string    `json:"id"`
	RotatingCode string    `json:"rotating_code"`
	Nonce        string    `json:"nonce"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Result is the outcome of processing one action request.
type Result struct {
	Status      string         `json:"status"`
	Action      string         `json:"action,omitempty"`
	Reason      string         `json:"reason,omitempty"`
	Challenge   *ChallengeInfo `json:"challenge,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
}

// Config holds configuration for a Gatekeeper.
type Config struct {
	Registry *challenge.Registry
	Verifier *proof.Verifier
	Audit    audit.Log
	Logger   *slog.Logger

	// SensitiveActions is the set of action names requiring a proof.
	// Defaults to DefaultSensitiveActions when empty.
	SensitiveActions []string
}

// Gatekeeper gates action execution behind out-of-band authentication.
type Gatekeeper struct {
	registry  *challenge.Registry
	verifier  *proof.Verifier
	auditLog  audit.Log
	logger    *slog.Logger
	sensitive map[string]struct{}
}

// New creates a gatekeeper.
func New(cfg Config) (*Gatekeeper, error) {
	if cfg.Registry == nil {
		return nil, errors.New("challenge registry is required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("proof verifier is required")
	}
	if cfg.Audit == nil {
		return nil, errors.New("audit log is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	actions := cfg.SensitiveActions
	if len(actions) == 0 {
		actions = DefaultSensitiveActions
	}
	sensitive := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		sensitive[a] = struct{}{}
	}

	return &Gatekeeper{
		registry:  cfg.Registry,
		verifier:  cfg.Verifier,
		auditLog:  cfg.Audit,
		logger:    logger,
		sensitive: sensitive,
	}, nil
}

// IsSensitive reports whether the action requires authentication.
func (g *Gatekeeper) IsSensitive(action string) bool {
	_, ok := g.sensitive[action]
	return ok
}

// SensitiveActions returns the configured sensitive action names, sorted.
func (g *Gatekeeper) SensitiveActions() []string {
	actions := make([]string, 0, len(g.sensitive))
	for a := range g.sensitive {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

// Process decides whether an action may proceed. Non-sensitive actions are
// allowed immediately. Sensitive actions without a proof get a fresh
// challenge and are blocked; with a proof, the verdict follows verification.
// Params are accepted for transparency in logs but never influence the
// decision.
func (g *Gatekeeper) Process(ctx context.Context, action string, params map[string]any, p *proof.Proof) Result {
	if !g.IsSensitive(action) {
		g.record(ctx, audit.Record{Event: audit.EventActionAllowed, Action: action})
		g.logger.Info("action allowed", "action", action)
		return Result{Status: StatusAllowed, Action: action}
	}

	if p == nil {
		ch, err := g.registry.Issue(ctx, action, "Sensitive action requires authentication")
		if err != nil {
			// Fail closed: if a challenge cannot be issued the action
			// stays blocked with no challenge to answer.
			g.logger.Error("failed to issue challenge", "action", action, "error", err)
			return Result{Status: StatusBlocked, Reason: ReasonAuthRequired}
		}
		g.logger.Info("action blocked pending authentication",
			"action", action,
			"challenge_id", ch.ID,
		)
		return Result{
			Status: StatusBlocked,
			Reason: ReasonAuthRequired,
			Challenge: &ChallengeInfo{
				ID:           ch.ID,
				RotatingCode: ch.RotatingCode,
				Nonce:        ch.Nonce,
				ExpiresAt:    ch.ExpiresAt,
			},
			Instruction: Instruction,
		}
	}

	if g.verifier.Verify(ctx, *p) {
		g.record(ctx, audit.Record{
			Event:       audit.EventActionAllowedWithProof,
			Action:      action,
			ChallengeID: p.ChallengeID,
		})
		g.logger.Info("action allowed with proof", "action", action, "challenge_id", p.ChallengeID)
		return Result{Status: StatusAllowed, Action: action, Reason: ReasonProofValidated}
	}

	// The verifier already audited the specific rejection cause.
	return Result{Status: StatusBlocked, Reason: ReasonInvalidProof}
}

// record appends an audit entry, logging on failure. An audit append error
// never changes the authorization outcome.
func (g *Gatekeeper) record(ctx context.Context, r audit.Record) {
	if err := g.auditLog.Append(ctx, r); err != nil {
		g.logger.Warn("failed to append audit record", "event", r.Event, "error", err)
	}
}
