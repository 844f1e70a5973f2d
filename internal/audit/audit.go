// ABOUTME: Audit event model and the in-memory append-only log implementation
// ABOUTME: Records every challenge and verification outcome for later review

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event identifies an auditable authorization event.
type Event string

const (
	EventChallengeIssued        Event = "challenge_issued"
	EventProofUnknown           Event = "proof_unknown"
	EventProofExpired           Event = "proof_expired"
	EventProofInvalid           Event = "proof_invalid"
	EventSignatureInvalid       Event = "signature_invalid"
	EventProofAccepted          Event = "proof_accepted"
	EventActionAllowed          Event = "action_allowed"
	EventActionAllowedWithProof Event = "action_allowed_with_proof"
)

// Record is a single audit log entry. Records are append-only: once written
// they are never mutated or deleted, and order reflects issuance order.
type Record struct {
	ID          string    `json:"id"`
	Event       Event     `json:"event"`
	Action      string    `json:"action,omitempty"`
	ChallengeID string    `json:"challenge_id,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Log is an append-only ordered record of authorization events.
// Implementations must be safe for concurrent writers.
type Log interface {
	Append(ctx context.Context, r Record) error
	Records(ctx context.Context) ([]Record, error)
}

// MemoryLog is the default in-process Log. Entries live for the lifetime of
// the process and are returned in append order.
type MemoryLog struct {
	mu      sync.Mutex
	records []Record
}

// NewMemoryLog creates an empty in-memory audit log.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{}
}

// Append adds a record to the log. Generates ID and Timestamp if not set.
func (l *MemoryLog) Append(_ context.Context, r Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now().UTC()
	}

	l.mu.Lock()
	l.records = append(l.records, r)
	l.mu.Unlock()
	return nil
}

// Records returns a copy of all entries in append order.
func (l *MemoryLog) Records(_ context.Context) ([]Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out, nil
}
