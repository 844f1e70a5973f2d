// ABOUTME: Tests for the gatekeeper orchestrator covering classification and gating.
// ABOUTME: Includes the full issue-prove-replay scenario end to end.

package gatekeeper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatewarden/gatewarden/internal/audit"
	"github.com/gatewarden/gatewarden/internal/challenge"
	"github.com/gatewarden/gatewarden/internal/proof"
	"github.com/gatewarden/gatewarden/internal/secret"
)

type fixture struct {
	secrets    *secret.Store
	registry   *challenge.Registry
	gatekeeper *Gatekeeper
	log        *audit.MemoryLog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		secrets: secret.NewStore("gold-code", "daily-seed", secret.DefaultRotationPeriod),
		log:     audit.NewMemoryLog(),
	}

	registry, err := challenge.NewRegistry(challenge.Config{
		Secrets: f.secrets,
		Audit:   f.log,
		TTL:     5 * time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(registry.Close)
	f.registry = registry

	verifier, err := proof.NewVerifier(proof.Config{
		Secrets:  f.secrets,
		Registry: registry,
		Audit:    f.log,
	})
	require.NoError(t, err)

	gk, err := New(Config{
		Registry: registry,
		Verifier: verifier,
		Audit:    f.log,
	})
	require.NoError(t, err)
	f.gatekeeper = gk
	return f
}

func (f *fixture) events(t *testing.T) []audit.Event {
	t.Helper()
	records, err := f.log.Records(context.Background())
	require.NoError(t, err)
	events := make([]audit.Event, len(records))
	for i, r := range records {
		events[i] = r.Event
	}
	return events
}

func TestNew_Validation(t *testing.T) {
	f := newFixture(t)

	verifier, err := proof.NewVerifier(proof.Config{
		Secrets:  f.secrets,
		Registry: f.registry,
		Audit:    f.log,
	})
	require.NoError(t, err)

	_, err = New(Config{Verifier: verifier, Audit: f.log})
	assert.Error(t, err)

	_, err = New(Config{Registry: f.registry, Audit: f.log})
	assert.Error(t, err)

	_, err = New(Config{Registry: f.registry, Verifier: verifier})
	assert.Error(t, err)
}

func TestGatekeeper_Process_SafeActionAllowed(t *testing.T) {
	f := newFixture(t)

	res := f.gatekeeper.Process(context.Background(), "list_files", map[string]any{"path": "/home"}, nil)

	assert.Equal(t, StatusAllowed, res.Status)
	assert.Equal(t, "list_files", res.Action)
	assert.Nil(t, res.Challenge)
	assert.Equal(t, 0, f.registry.Pending(), "no challenge may be created for a safe action")
	assert.Equal(t, []audit.Event{audit.EventActionAllowed}, f.events(t))
}

func TestGatekeeper_Process_SensitiveActionBlocked(t *testing.T) {
	f := newFixture(t)

	res := f.gatekeeper.Process(context.Background(), "delete_database", map[string]any{"db": "production"}, nil)

	assert.Equal(t, StatusBlocked, res.Status)
	assert.Equal(t, ReasonAuthRequired, res.Reason)
	require.NotNil(t, res.Challenge)
	assert.NotEmpty(t, res.Challenge.ID)
	assert.NotEmpty(t, res.Challenge.Nonce)
	assert.NotEmpty(t, res.Challenge.RotatingCode)
	assert.Equal(t, Instruction, res.Instruction)
	assert.Equal(t, 1, f.registry.Pending())
	assert.Equal(t, []audit.Event{audit.EventChallengeIssued}, f.events(t))
}

func TestGatekeeper_Process_EachRequestGetsFreshChallenge(t *testing.T) {
	f := newFixture(t)

	first := f.gatekeeper.Process(context.Background(), "delete_database", nil, nil)
	second := f.gatekeeper.Process(context.Background(), "delete_database", nil, nil)

	require.NotNil(t, first.Challenge)
	require.NotNil(t, second.Challenge)
	assert.NotEqual(t, first.Challenge.ID, second.Challenge.ID)
	assert.NotEqual(t, first.Challenge.Nonce, second.Challenge.Nonce)
}

func TestGatekeeper_Process_ValidProofAllows(t *testing.T) {
	f := newFixture(t)

	blocked := f.gatekeeper.Process(context.Background(), "delete_database", nil, nil)
	require.NotNil(t, blocked.Challenge)
	ch := blocked.Challenge

	p := proof.Build(f.secrets.LongTermSecret(), ch.ID, ch.RotatingCode, ch.Nonce)
	res := f.gatekeeper.Process(context.Background(), "delete_database", nil, &p)

	assert.Equal(t, StatusAllowed, res.Status)
	assert.Equal(t, ReasonProofValidated, res.Reason)
	assert.Equal(t, []audit.Event{
		audit.EventChallengeIssued,
		audit.EventProofAccepted,
		audit.EventActionAllowedWithProof,
	}, f.events(t))
}

func TestGatekeeper_Process_InvalidProofBlocked(t *testing.T) {
	f := newFixture(t)

	blocked := f.gatekeeper.Process(context.Background(), "execute_shell", nil, nil)
	require.NotNil(t, blocked.Challenge)

	p := proof.Build([]byte("wrong-secret"), blocked.Challenge.ID, blocked.Challenge.RotatingCode, blocked.Challenge.Nonce)
	res := f.gatekeeper.Process(context.Background(), "execute_shell", nil, &p)

	assert.Equal(t, StatusBlocked, res.Status)
	assert.Equal(t, ReasonInvalidProof, res.Reason)
	assert.Nil(t, res.Challenge, "a rejected proof does not mint a new challenge")
}

func TestGatekeeper_Scenario_ProveReplayAndForge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Issue challenge C1 for delete_database and answer it correctly.
	blocked := f.gatekeeper.Process(ctx, "delete_database", map[string]any{"db": "production"}, nil)
	require.Equal(t, StatusBlocked, blocked.Status)
	c1 := blocked.Challenge
	require.NotNil(t, c1)

	p1 := proof.Build(f.secrets.LongTermSecret(), c1.ID, c1.RotatingCode, c1.Nonce)
	allowed := f.gatekeeper.Process(ctx, "delete_database", nil, &p1)
	require.Equal(t, StatusAllowed, allowed.Status)

	// Replaying P1 must be blocked: the challenge no longer exists.
	replayed := f.gatekeeper.Process(ctx, "delete_database", nil, &p1)
	assert.Equal(t, StatusBlocked, replayed.Status)
	assert.Equal(t, ReasonInvalidProof, replayed.Reason)

	// Issue C2 and attack it with an all-zero digest and tag.
	blocked2 := f.gatekeeper.Process(ctx, "delete_database", nil, nil)
	c2 := blocked2.Challenge
	require.NotNil(t, c2)

	forged := proof.Proof{
		ChallengeID: c2.ID,
		Digest:      "0000000000000000000000000000000000000000000000000000000000000000",
		AuthTag:     "0000000000000000000000000000000000000000000000000000000000000000",
	}
	res := f.gatekeeper.Process(ctx, "delete_database", nil, &forged)
	assert.Equal(t, StatusBlocked, res.Status)

	// C2 was consumed by the forged attempt; even a correct proof is now useless.
	late := proof.Build(f.secrets.LongTermSecret(), c2.ID, c2.RotatingCode, c2.Nonce)
	res = f.gatekeeper.Process(ctx, "delete_database", nil, &late)
	assert.Equal(t, StatusBlocked, res.Status)
	assert.Equal(t, 0, f.registry.Pending())
}

func TestGatekeeper_SensitiveActions_Defaults(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{
		"access_credentials",
		"delete_database",
		"execute_shell",
		"modify_system",
	}, f.gatekeeper.SensitiveActions())
	assert.True(t, f.gatekeeper.IsSensitive("execute_shell"))
	assert.False(t, f.gatekeeper.IsSensitive("list_files"))
}

func TestGatekeeper_SensitiveActions_Custom(t *testing.T) {
	f := newFixture(t)

	verifier, err := proof.NewVerifier(proof.Config{
		Secrets:  f.secrets,
		Registry: f.registry,
		Audit:    f.log,
	})
	require.NoError(t, err)

	gk, err := New(Config{
		Registry:         f.registry,
		Verifier:         verifier,
		Audit:            f.log,
		SensitiveActions: []string{"drop_table"},
	})
	require.NoError(t, err)

	assert.True(t, gk.IsSensitive("drop_table"))
	assert.False(t, gk.IsSensitive("delete_database"))
}

func TestGatekeeper_Result_NeverLeaksSecret(t *testing.T) {
	f := newFixture(t)

	res := f.gatekeeper.Process(context.Background(), "delete_database", nil, nil)
	require.NotNil(t, res.Challenge)

	assert.NotContains(t, res.Challenge.RotatingCode, "gold-code")
	assert.NotContains(t, res.Challenge.Nonce, "gold-code")
	assert.NotContains(t, res.Instruction, "gold-code")
}
