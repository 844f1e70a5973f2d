// ABOUTME: Tests for the SQLite-backed audit log.
// ABOUTME: Validates schema creation, append order, and persistence across reopen.

package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteLog(t *testing.T) (*SQLiteLog, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "audit.db")
	log, err := NewSQLiteLog(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log, path
}

func TestSQLiteLog_AppendAndRecords(t *testing.T) {
	log, _ := newTestSQLiteLog(t)
	ctx := context.Background()

	err := log.Append(ctx, Record{
		Event:       EventChallengeIssued,
		Action:      "delete_database",
		ChallengeID: "c1",
		Reason:      "Sensitive action requires authentication",
	})
	require.NoError(t, err)

	records, err := log.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, EventChallengeIssued, r.Event)
	assert.Equal(t, "delete_database", r.Action)
	assert.Equal(t, "c1", r.ChallengeID)
	assert.Equal(t, "Sensitive action requires authentication", r.Reason)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Timestamp.IsZero())
}

func TestSQLiteLog_Empty(t *testing.T) {
	log, _ := newTestSQLiteLog(t)

	records, err := log.Records(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
}

func TestSQLiteLog_AppendOrder(t *testing.T) {
	log, _ := newTestSQLiteLog(t)
	ctx := context.Background()

	// Identical timestamps must not disturb append order
	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	events := []Event{EventChallengeIssued, EventProofInvalid, EventProofUnknown}
	for _, e := range events {
		require.NoError(t, log.Append(ctx, Record{Event: e, ChallengeID: "c1", Timestamp: ts}))
	}

	records, err := log.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, e := range events {
		assert.Equal(t, e, records[i].Event)
	}
}

func TestSQLiteLog_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	ctx := context.Background()

	log, err := NewSQLiteLog(path)
	require.NoError(t, err)
	require.NoError(t, log.Append(ctx, Record{Event: EventProofAccepted, ChallengeID: "c1"}))
	require.NoError(t, log.Close())

	reopened, err := NewSQLiteLog(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	records, err := reopened.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, EventProofAccepted, records[0].Event)
}
