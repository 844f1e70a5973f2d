// ABOUTME: Tests for the in-memory audit log.
// ABOUTME: Validates append ordering, ID/timestamp generation, and concurrent appends.

package audit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLog_Append(t *testing.T) {
	log := NewMemoryLog()

	err := log.Append(context.Background(), Record{
		Event:       EventChallengeIssued,
		Action:      "delete_database",
		ChallengeID: "abc123",
	})
	require.NoError(t, err)

	records, err := log.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	r := records[0]
	assert.Equal(t, EventChallengeIssued, r.Event)
	assert.Equal(t, "delete_database", r.Action)
	assert.Equal(t, "abc123", r.ChallengeID)
	assert.NotEmpty(t, r.ID)
	assert.False(t, r.Timestamp.IsZero())
}

func TestMemoryLog_PreservesExplicitFields(t *testing.T) {
	log := NewMemoryLog()

	ts := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	err := log.Append(context.Background(), Record{
		ID:        "fixed-id",
		Event:     EventProofAccepted,
		Timestamp: ts,
	})
	require.NoError(t, err)

	records, err := log.Records(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fixed-id", records[0].ID)
	assert.Equal(t, ts, records[0].Timestamp)
}

func TestMemoryLog_AppendOrder(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	events := []Event{EventChallengeIssued, EventProofAccepted, EventActionAllowedWithProof}
	for _, e := range events {
		require.NoError(t, log.Append(ctx, Record{Event: e, ChallengeID: "c1"}))
	}

	records, err := log.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, e := range events {
		assert.Equal(t, e, records[i].Event)
	}
}

func TestMemoryLog_RecordsReturnsCopy(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	require.NoError(t, log.Append(ctx, Record{Event: EventActionAllowed}))

	first, err := log.Records(ctx)
	require.NoError(t, err)
	first[0].Event = "tampered"

	second, err := log.Records(ctx)
	require.NoError(t, err)
	assert.Equal(t, EventActionAllowed, second[0].Event)
}

func TestMemoryLog_ConcurrentAppends(t *testing.T) {
	log := NewMemoryLog()
	ctx := context.Background()

	const writers = 20
	const perWriter = 50

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				_ = log.Append(ctx, Record{
					Event:  EventActionAllowed,
					Action: fmt.Sprintf("action-%d-%d", n, j),
				})
			}
		}(i)
	}
	wg.Wait()

	records, err := log.Records(ctx)
	require.NoError(t, err)
	assert.Len(t, records, writers*perWriter)
}
