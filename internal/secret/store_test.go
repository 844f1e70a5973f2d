// ABOUTME: Tests for rotating code derivation and secret handling.
// ABOUTME: Validates determinism, period boundaries, and device parity.

package secret

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStore_CurrentRotatingCode_Deterministic(t *testing.T) {
	s := NewStore("gold-code", "daily-seed", DefaultRotationPeriod)

	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	first := s.CurrentRotatingCode(at)
	second := s.CurrentRotatingCode(at)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestStore_CurrentRotatingCode_StableWithinDay(t *testing.T) {
	s := NewStore("gold-code", "daily-seed", DefaultRotationPeriod)

	morning := time.Date(2026, 3, 14, 0, 0, 1, 0, time.UTC)
	evening := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, s.CurrentRotatingCode(morning), s.CurrentRotatingCode(evening))
}

func TestStore_CurrentRotatingCode_ChangesAcrossDays(t *testing.T) {
	s := NewStore("gold-code", "daily-seed", DefaultRotationPeriod)

	today := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	tomorrow := today.Add(24 * time.Hour)

	assert.NotEqual(t, s.CurrentRotatingCode(today), s.CurrentRotatingCode(tomorrow))
}

func TestStore_CurrentRotatingCode_DependsOnSeed(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	a := NewStore("gold-code", "seed-a", DefaultRotationPeriod)
	b := NewStore("gold-code", "seed-b", DefaultRotationPeriod)

	assert.NotEqual(t, a.CurrentRotatingCode(at), b.CurrentRotatingCode(at))
}

func TestStore_CurrentRotatingCode_DeviceParity(t *testing.T) {
	// An independently constructed store (the secure device) must derive the
	// same code for the same period with no state shared beyond the seed.
	verifier := NewStore("gold-code", "daily-seed", DefaultRotationPeriod)
	device := NewStore("gold-code", "daily-seed", DefaultRotationPeriod)

	at := time.Date(2026, 3, 14, 18, 30, 0, 0, time.UTC)
	assert.Equal(t, verifier.CurrentRotatingCode(at), device.CurrentRotatingCode(at))
}

func TestStore_CurrentRotatingCode_CustomPeriod(t *testing.T) {
	s := NewStore("gold-code", "daily-seed", time.Hour)

	inHour := time.Date(2026, 3, 14, 12, 5, 0, 0, time.UTC)
	sameHour := time.Date(2026, 3, 14, 12, 55, 0, 0, time.UTC)
	nextHour := time.Date(2026, 3, 14, 13, 5, 0, 0, time.UTC)

	assert.Equal(t, s.CurrentRotatingCode(inHour), s.CurrentRotatingCode(sameHour))
	assert.NotEqual(t, s.CurrentRotatingCode(inHour), s.CurrentRotatingCode(nextHour))
}

func TestStore_LongTermSecret(t *testing.T) {
	s := NewStore("gold-code", "daily-seed", 0)
	assert.Equal(t, []byte("gold-code"), s.LongTermSecret())
}
