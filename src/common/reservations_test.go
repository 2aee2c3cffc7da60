package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeferredEligible(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	assert.True(t, DeferredEligible(now.Add(10*24*time.Hour), now))
	// Exactly at the lead-time boundary still qualifies.
	assert.True(t, DeferredEligible(now.Add(8*24*time.Hour), now))
	assert.False(t, DeferredEligible(now.Add(8*24*time.Hour-time.Minute), now))
	assert.False(t, DeferredEligible(now.Add(3*24*time.Hour), now))
	assert.False(t, DeferredEligible(now, now))
}

func TestHoldDeadline(t *testing.T) {
	now := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	// A slot ten days out gets the full seven-day hold.
	far := now.Add(10 * 24 * time.Hour)
	assert.Equal(t, now.Add(7*24*time.Hour), HoldDeadline(far, now))

	// The hold never outlives the slot itself.
	near := now.Add(8 * 24 * time.Hour)
	assert.Equal(t, now.Add(7*24*time.Hour), HoldDeadline(near, now))

	closer := now.Add(5 * 24 * time.Hour)
	assert.Equal(t, closer, HoldDeadline(closer, now))
}
