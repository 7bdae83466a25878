package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualClockAdvance(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	require.Equal(t, start, clock.Now())
	clock.Advance(90 * time.Minute)
	require.Equal(t, start.Add(90*time.Minute), clock.Now())
}

func TestSystemClockIsUTC(t *testing.T) {
	require.Equal(t, time.UTC, SystemClock{}.Now().Location())
}
