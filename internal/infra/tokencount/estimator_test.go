package tokencount

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/require"
)

func TestEstimatorFallsBackToHeuristic(t *testing.T) {
	loads := 0
	est := &Estimator{
		load: func() (*tiktoken.Tiktoken, error) {
			loads++
			return nil, errors.New("offline")
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	require.Equal(t, 0, est.Count(""))
	require.Equal(t, 1, est.Count("abc"))
	require.Equal(t, 2, est.Count("abcdefgh"))
	require.Equal(t, 1, est.Count("سلام"))
	require.Equal(t, 1, loads)
}
