package scheduler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAddRejectsBadSpec(t *testing.T) {
	s := New(context.Background(), zap.NewNop())
	err := s.Add("every sometimes", "ingest", func(ctx context.Context) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest")
}

func TestRunAllFiresEachTaskOnce(t *testing.T) {
	s := New(context.Background(), zap.NewNop())

	var ingests, sweeps int
	require.NoError(t, s.Add("@every 1h", "ingest", func(ctx context.Context) error {
		ingests++
		return nil
	}))
	require.NoError(t, s.Add("@every 6h", "sweep", func(ctx context.Context) error {
		sweeps++
		return errors.New("boom") // failures are logged, not propagated
	}))

	s.RunAll()
	s.RunAll()
	assert.Equal(t, 2, ingests)
	assert.Equal(t, 2, sweeps)
}

func TestCancelledContextStopsTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, zap.NewNop())

	ran := false
	require.NoError(t, s.Add("@every 1h", "aggregate", func(ctx context.Context) error {
		ran = true
		return nil
	}))

	cancel()
	s.RunAll()
	assert.False(t, ran, "tasks do not start after shutdown began")
}
