package jobs_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thetyagiayush/warhol-ringmaster/internal/jobs"
	"go.uber.org/zap"
)

func TestScheduler_AddJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("b", "@every 1h", func() {}))
	require.NoError(t, s.AddJob("a", "*/5 * * * *", func() {}))
	require.NoError(t, s.AddJob("c", "0 */5 * * * *", func() {}))

	assert.Equal(t, []string{"a", "b", "c"}, s.JobNames())

	err := s.AddJob("a", "@hourly", func() {})
	assert.ErrorContains(t, err, "already exists")
	assert.Equal(t, []string{"a", "b", "c"}, s.JobNames())
}

func TestScheduler_InvalidExpression(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	err := s.AddJob("broken", "not a cron", func() {})
	assert.Error(t, err)
	assert.Empty(t, s.JobNames())
}

func TestScheduler_RunsJob(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())

	ran := make(chan struct{}, 1)
	require.NoError(t, s.AddJob("tick", "@every 1s", func() {
		select {
		case ran <- struct{}{}:
		default:
		}
	}))

	s.Start()
	defer func() { <-s.Stop().Done() }()

	next, ok := s.NextRun("tick")
	require.True(t, ok)
	assert.False(t, next.IsZero())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled job did not run")
	}
}

func TestScheduler_NextRunUnknown(t *testing.T) {
	s := jobs.NewScheduler(zap.NewNop())
	_, ok := s.NextRun("missing")
	assert.False(t, ok)
}
