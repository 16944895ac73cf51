package runner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSchedulerRejectsBadSchedule(t *testing.T) {
	_, err := NewScheduler("every so often", true, func(context.Context) {}, testLogger())
	assert.Error(t, err)
}

func TestSchedulerRunsOnStartAndStops(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	s, err := NewScheduler("@every 1h", true, func(context.Context) {
		runs.Add(1)
		cancel()
	}, testLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, int32(1), runs.Load())
}

func TestSchedulerWithoutRunOnStart(t *testing.T) {
	var runs atomic.Int32
	s, err := NewScheduler("@every 1h", false, func(context.Context) { runs.Add(1) }, testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Run(ctx), context.DeadlineExceeded)
	assert.Zero(t, runs.Load())
}

func TestSchedulerWaitsForRunInFlight(t *testing.T) {
	started := make(chan struct{})
	var finished atomic.Bool
	ctx, cancel := context.WithCancel(context.Background())

	s, err := NewScheduler("@every 1h", true, func(runCtx context.Context) {
		close(started)
		<-runCtx.Done()
		time.Sleep(20 * time.Millisecond)
		finished.Store(true)
	}, testLogger())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-started
	cancel()
	require.NoError(t, <-done)
	assert.True(t, finished.Load())
}

func TestSchedulerSkipsOverlappingTriggers(t *testing.T) {
	release := make(chan struct{})
	var runs atomic.Int32
	s, err := NewScheduler("@every 1h", false, func(context.Context) {
		runs.Add(1)
		<-release
	}, testLogger())
	require.NoError(t, err)

	job := s.job(context.Background(), cronLogger{testLogger()})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		job.Run()
	}()
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, time.Millisecond)

	// fires while the first run is still going
	job.Run()
	assert.Equal(t, int32(1), runs.Load())

	close(release)
	wg.Wait()

	go job.Run()
	require.Eventually(t, func() bool { return runs.Load() == 2 }, time.Second, time.Millisecond)
}

func TestSchedulerRecoversPanics(t *testing.T) {
	s, err := NewScheduler("@every 1h", false, func(context.Context) { panic("boom") }, testLogger())
	require.NoError(t, err)

	job := s.job(context.Background(), cronLogger{testLogger()})
	assert.NotPanics(t, job.Run)
}
