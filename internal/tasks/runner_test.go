package tasks

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/leadsync/internal/observability/metrics"
	"github.com/wolfman30/leadsync/pkg/logging"
)

func TestRunner_DoesNotBlockCaller(t *testing.T) {
	r := NewRunner(logging.New("error"), nil)
	release := make(chan struct{})
	var finished atomic.Bool

	start := time.Now()
	r.Go(context.Background(), "slow", func(ctx context.Context) error {
		<-release
		finished.Store(true)
		return nil
	})
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	assert.False(t, finished.Load())

	close(release)
	require.NoError(t, r.Wait(context.Background()))
	assert.True(t, finished.Load())
}

func TestRunner_SurvivesCallerCancellation(t *testing.T) {
	r := NewRunner(logging.New("error"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	var sawCancel atomic.Bool

	r.Go(ctx, "detached", func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})
	cancel()

	require.NoError(t, r.Wait(context.Background()))
	assert.False(t, sawCancel.Load())
}

func TestRunner_LogsFailuresAndPanics(t *testing.T) {
	var buf bytes.Buffer
	r := NewRunner(logging.NewWithWriter("error", &buf), metrics.NewLeadMetrics(prometheus.NewRegistry()))

	r.Go(context.Background(), "backup", func(ctx context.Context) error {
		return errors.New("sheet unavailable")
	})
	r.Go(context.Background(), "confirmation_email", func(ctx context.Context) error {
		panic("template missing")
	})
	require.NoError(t, r.Wait(context.Background()))

	out := buf.String()
	assert.Contains(t, out, "sheet unavailable")
	assert.Contains(t, out, "panic: template missing")
	assert.Contains(t, out, `"task":"backup"`)
}

func TestRunner_TimeoutBoundsTask(t *testing.T) {
	r := NewRunner(logging.New("error"), nil, WithTimeout(30*time.Millisecond))
	var err atomic.Value

	r.Go(context.Background(), "hung", func(ctx context.Context) error {
		<-ctx.Done()
		err.Store(ctx.Err())
		return ctx.Err()
	})

	require.NoError(t, r.Wait(context.Background()))
	assert.ErrorIs(t, err.Load().(error), context.DeadlineExceeded)
}

func TestRunner_WaitHonorsContext(t *testing.T) {
	r := NewRunner(logging.New("error"), nil)
	release := make(chan struct{})
	defer close(release)
	r.Go(context.Background(), "blocked", func(ctx context.Context) error {
		<-release
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, r.Wait(ctx))
}
