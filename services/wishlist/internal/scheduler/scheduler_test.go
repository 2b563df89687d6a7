package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/EcommerceGo/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegister_RejectsInvalidCron(t *testing.T) {
	s := New(testLogger())
	err := s.Register("scan", "every tuesday", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestRegister_Duplicate(t *testing.T) {
	s := New(testLogger())
	noop := func(context.Context) error { return nil }
	require.NoError(t, s.Register("scan", "0 6 * * *", noop))
	require.Error(t, s.Register("scan", "0 6 * * *", noop))
}

func TestTrigger_RunsJob(t *testing.T) {
	s := New(testLogger())
	var calls atomic.Int32
	require.NoError(t, s.Register("sweep", "", func(context.Context) error {
		calls.Add(1)
		return nil
	}))

	require.NoError(t, s.Trigger(context.Background(), "sweep"))
	require.NoError(t, s.Trigger(context.Background(), "sweep"))
	assert.Equal(t, int32(2), calls.Load())
}

func TestTrigger_JobErrorIsLoggedNotReturned(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Register("sweep", "", func(context.Context) error {
		return errors.New("db down")
	}))
	assert.NoError(t, s.Trigger(context.Background(), "sweep"))
}

func TestTrigger_UnknownJob(t *testing.T) {
	s := New(testLogger())
	err := s.Trigger(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestTrigger_NoSelfOverlap(t *testing.T) {
	s := New(testLogger())
	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Register("scan", "", func(context.Context) error {
		close(started)
		<-release
		return nil
	}))

	done := make(chan error, 1)
	go func() { done <- s.Trigger(context.Background(), "scan") }()
	<-started

	err := s.Trigger(context.Background(), "scan")
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	close(release)
	require.NoError(t, <-done)
}

func TestStart_StopsOnCancel(t *testing.T) {
	s := New(testLogger())
	require.NoError(t, s.Register("scan", "0 6 * * *", func(context.Context) error { return nil }))

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	cancel()

	waited := make(chan struct{})
	go func() {
		s.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
