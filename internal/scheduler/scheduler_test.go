package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("not a cron spec", func(ctx context.Context) error { return nil }); err == nil {
		t.Fatalf("expected error for invalid cron spec")
	}
}

func TestRunOnceInvokesWarmWithDeadline(t *testing.T) {
	var gotDeadline bool
	s, err := New("@every 5m", func(ctx context.Context) error {
		_, gotDeadline = ctx.Deadline()
		return nil
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.runOnce()
	if !gotDeadline {
		t.Fatalf("warm func should run under a deadline")
	}
}

func TestRunOnceSwallowsWarmError(t *testing.T) {
	s, err := New("@every 5m", func(ctx context.Context) error {
		return errors.New("warm failed")
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	// 只记日志，不 panic
	s.runOnce()
}

func TestStartStop(t *testing.T) {
	done := make(chan struct{}, 1)
	s, err := New("@every 50ms", func(ctx context.Context) error {
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	s.Start()
	defer s.Stop()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduled warm job never ran")
	}
}
