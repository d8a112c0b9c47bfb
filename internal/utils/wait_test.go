package utils

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitWith(t *testing.T) {
	var slept time.Duration
	if err := WaitWith(context.Background(), 3*time.Second, func(d time.Duration) { slept = d }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slept != 3*time.Second {
		t.Fatalf("expected 3s sleep, got %v", slept)
	}

	called := false
	if err := WaitWith(context.Background(), 0, func(time.Duration) { called = true }); err != nil || called {
		t.Fatalf("expected no wait for zero duration, err=%v called=%v", err, called)
	}
}

func TestWaitForCancelled(t *testing.T) {
	originalSleep := sleep
	release := make(chan struct{})
	sleep = func(time.Duration) { <-release }
	defer func() {
		close(release)
		sleep = originalSleep
	}()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := WaitFor(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
