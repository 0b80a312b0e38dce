package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeoutReturnsResult(t *testing.T) {
	want := errors.New("engine fault")
	err := WithTimeout(context.Background(), time.Second, "ocr", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestWithTimeoutStopsWaitingOnBlockedCall(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := WithTimeout(context.Background(), 20*time.Millisecond, "ocr", func(ctx context.Context) error {
		<-release
		return nil
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("expected to stop waiting quickly, took %v", elapsed)
	}
}

func TestWithTimeoutReportsParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WithTimeout(ctx, time.Second, "ocr", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestWithTimeoutDisabled(t *testing.T) {
	called := false
	if err := WithTimeout(context.Background(), 0, "ocr", func(ctx context.Context) error {
		called = true
		if _, ok := ctx.Deadline(); ok {
			t.Error("expected no deadline when disabled")
		}
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatal("expected fn to be called")
	}
}
