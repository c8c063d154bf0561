package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failing() error { return errBoom }
func succeeding() error { return nil }

func TestBreaker_StaysClosedOnSuccess(t *testing.T) {
	t.Parallel()

	b := NewBreaker("test", 3, time.Minute)
	for i := 0; i < 10; i++ {
		if err := b.Execute(succeeding); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed", b.State())
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b := NewBreaker("test", 3, time.Minute)
	for i := 0; i < 3; i++ {
		if err := b.Execute(failing); !errors.Is(err, errBoom) {
			t.Fatalf("Execute = %v, want errBoom", err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	// Open breaker rejects without invoking fn.
	called := false
	err := b.Execute(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Execute = %v, want ErrOpen", err)
	}
	if called {
		t.Error("fn was called while breaker open")
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b := NewBreaker("test", 3, time.Minute)
	b.Execute(failing)
	b.Execute(failing)
	b.Execute(succeeding)
	b.Execute(failing)
	b.Execute(failing)
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after interleaved success", b.State())
	}
}

func TestBreaker_ProbeClosesOnSuccess(t *testing.T) {
	t.Parallel()

	b := NewBreaker("test", 1, time.Minute)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	b.Execute(failing)
	if b.State() != StateOpen {
		t.Fatalf("state = %v, want open", b.State())
	}

	// Before the reset timeout the breaker stays open.
	if err := b.Execute(succeeding); !errors.Is(err, ErrOpen) {
		t.Fatalf("Execute before timeout = %v, want ErrOpen", err)
	}

	clock = clock.Add(2 * time.Minute)
	if err := b.Execute(succeeding); err != nil {
		t.Fatalf("probe Execute: %v", err)
	}
	if b.State() != StateClosed {
		t.Errorf("state = %v, want closed after successful probe", b.State())
	}
}

func TestBreaker_ProbeReopensOnFailure(t *testing.T) {
	t.Parallel()

	b := NewBreaker("test", 1, time.Minute)
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return clock }

	b.Execute(failing)
	clock = clock.Add(2 * time.Minute)
	if err := b.Execute(failing); !errors.Is(err, errBoom) {
		t.Fatalf("probe Execute = %v, want errBoom", err)
	}
	if b.State() != StateOpen {
		t.Errorf("state = %v, want open after failed probe", b.State())
	}
}
