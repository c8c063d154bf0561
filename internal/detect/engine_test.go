package detect

import (
	"testing"
	"time"
)

// fixedClock returns a clock function whose reading can be moved by the test.
type fixedClock struct {
	t time.Time
}

func (c *fixedClock) now() time.Time {
	return c.t
}

func (c *fixedClock) advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func newTestEngine(t *testing.T, threshold float64, cooldown time.Duration) (*Engine, *fixedClock) {
	t.Helper()
	clock := &fixedClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	e, err := NewEngine(Config{
		ConfidenceThreshold: threshold,
		Cooldown:            cooldown,
	}, WithClock(clock.now))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e, clock
}

func obsAt(clock *fixedClock, label Label, confidence float64) Observation {
	return Observation{Label: label, Confidence: confidence, At: clock.t}
}

func TestNewEngine_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero threshold", Config{ConfidenceThreshold: 0, Cooldown: time.Second}},
		{"threshold of one", Config{ConfidenceThreshold: 1, Cooldown: time.Second}},
		{"negative threshold", Config{ConfidenceThreshold: -0.5, Cooldown: time.Second}},
		{"zero cooldown", Config{ConfidenceThreshold: 0.85}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := NewEngine(tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestEvaluate_NoiseNeverAlerts(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 0.85, 3*time.Second)
	// Even full confidence in the noise label must not fire.
	if _, fired := e.Evaluate(obsAt(clock, DefaultNoiseLabel, 1.0)); fired {
		t.Error("noise label fired an alert at confidence 1.0")
	}
	if snap := e.Snapshot(); snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
}

func TestEvaluate_ExactThresholdIsUnsure(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 0.85, 3*time.Second)
	// Strict inequality: equality must not fire.
	if _, fired := e.Evaluate(obsAt(clock, "help me", 0.85)); fired {
		t.Error("confidence exactly at threshold fired an alert")
	}
	if snap := e.Snapshot(); snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
}

func TestEvaluate_AboveThresholdFiresOnce(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 0.85, 3*time.Second)
	alert, fired := e.Evaluate(obsAt(clock, "help me", 0.90))
	if !fired {
		t.Fatal("expected alert")
	}
	if alert.Label != "help me" || alert.Confidence != 0.90 {
		t.Errorf("alert = %+v", alert)
	}
	if alert.ID == "" {
		t.Error("alert has no ID")
	}
	if !alert.At.Equal(clock.t) {
		t.Errorf("alert.At = %v, want %v", alert.At, clock.t)
	}
	if snap := e.Snapshot(); snap.State != StateCooldown {
		t.Errorf("state = %v, want cooldown", snap.State)
	}
}

func TestEvaluate_CooldownSuppressesThenRearms(t *testing.T) {
	t.Parallel()

	// Threshold 0.85, cooldown 3s. Alert at t=0, suppressed
	// at t=1 despite higher confidence, fires again at t=4.
	e, clock := newTestEngine(t, 0.85, 3*time.Second)

	if _, fired := e.Evaluate(obsAt(clock, "help me", 0.90)); !fired {
		t.Fatal("expected first alert at t=0")
	}

	clock.advance(1 * time.Second)
	if _, fired := e.Evaluate(obsAt(clock, "help me", 0.95)); fired {
		t.Error("alert fired during cooldown at t=1")
	}

	clock.advance(3 * time.Second)
	alert, fired := e.Evaluate(obsAt(clock, "help me", 0.95))
	if !fired {
		t.Fatal("expected new alert at t=4 after cooldown elapsed")
	}
	if alert.Confidence != 0.95 {
		t.Errorf("alert confidence = %v, want 0.95", alert.Confidence)
	}
}

func TestEvaluate_CooldownSuppressesEverything(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 0.60, 10*time.Second)
	if _, fired := e.Evaluate(obsAt(clock, "call police", 0.99)); !fired {
		t.Fatal("expected initial alert")
	}

	// No sequence of observations inside the window may fire.
	for i := 0; i < 5; i++ {
		clock.advance(time.Second)
		if _, fired := e.Evaluate(obsAt(clock, "help me", 1.0)); fired {
			t.Fatalf("alert fired %ds into a 10s cooldown", i+1)
		}
	}
}

func TestEvaluate_UnsureDoesNotAffectCooldown(t *testing.T) {
	t.Parallel()

	// Noise and low-confidence observations must neither shorten nor extend
	// the suppression window.
	e, clock := newTestEngine(t, 0.85, 3*time.Second)
	if _, fired := e.Evaluate(obsAt(clock, "help me", 0.90)); !fired {
		t.Fatal("expected initial alert")
	}
	deadline := e.Snapshot().CooldownUntil

	clock.advance(time.Second)
	e.Evaluate(obsAt(clock, DefaultNoiseLabel, 1.0))
	e.Evaluate(obsAt(clock, "madat karo", 0.40))

	if got := e.Snapshot().CooldownUntil; !got.Equal(deadline) {
		t.Errorf("cooldown deadline moved from %v to %v", deadline, got)
	}
}

func TestEvaluate_LowConfidenceIsUnsure(t *testing.T) {
	t.Parallel()

	// "bachao" at 0.60 with threshold 0.85 reports nothing.
	e, clock := newTestEngine(t, 0.85, 3*time.Second)
	if _, fired := e.Evaluate(obsAt(clock, "bachao", 0.60)); fired {
		t.Error("low-confidence observation fired an alert")
	}
	snap := e.Snapshot()
	if snap.State != StateIdle {
		t.Errorf("state = %v, want idle", snap.State)
	}
	if snap.Last == nil || snap.Last.Label != "bachao" {
		t.Errorf("snapshot last = %+v, want the bachao observation", snap.Last)
	}
}

func TestSnapshot_Consistency(t *testing.T) {
	t.Parallel()

	e, clock := newTestEngine(t, 0.85, 3*time.Second)
	e.Evaluate(obsAt(clock, "help me", 0.90))

	snap := e.Snapshot()
	if snap.State != StateCooldown {
		t.Fatalf("state = %v, want cooldown", snap.State)
	}
	want := clock.t.Add(3 * time.Second)
	if !snap.CooldownUntil.Equal(want) {
		t.Errorf("cooldownUntil = %v, want %v", snap.CooldownUntil, want)
	}

	// Mutating the snapshot must not touch engine state.
	snap.Last.Confidence = 0
	if e.Snapshot().Last.Confidence != 0.90 {
		t.Error("snapshot shares observation storage with the engine")
	}
}

func TestLabelSet_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		set     LabelSet
		wantErr bool
	}{
		{"valid", LabelSet{DefaultNoiseLabel, "help me", "call police"}, false},
		{"empty", LabelSet{}, true},
		{"duplicate", LabelSet{DefaultNoiseLabel, "help me", "help me"}, true},
		{"missing noise label", LabelSet{"help me", "call police"}, true},
		{"empty member", LabelSet{DefaultNoiseLabel, ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.set.Validate(DefaultNoiseLabel)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
