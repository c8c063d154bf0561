package detect

import (
	"fmt"
	"sync"
	"time"
)

// State is the decision engine's operating mode.
type State int

const (
	// StateIdle accepts observations and may raise alerts.
	StateIdle State = iota

	// StateCooldown suppresses all alerts until the cooldown deadline
	// elapses, so a sustained distress sound raises one alert rather than
	// one per frame.
	StateCooldown
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Config holds the decision engine's tuning knobs. All values are fixed at
// startup.
type Config struct {
	// ConfidenceThreshold is the confidence a non-noise observation must
	// strictly exceed to raise an alert. Range (0, 1).
	ConfidenceThreshold float64

	// Cooldown is the suppression window started by each alert.
	Cooldown time.Duration

	// NoiseLabel is the distinguished label that never alerts, at any
	// confidence. Defaults to DefaultNoiseLabel when empty.
	NoiseLabel Label
}

// Option is a functional option for NewEngine.
type Option func(*Engine)

// WithClock substitutes the engine's time source. Used in tests to drive the
// cooldown deterministically.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine is the alert-decision state machine. It consumes one Observation
// per accepted frame, strictly in capture order, and produces at most one
// Alert per cooldown window.
//
// Evaluate is called from the single pipeline goroutine; Snapshot may be
// called concurrently from the presentation layer. The mutex guarantees a
// snapshot never observes a half-updated (state, cooldownUntil) pair.
type Engine struct {
	threshold float64
	cooldown  time.Duration
	noise     Label
	now       func() time.Time

	mu            sync.Mutex
	state         State
	cooldownUntil time.Time
	last          *Observation
}

// Snapshot is a consistent view of the engine state for display.
type Snapshot struct {
	State         State
	CooldownUntil time.Time
	Last          *Observation
}

// NewEngine creates an Engine. Threshold and cooldown must be set; a zero
// NoiseLabel defaults to DefaultNoiseLabel.
func NewEngine(cfg Config, opts ...Option) (*Engine, error) {
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold >= 1 {
		return nil, fmt.Errorf("detect: confidence threshold %v must be in (0, 1)", cfg.ConfidenceThreshold)
	}
	if cfg.Cooldown <= 0 {
		return nil, fmt.Errorf("detect: cooldown %v must be positive", cfg.Cooldown)
	}
	if cfg.NoiseLabel == "" {
		cfg.NoiseLabel = DefaultNoiseLabel
	}
	e := &Engine{
		threshold: cfg.ConfidenceThreshold,
		cooldown:  cfg.Cooldown,
		noise:     cfg.NoiseLabel,
		now:       time.Now,
		state:     StateIdle,
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// NoiseLabel returns the configured background-noise label.
func (e *Engine) NoiseLabel() Label {
	return e.noise
}

// Evaluate feeds one observation through the state machine. It returns the
// triggered alert and true when the observation fires, nil and false
// otherwise.
//
// Rules, in order:
//   - In cooldown before the deadline, nothing fires regardless of content.
//   - The noise label never fires, even at confidence 1.0.
//   - A non-noise label fires iff confidence is strictly above the
//     threshold; equality counts as unsure.
//
// Non-firing observations do not start, extend, or shorten a cooldown.
func (e *Engine) Evaluate(obs Observation) (*Alert, bool) {
	now := e.now()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.last = &obs

	if e.state == StateCooldown {
		if now.Before(e.cooldownUntil) {
			return nil, false
		}
		e.state = StateIdle
	}

	if obs.Label == e.noise {
		return nil, false
	}
	if obs.Confidence <= e.threshold {
		return nil, false
	}

	alert := newAlert(obs)
	e.state = StateCooldown
	e.cooldownUntil = now.Add(e.cooldown)
	return &alert, true
}

// Snapshot returns a consistent copy of the engine state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		State:         e.state,
		CooldownUntil: e.cooldownUntil,
	}
	if e.last != nil {
		obs := *e.last
		snap.Last = &obs
	}
	return snap
}
