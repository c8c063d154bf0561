// Package alsa captures audio frames from an ALSA device by running arecord
// as a child process and reading raw s16le PCM from its stdout.
//
// Spawning arecord avoids a cgo dependency on libasound and matches how the
// device images this runs on already expose their microphones. The process is
// started lazily on the first NextFrame call so that constructing the Source
// in tests does not require a sound card.
package alsa

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"time"

	"github.com/arimelio/hearken/pkg/audio"
	"github.com/arimelio/hearken/pkg/provider/capture"
)

// DefaultDevice is the ALSA device used when none is configured.
const DefaultDevice = "default"

// errClosed is returned by NextFrame after Close.
var errClosed = errors.New("alsa: source is closed")

// Compile-time assertion that Source implements capture.Source.
var _ capture.Source = (*Source)(nil)

// Option is a functional option for configuring a Source.
type Option func(*Source)

// WithDevice sets the ALSA device name passed to arecord's -D flag
// (e.g., "hw:1,0"). Defaults to "default".
func WithDevice(device string) Option {
	return func(s *Source) {
		s.device = device
	}
}

// WithCommand overrides the capture executable. Used in tests to substitute a
// script that emits deterministic PCM.
func WithCommand(name string) Option {
	return func(s *Source) {
		s.command = name
	}
}

// Source reads fixed-size frames from an arecord subprocess.
type Source struct {
	cfg     capture.Config
	device  string
	command string

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdout  io.ReadCloser
	readBuf []byte
	elapsed time.Duration
	closed  bool
}

// New creates a Source for the given frame geometry. The capture process is
// not started until the first NextFrame call.
func New(cfg capture.Config, opts ...Option) (*Source, error) {
	if cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("alsa: sample rate %d is invalid", cfg.SampleRate)
	}
	if cfg.FrameDuration <= 0 {
		return nil, fmt.Errorf("alsa: frame duration %v is invalid", cfg.FrameDuration)
	}
	s := &Source{
		cfg:     cfg,
		device:  DefaultDevice,
		command: "arecord",
		readBuf: make([]byte, cfg.FrameSamples()*2),
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Args returns the arecord argument list for the configured stream. Exposed
// for tests.
func (s *Source) Args() []string {
	return []string{
		"-D", s.device,
		"-c", "1",
		"-r", strconv.Itoa(s.cfg.SampleRate),
		"-f", "S16_LE",
		"-t", "raw",
		"-q",
	}
}

// NextFrame blocks until one full frame of PCM has been read from the capture
// process, then returns it as normalised float32 samples. The first call
// starts the process; a process that has died surfaces as a capture error and
// a subsequent call attempts a restart.
func (s *Source) NextFrame(ctx context.Context) (audio.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audio.Frame{}, errClosed
	}
	if err := ctx.Err(); err != nil {
		return audio.Frame{}, err
	}
	if s.cmd == nil {
		if err := s.start(); err != nil {
			return audio.Frame{}, fmt.Errorf("alsa: start capture: %w", err)
		}
	}

	if _, err := io.ReadFull(s.stdout, s.readBuf); err != nil {
		// The process died mid-stream. Reap it and force a restart on the
		// next cycle.
		s.stop()
		return audio.Frame{}, fmt.Errorf("alsa: read from %s: %w", s.command, err)
	}

	frame := audio.Frame{
		Samples:    audio.DecodePCM16(s.readBuf),
		SampleRate: s.cfg.SampleRate,
		Timestamp:  s.elapsed,
	}
	s.elapsed += s.cfg.FrameDuration
	return frame, nil
}

// start launches the capture subprocess. Caller holds s.mu.
func (s *Source) start() error {
	cmd := exec.Command(s.command, s.Args()...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	s.cmd = cmd
	s.stdout = stdout
	return nil
}

// stop kills and reaps the capture subprocess. Caller holds s.mu.
func (s *Source) stop() {
	if s.cmd == nil {
		return
	}
	_ = s.stdout.Close()
	_ = s.cmd.Process.Kill()
	_ = s.cmd.Wait()
	s.cmd = nil
	s.stdout = nil
}

// Close terminates the capture process. Safe to call multiple times.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stop()
	return nil
}
