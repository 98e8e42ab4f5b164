// Package sim drives effect registries frame by frame, either in fixed steps
// or from a wall-clock ticker.
package sim

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/statusfx/internal/config"
)

// Ticker is advanced once per frame. *effect.Directory satisfies it.
type Ticker interface {
	TickAll(frame uint64, dt float64)
}

// Loop owns the frame counter and the pause policy. Effects never tick while
// the loop is paused or running as a preview.
//
// Step, Advance and Run must be called from one goroutine; Do, Pause, Resume
// and Stop are safe from any goroutine.
type Loop struct {
	ticker  Ticker
	cfg     config.SimulationConfig
	logger  *zap.Logger
	frame   atomic.Uint64
	paused  atomic.Bool
	elapsed float64

	mu       sync.Mutex
	commands []func()

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewLoop creates a Loop ticking t.
//
// Precondition: t must be non-nil and cfg.FrameRate > 0. A nil logger
// disables logging.
func NewLoop(t Ticker, cfg config.SimulationConfig, logger *zap.Logger) *Loop {
	if t == nil {
		panic("sim.NewLoop: ticker must not be nil")
	}
	if cfg.FrameRate <= 0 {
		panic("sim.NewLoop: frame rate must be > 0")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Loop{
		ticker: t,
		cfg:    cfg,
		logger: logger,
		stopCh: make(chan struct{}),
	}
	l.paused.Store(cfg.StartPaused)
	return l
}

// Frame returns the number of frames ticked so far.
func (l *Loop) Frame() uint64 { return l.frame.Load() }

// Elapsed returns the simulated seconds ticked so far.
func (l *Loop) Elapsed() float64 { return l.elapsed }

// FixedDelta returns the fixed step length in seconds.
func (l *Loop) FixedDelta() float64 { return l.cfg.FixedDelta() }

// Paused reports whether the loop is paused.
func (l *Loop) Paused() bool { return l.paused.Load() }

// Preview reports whether the loop runs in a non-ticking preview context.
func (l *Loop) Preview() bool { return l.cfg.Preview }

// Pause stops ticking until Resume. Frames requested meanwhile are skipped.
func (l *Loop) Pause() {
	if !l.paused.Swap(true) {
		l.logger.Info("simulation paused", zap.Uint64("frame", l.Frame()))
	}
}

// Resume restarts ticking after Pause.
func (l *Loop) Resume() {
	if l.paused.Swap(false) {
		l.logger.Info("simulation resumed", zap.Uint64("frame", l.Frame()))
	}
}

// Do queues fn to run on the loop goroutine before the next frame.
func (l *Loop) Do(fn func()) {
	l.mu.Lock()
	l.commands = append(l.commands, fn)
	l.mu.Unlock()
}

func (l *Loop) drain() {
	l.mu.Lock()
	cmds := l.commands
	l.commands = nil
	l.mu.Unlock()
	for _, fn := range cmds {
		fn()
	}
}

// Step runs queued commands, then ticks one frame of dt seconds.
//
// Postcondition: Returns true iff a frame was ticked; false while paused, in
// preview, or for a negative dt.
func (l *Loop) Step(dt float64) bool {
	l.drain()
	if dt < 0 || l.Paused() || l.cfg.Preview {
		return false
	}
	frame := l.frame.Add(1)
	l.elapsed += dt
	l.ticker.TickAll(frame, dt)
	return true
}

// Advance steps through seconds of simulated time in FixedDelta frames, the
// last one shortened to fit. Returns the number of frames ticked.
func (l *Loop) Advance(seconds float64) int {
	if seconds <= 0 {
		return 0
	}
	fd := l.FixedDelta()
	whole := int(math.Floor(seconds/fd + 1e-9))
	rest := seconds - float64(whole)*fd
	n := 0
	for range whole {
		if l.Step(fd) {
			n++
		}
	}
	if rest > 1e-9 && l.Step(rest) {
		n++
	}
	return n
}

// Run ticks from a wall-clock ticker at the configured frame rate until ctx
// is cancelled or Stop is called. Each frame receives the wall-clock delta
// since the previous one, capped at MaxDelta.
func (l *Loop) Run(ctx context.Context) error {
	interval := time.Duration(float64(time.Second) / l.cfg.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	l.logger.Info("simulation loop running",
		zap.Duration("interval", interval),
		zap.Duration("max_delta", l.cfg.MaxDelta),
		zap.Bool("paused", l.Paused()),
		zap.Bool("preview", l.cfg.Preview),
	)
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			l.logStopped()
			return nil
		case <-l.stopCh:
			l.logStopped()
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			if l.cfg.MaxDelta > 0 && dt > l.cfg.MaxDelta {
				l.logger.Debug("frame delta clamped", zap.Duration("delta", dt))
				dt = l.cfg.MaxDelta
			}
			l.Step(dt.Seconds())
		}
	}
}

func (l *Loop) logStopped() {
	l.logger.Info("simulation loop stopped",
		zap.Uint64("frames", l.Frame()),
		zap.Float64("elapsed", l.elapsed),
	)
}

// Start runs the loop in real time until Stop. It adapts the loop to
// server.Service.
func (l *Loop) Start() error { return l.Run(context.Background()) }

// Stop makes a running Run return. Idempotent.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
