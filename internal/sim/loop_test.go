package sim_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/statusfx/internal/config"
	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
	"github.com/cory-johannsen/statusfx/internal/server"
	"github.com/cory-johannsen/statusfx/internal/sim"
)

type recordingTicker struct {
	mu     sync.Mutex
	frames []uint64
	deltas []float64
}

func (r *recordingTicker) TickAll(frame uint64, dt float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, frame)
	r.deltas = append(r.deltas, dt)
}

func (r *recordingTicker) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func simConfig() config.SimulationConfig {
	return config.SimulationConfig{FrameRate: 10, MaxDelta: 250 * time.Millisecond}
}

func TestLoop_StepNumbersFrames(t *testing.T) {
	rt := &recordingTicker{}
	loop := sim.NewLoop(rt, simConfig(), zaptest.NewLogger(t))

	assert.True(t, loop.Step(0.1))
	assert.True(t, loop.Step(0.2))
	assert.Equal(t, []uint64{1, 2}, rt.frames)
	assert.Equal(t, []float64{0.1, 0.2}, rt.deltas)
	assert.Equal(t, uint64(2), loop.Frame())
	assert.InDelta(t, 0.3, loop.Elapsed(), 1e-12)
	assert.False(t, loop.Step(-1))
}

func TestLoop_PausedDoesNotTick(t *testing.T) {
	rt := &recordingTicker{}
	loop := sim.NewLoop(rt, simConfig(), zaptest.NewLogger(t))

	loop.Pause()
	assert.True(t, loop.Paused())
	assert.False(t, loop.Step(0.1))
	assert.Zero(t, rt.count())

	loop.Resume()
	assert.True(t, loop.Step(0.1))
	assert.Equal(t, []uint64{1}, rt.frames)
}

func TestLoop_StartPausedAndPreview(t *testing.T) {
	cfg := simConfig()
	cfg.StartPaused = true
	loop := sim.NewLoop(&recordingTicker{}, cfg, nil)
	assert.True(t, loop.Paused())

	cfg = simConfig()
	cfg.Preview = true
	rt := &recordingTicker{}
	loop = sim.NewLoop(rt, cfg, nil)
	assert.True(t, loop.Preview())
	assert.Zero(t, loop.Advance(5))
	assert.Zero(t, rt.count())
}

func TestLoop_DoRunsBeforeTheNextFrame(t *testing.T) {
	rt := &recordingTicker{}
	loop := sim.NewLoop(rt, simConfig(), nil)
	loop.Pause()

	var seen []int
	loop.Do(func() { seen = append(seen, rt.count()) })
	loop.Do(loop.Resume)
	assert.True(t, loop.Step(0.1))
	assert.Equal(t, []int{0}, seen)
}

func TestLoop_AdvanceShortensTheLastStep(t *testing.T) {
	rt := &recordingTicker{}
	loop := sim.NewLoop(rt, simConfig(), nil)

	assert.Equal(t, 3, loop.Advance(0.25))
	require.Len(t, rt.deltas, 3)
	assert.InDelta(t, 0.1, rt.deltas[0], 1e-12)
	assert.InDelta(t, 0.05, rt.deltas[2], 1e-9)
	assert.Zero(t, loop.Advance(0))
}

func TestPropertyLoop_AdvanceCoversTheSpan(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rate := rapid.Float64Range(1, 120).Draw(t, "rate")
		seconds := rapid.Float64Range(0.001, 30).Draw(t, "seconds")
		rt := &recordingTicker{}
		loop := sim.NewLoop(rt, config.SimulationConfig{FrameRate: rate, MaxDelta: time.Second}, nil)
		loop.Advance(seconds)
		if diff := loop.Elapsed() - seconds; diff > 1e-6 || diff < -1e-6 {
			t.Fatalf("elapsed %g, want %g", loop.Elapsed(), seconds)
		}
		for _, dt := range rt.deltas {
			if dt > loop.FixedDelta()+1e-9 {
				t.Fatalf("step %g exceeds fixed delta %g", dt, loop.FixedDelta())
			}
		}
	})
}

func TestLoop_PauseFreezesEffectTimers(t *testing.T) {
	world := actor.NewWorld()
	a, err := world.Spawn("knight")
	require.NoError(t, err)
	dir := effect.NewDirectory(world, zaptest.NewLogger(t))
	reg, err := dir.Attach(a.ID)
	require.NoError(t, err)

	def := effect.DefaultDefinition()
	def.ID = "haste"
	def.Infinite = false
	def.Duration = 1
	inst, err := reg.Apply(effect.NewClass(&def, nil), actor.None)
	require.NoError(t, err)

	loop := sim.NewLoop(dir, simConfig(), nil)
	loop.Advance(0.5)
	loop.Pause()
	loop.Advance(10)
	assert.True(t, inst.IsActive())
	assert.InDelta(t, 0.5, inst.RemainingTime(), 1e-9)

	loop.Resume()
	loop.Advance(0.6)
	assert.False(t, inst.IsActive())
}

func TestLoop_RunTicksInRealTimeUntilStopped(t *testing.T) {
	rt := &recordingTicker{}
	cfg := config.SimulationConfig{FrameRate: 200, MaxDelta: 20 * time.Millisecond}
	loop := sim.NewLoop(rt, cfg, zaptest.NewLogger(t))

	lc := server.NewLifecycle(zaptest.NewLogger(t))
	lc.Add("loop", loop)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	require.Eventually(t, func() bool { return rt.count() >= 5 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("loop did not stop")
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()
	for _, dt := range rt.deltas {
		assert.LessOrEqual(t, dt, cfg.MaxDelta.Seconds())
		assert.Greater(t, dt, 0.0)
	}
}

func TestLoop_RunReturnsOnContextCancel(t *testing.T) {
	loop := sim.NewLoop(&recordingTicker{}, simConfig(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, loop.Run(ctx))
	loop.Stop()
	loop.Stop()
}
