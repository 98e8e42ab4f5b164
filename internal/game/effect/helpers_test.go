package effect_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
)

// recorder collects hook calls across every instance built by one class.
type recorder struct {
	calls        []string
	ticks        []float64
	veto         bool
	onActivate   func(inst *effect.Instance)
	onDeactivate func(inst *effect.Instance, deactivator actor.ID)
	deactivators []actor.ID
}

type spyHooks struct{ rec *recorder }

func (h spyHooks) CanBeActivated(*effect.Instance) bool {
	h.rec.calls = append(h.rec.calls, "can_activate")
	return !h.rec.veto
}

func (h spyHooks) ActivateEffect(inst *effect.Instance) {
	h.rec.calls = append(h.rec.calls, "activate")
	if h.rec.onActivate != nil {
		h.rec.onActivate(inst)
	}
}

func (h spyHooks) TickEffect(_ *effect.Instance, dt float64) {
	h.rec.calls = append(h.rec.calls, "tick")
	h.rec.ticks = append(h.rec.ticks, dt)
}

func (h spyHooks) DeactivateEffect(inst *effect.Instance, deactivator actor.ID) {
	h.rec.calls = append(h.rec.calls, "deactivate")
	h.rec.deactivators = append(h.rec.deactivators, deactivator)
	if h.rec.onDeactivate != nil {
		h.rec.onDeactivate(inst, deactivator)
	}
}

func (h spyHooks) RefreshEffect(*effect.Instance) {
	h.rec.calls = append(h.rec.calls, "refresh")
}

func (h spyHooks) HandleStacksIncreased(*effect.Instance, int) {
	h.rec.calls = append(h.rec.calls, "stacks_increased")
}

func (h spyHooks) HandleStacksDecreased(*effect.Instance, int) {
	h.rec.calls = append(h.rec.calls, "stacks_decreased")
}

func (r *recorder) count(call string) int {
	n := 0
	for _, c := range r.calls {
		if c == call {
			n++
		}
	}
	return n
}

func spyClass(def effect.Definition, rec *recorder) *effect.Class {
	return effect.NewClass(&def, func() effect.Hooks { return spyHooks{rec: rec} })
}

func plainClass(def effect.Definition) *effect.Class {
	return effect.NewClass(&def, nil)
}

func infinite(id string) effect.Definition {
	def := effect.DefaultDefinition()
	def.ID = id
	return def
}

func timed(id string, duration float64) effect.Definition {
	def := infinite(id)
	def.Infinite = false
	def.Duration = duration
	return def
}

func stacking(id string, initial, maxStacks int) effect.Definition {
	def := infinite(id)
	def.Stackable = true
	def.InitialStacks = initial
	def.MaxStacks = maxStacks
	return def
}

type fixture struct {
	world  *actor.World
	target actor.ID
	a      actor.ID
	b      actor.ID
	reg    *effect.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	w := actor.NewWorld()
	spawn := func(name string) actor.ID {
		a, err := w.Spawn(name)
		require.NoError(t, err)
		return a.ID
	}
	f := &fixture{world: w, target: spawn("target"), a: spawn("a"), b: spawn("b")}
	f.reg = effect.NewRegistry(f.target, w, zaptest.NewLogger(t))
	return f
}

func (f *fixture) apply(t *testing.T, class *effect.Class, instigator actor.ID) *effect.Instance {
	t.Helper()
	inst, err := f.reg.Apply(class, instigator)
	require.NoError(t, err)
	require.NotNil(t, inst)
	return inst
}

// tickN runs n passes starting at frame from.
func tickN(inst *effect.Instance, from uint64, n int, dt float64) uint64 {
	for k := 0; k < n; k++ {
		inst.Tick(from, dt)
		from++
	}
	return from
}
