package effect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
)

func newDirectory(t *testing.T) (*actor.World, *effect.Directory) {
	t.Helper()
	w := actor.NewWorld()
	return w, effect.NewDirectory(w, zaptest.NewLogger(t))
}

func spawn(t *testing.T, w *actor.World, name string) actor.ID {
	t.Helper()
	a, err := w.Spawn(name)
	require.NoError(t, err)
	return a.ID
}

func TestDirectory_Attach_Idempotent(t *testing.T) {
	w, d := newDirectory(t)
	id := spawn(t, w, "knight")
	first, err := d.Attach(id)
	require.NoError(t, err)
	second, err := d.Attach(id)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, id, first.Target())
}

func TestDirectory_Attach_DeadActorFails(t *testing.T) {
	w, d := newDirectory(t)
	id := spawn(t, w, "ghost")
	require.True(t, w.Destroy(id))
	_, err := d.Attach(id)
	assert.ErrorIs(t, err, effect.ErrInvalidTarget)
	_, err = d.Attach(actor.None)
	assert.ErrorIs(t, err, effect.ErrInvalidTarget)
}

func TestDirectory_Lookup_AbsentWithoutRegistry(t *testing.T) {
	w, d := newDirectory(t)
	id := spawn(t, w, "knight")
	_, ok := d.Lookup(id)
	assert.False(t, ok)
	_, err := d.Attach(id)
	require.NoError(t, err)
	_, ok = d.Lookup(id)
	assert.True(t, ok)
}

func TestDirectory_DestroyActor_TearsDownRegistry(t *testing.T) {
	w, d := newDirectory(t)
	id := spawn(t, w, "knight")
	reg, err := d.Attach(id)
	require.NoError(t, err)
	rec := &recorder{}
	inst, err := reg.Apply(spyClass(infinite("ward"), rec), actor.None)
	require.NoError(t, err)

	require.True(t, w.Destroy(id))
	assert.False(t, inst.IsActive())
	assert.Equal(t, []actor.ID{id}, rec.deactivators, "target is the deactivator")
	assert.True(t, reg.Closed())
	_, ok := d.Lookup(id)
	assert.False(t, ok)
	assert.Equal(t, 0, d.Len())
}

func TestDirectory_Detach(t *testing.T) {
	w, d := newDirectory(t)
	id := spawn(t, w, "knight")
	reg, err := d.Attach(id)
	require.NoError(t, err)
	assert.True(t, d.Detach(id))
	assert.False(t, d.Detach(id))
	assert.True(t, reg.Closed())

	again, err := d.Attach(id)
	require.NoError(t, err)
	assert.NotSame(t, reg, again)
}

func TestDirectory_TickAll_TicksEveryRegistryInOrder(t *testing.T) {
	w, d := newDirectory(t)
	var regs []*effect.Registry
	for _, name := range []string{"a", "b", "c"} {
		reg, err := d.Attach(spawn(t, w, name))
		require.NoError(t, err)
		regs = append(regs, reg)
	}
	assert.Equal(t, regs, d.Registries())

	class := plainClass(timed("burn", 2))
	var insts []*effect.Instance
	for _, reg := range regs {
		inst, err := reg.Apply(class, actor.None)
		require.NoError(t, err)
		insts = append(insts, inst)
	}
	d.TickAll(1, 0.5)
	d.TickAll(1, 0.5)
	for _, inst := range insts {
		assert.Equal(t, 1.5, inst.RemainingTime())
	}
}

func TestDirectory_OnAttach(t *testing.T) {
	w, d := newDirectory(t)
	var seen []actor.ID
	d.OnAttach(func(reg *effect.Registry) { seen = append(seen, reg.Target()) })
	id := spawn(t, w, "knight")
	_, err := d.Attach(id)
	require.NoError(t, err)
	_, err = d.Attach(id)
	require.NoError(t, err)
	assert.Equal(t, []actor.ID{id}, seen)
}
