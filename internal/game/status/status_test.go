package status_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
	"github.com/cory-johannsen/statusfx/internal/game/effect"
	"github.com/cory-johannsen/statusfx/internal/game/status"
)

func class(id string, t effect.Type, scope effect.Scope) *effect.Class {
	def := effect.DefaultDefinition()
	def.ID = id
	def.Type = t
	def.Scope = scope
	return effect.NewClass(&def, nil)
}

type world struct {
	w      *actor.World
	dir    *effect.Directory
	target actor.ID
	caster actor.ID
}

func setup(t *testing.T) *world {
	t.Helper()
	w := actor.NewWorld()
	target, err := w.Spawn("target")
	require.NoError(t, err)
	caster, err := w.Spawn("caster")
	require.NoError(t, err)
	dir := effect.NewDirectory(w, zaptest.NewLogger(t))
	_, err = dir.Attach(target.ID)
	require.NoError(t, err)
	return &world{w: w, dir: dir, target: target.ID, caster: caster.ID}
}

func TestApply_NoRegistry(t *testing.T) {
	s := setup(t)
	inst, err := status.Apply(s.dir, s.caster, class("x", effect.Buff, effect.PerTarget), actor.None)
	assert.ErrorIs(t, err, status.ErrNoRegistry)
	assert.Nil(t, inst)

	_, err = status.Apply(nil, s.target, class("x", effect.Buff, effect.PerTarget), actor.None)
	assert.ErrorIs(t, err, status.ErrNoRegistry)
}

func TestForwarding_NoRegistryYieldsZero(t *testing.T) {
	s := setup(t)
	c := class("x", effect.Buff, effect.PerTarget)
	assert.False(t, status.Has(s.dir, s.caster, c))
	assert.False(t, status.HasAny(s.dir, s.caster))
	assert.Zero(t, status.RemoveAll(s.dir, s.caster, actor.None))
	assert.Zero(t, status.RefreshAll(s.dir, s.caster))
	assert.Nil(t, status.Get(s.dir, s.caster, c))
	assert.Nil(t, status.GetAll(s.dir, s.caster))
	assert.False(t, status.Remove(s.dir, s.caster, c, actor.None))
}

func TestForwarding_MatchesRegistry(t *testing.T) {
	s := setup(t)
	haste := class("haste", effect.Buff, effect.PerTarget)
	bleed := class("bleed", effect.Debuff, effect.PerInstigator)

	h, err := status.Apply(s.dir, s.target, haste, actor.None)
	require.NoError(t, err)
	b, err := status.Apply(s.dir, s.target, bleed, s.caster)
	require.NoError(t, err)

	reg, ok := status.Manager(s.dir, s.target)
	require.True(t, ok)
	assert.Equal(t, reg.All(), status.GetAll(s.dir, s.target))

	assert.True(t, status.Has(s.dir, s.target, haste))
	assert.True(t, status.HasFromInstigator(s.dir, s.target, bleed, s.caster))
	assert.True(t, status.HasAnyFromInstigator(s.dir, s.target, s.caster))
	assert.True(t, status.HasAnyOfType(s.dir, s.target, effect.Debuff))
	assert.True(t, status.HasAnyOfTypeFromInstigator(s.dir, s.target, effect.Debuff, s.caster))
	assert.Same(t, h, status.Get(s.dir, s.target, haste))
	assert.Same(t, b, status.GetFromInstigator(s.dir, s.target, bleed, s.caster))
	assert.Equal(t, []*effect.Instance{h}, status.GetAllOfClass(s.dir, s.target, haste))
	assert.Equal(t, []*effect.Instance{b}, status.GetAllFromInstigator(s.dir, s.target, s.caster))
	assert.Equal(t, []*effect.Instance{b}, status.GetAllOfClassFromInstigator(s.dir, s.target, bleed, s.caster))
	assert.Equal(t, []*effect.Instance{h}, status.GetAllOfType(s.dir, s.target, effect.Buff))
	assert.Equal(t, []*effect.Instance{b}, status.GetAllOfTypeFromInstigator(s.dir, s.target, effect.Debuff, s.caster))

	assert.Equal(t, 2, status.RefreshAll(s.dir, s.target))
	assert.Equal(t, 1, status.RefreshAllOfClass(s.dir, s.target, haste))
	assert.Equal(t, 1, status.RefreshAllFromInstigator(s.dir, s.target, s.caster))
	assert.Equal(t, 1, status.RefreshAllOfClassFromInstigator(s.dir, s.target, bleed, s.caster))
	assert.Equal(t, 1, status.RefreshAllOfType(s.dir, s.target, effect.Buff))
	assert.Equal(t, 1, status.RefreshAllOfTypeFromInstigator(s.dir, s.target, effect.Debuff, s.caster))

	assert.Equal(t, 0, status.RemoveAllOfTypeFromInstigator(s.dir, s.target, effect.Buff, s.caster, s.caster))
	assert.Equal(t, 1, status.RemoveAllOfClassFromInstigator(s.dir, s.target, bleed, s.caster, s.caster))
	assert.Equal(t, 1, status.RemoveAllOfType(s.dir, s.target, effect.Buff, actor.None))
	assert.False(t, status.HasAny(s.dir, s.target))

	_, err = status.Apply(s.dir, s.target, bleed, s.caster)
	require.NoError(t, err)
	assert.True(t, status.RemoveFromInstigator(s.dir, s.target, bleed, s.caster, actor.None))
	_, err = status.Apply(s.dir, s.target, haste, s.caster)
	require.NoError(t, err)
	assert.Equal(t, 1, status.RemoveAllFromInstigator(s.dir, s.target, s.caster, actor.None))
	_, err = status.Apply(s.dir, s.target, haste, s.caster)
	require.NoError(t, err)
	assert.Equal(t, 1, status.RemoveAllOfClass(s.dir, s.target, haste, actor.None))
	_, err = status.Apply(s.dir, s.target, haste, s.caster)
	require.NoError(t, err)
	assert.True(t, status.Remove(s.dir, s.target, haste, actor.None))
	assert.Zero(t, status.RemoveAll(s.dir, s.target, actor.None))
}

func TestManager_DestroyedActorIsAbsent(t *testing.T) {
	s := setup(t)
	require.True(t, s.w.Destroy(s.target))
	_, ok := status.Manager(s.dir, s.target)
	assert.False(t, ok)
}
