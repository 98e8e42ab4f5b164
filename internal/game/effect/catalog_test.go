package effect_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/statusfx/internal/game/effect"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadDirectory_YAMLAndTOML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "poison.yaml", `
id: poison
name: Poison
type: debuff
scope: per_target
infinite: false
duration: 5
timer_refresh: reset
tick_enabled: true
tick_interval: 1
lua_on_tick: poison_tick
`)
	writeFile(t, dir, "rage.toml", `
id = "rage"
type = "buff"
scope = "per_instigator"
stackable = true
max_stacks = 3
stacks_refresh = "increase"
`)
	writeFile(t, dir, "README.md", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	cat, err := effect.LoadDirectory(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, cat.Len())

	poison := cat.MustGet("poison").Def
	assert.Equal(t, effect.Debuff, poison.Type)
	assert.Equal(t, effect.TimerReset, poison.TimerRefresh)
	assert.False(t, poison.Infinite)
	assert.Equal(t, 1.0, poison.TickInterval)
	assert.Equal(t, map[string]string{"on_tick": "poison_tick"}, poison.ScriptHooks())

	rage, ok := cat.Get("rage")
	require.True(t, ok)
	assert.Equal(t, effect.PerInstigator, rage.Def.Scope)
	assert.Equal(t, effect.StacksIncrease, rage.Def.StacksRefresh)
	assert.True(t, rage.Def.Infinite, "default kept")
	assert.Equal(t, 1, rage.Def.InitialStacks, "default kept")

	ids := []string{}
	for _, c := range cat.All() {
		ids = append(ids, c.ID())
	}
	assert.Equal(t, []string{"poison", "rage"}, ids)
}

func TestLoadDirectory_UnknownYAMLFieldFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.yaml", "id: bad\nduraton: 3\n")
	_, err := effect.LoadDirectory(dir)
	assert.ErrorContains(t, err, "bad.yaml")
}

func TestLoadDirectory_UnknownTOMLFieldFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.toml", "id = \"bad\"\nstackble = true\n")
	_, err := effect.LoadDirectory(dir)
	assert.ErrorContains(t, err, "unknown fields")
}

func TestLoadDirectory_DuplicateIDFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: same\n")
	writeFile(t, dir, "b.toml", "id = \"same\"\n")
	_, err := effect.LoadDirectory(dir)
	assert.ErrorContains(t, err, "already registered")
}

func TestLoadDirectory_InvalidDefinitionFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "id: broken\nstackable: true\ninitial_stacks: 9\nmax_stacks: 2\n")
	_, err := effect.LoadDirectory(dir)
	assert.ErrorContains(t, err, "initial_stacks")
}

func TestLoadDirectory_MissingDir(t *testing.T) {
	_, err := effect.LoadDirectory(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDefinition_Validate_CollectsEveryViolation(t *testing.T) {
	def := effect.DefaultDefinition()
	def.Duration = -1
	def.TickInterval = -2
	def.Stackable = true
	def.MaxStacks = 0
	err := def.Validate()
	require.Error(t, err)
	for _, want := range []string{"id must not be empty", "duration", "tick_interval", "max_stacks"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestDefinition_Validate_ExtendNeedsRoomAboveDuration(t *testing.T) {
	def := timed("haste", 8)
	def.TimerRefresh = effect.TimerExtend
	def.MaxDuration = 4
	assert.ErrorContains(t, def.Validate(), "max_duration")
	def.MaxDuration = 8
	assert.NoError(t, def.Validate())
}

func TestDefinition_EffectiveDuration(t *testing.T) {
	def := timed("x", 3)
	assert.Equal(t, 3.0, def.EffectiveDuration())
	def.TimerRefresh = effect.TimerExtend
	assert.Equal(t, def.MaxDuration, def.EffectiveDuration())
	def.Infinite = true
	assert.Equal(t, -1.0, def.EffectiveDuration())
}

func TestEnums_TextRoundTripAndAliases(t *testing.T) {
	var doc struct {
		Type   effect.Type          `yaml:"type"`
		Scope  effect.Scope         `yaml:"scope"`
		Timer  effect.TimerRefresh  `yaml:"timer"`
		Stacks effect.StacksRefresh `yaml:"stacks"`
	}
	require.NoError(t, yaml.Unmarshal([]byte("type: Buff\nscope: per_instance\ntimer: restart\nstacks: reset\n"), &doc))
	assert.Equal(t, effect.Buff, doc.Type)
	assert.Equal(t, effect.PerInstance, doc.Scope)
	assert.Equal(t, effect.TimerReset, doc.Timer)
	assert.Equal(t, effect.StacksReset, doc.Stacks)

	assert.Equal(t, "per_instigator", effect.PerInstigator.String())
	assert.Equal(t, "unknown(9)", effect.Type(9).String())

	var s effect.Scope
	assert.Error(t, s.UnmarshalText([]byte("everywhere")))
}

func TestCatalog_Register(t *testing.T) {
	cat := effect.NewCatalog()
	assert.ErrorIs(t, cat.Register(nil), effect.ErrNilClass)
	require.NoError(t, cat.Register(plainClass(infinite("a"))))
	assert.Error(t, cat.Register(plainClass(infinite("a"))))
	assert.Error(t, cat.Register(plainClass(effect.DefaultDefinition())))
	assert.Panics(t, func() { cat.MustGet("missing") })
	assert.Panics(t, func() { effect.NewClass(nil, nil) })
}
