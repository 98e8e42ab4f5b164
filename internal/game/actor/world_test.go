package actor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/statusfx/internal/game/actor"
)

func TestWorld_Spawn_AssignsLiveID(t *testing.T) {
	w := actor.NewWorld()
	a, err := w.Spawn("knight")
	require.NoError(t, err)
	assert.False(t, a.ID.IsZero())
	assert.True(t, w.Alive(a.ID))
	assert.Equal(t, "knight", w.Name(a.ID))
}

func TestWorld_Spawn_DuplicateName_ReturnsError(t *testing.T) {
	w := actor.NewWorld()
	_, err := w.Spawn("knight")
	require.NoError(t, err)
	_, err = w.Spawn("knight")
	assert.Error(t, err)
}

func TestWorld_Spawn_EmptyName_ReturnsError(t *testing.T) {
	_, err := actor.NewWorld().Spawn("")
	assert.Error(t, err)
}

func TestWorld_Destroy_InvalidatesID(t *testing.T) {
	w := actor.NewWorld()
	a, err := w.Spawn("goblin")
	require.NoError(t, err)
	require.True(t, w.Destroy(a.ID))
	assert.False(t, w.Alive(a.ID))
	_, ok := w.Get(a.ID)
	assert.False(t, ok)
	assert.False(t, w.Destroy(a.ID), "second destroy must be a no-op")
}

func TestWorld_Destroy_ReusedSlotDoesNotRevivePreviousID(t *testing.T) {
	w := actor.NewWorld()
	first, err := w.Spawn("a")
	require.NoError(t, err)
	require.True(t, w.Destroy(first.ID))
	second, err := w.Spawn("b")
	require.NoError(t, err)
	assert.Equal(t, first.ID.Index(), second.ID.Index(), "slot is recycled")
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, w.Alive(first.ID))
	assert.True(t, w.Alive(second.ID))
}

func TestWorld_OnDestroy_RunsWhileActorAlive(t *testing.T) {
	w := actor.NewWorld()
	a, err := w.Spawn("a")
	require.NoError(t, err)
	var aliveDuringCallback bool
	w.OnDestroy(func(id actor.ID) { aliveDuringCallback = w.Alive(id) })
	w.Destroy(a.ID)
	assert.True(t, aliveDuringCallback)
}

func TestWorld_Attributes(t *testing.T) {
	w := actor.NewWorld()
	a, err := w.Spawn("a")
	require.NoError(t, err)
	require.NoError(t, w.SetAttribute(a.ID, "speed", 10))
	v, err := w.AddAttribute(a.ID, "speed", -2.5)
	require.NoError(t, err)
	assert.InDelta(t, 7.5, v, 1e-9)
	assert.InDelta(t, 7.5, w.Attribute(a.ID, "speed"), 1e-9)

	w.Destroy(a.ID)
	assert.Error(t, w.SetAttribute(a.ID, "speed", 1))
	_, err = w.AddAttribute(a.ID, "speed", 1)
	assert.Error(t, err)
	assert.Zero(t, w.Attribute(a.ID, "speed"))
}

func TestWorld_LookupAndAll(t *testing.T) {
	w := actor.NewWorld()
	_, err := w.Spawn("zed")
	require.NoError(t, err)
	b, err := w.Spawn("amy")
	require.NoError(t, err)
	got, ok := w.Lookup("amy")
	require.True(t, ok)
	assert.Equal(t, b.ID, got.ID)
	all := w.All()
	require.Len(t, all, 2)
	assert.Equal(t, "amy", all[0].Name)
	assert.Equal(t, 2, w.Len())
}

func TestID_String(t *testing.T) {
	assert.Equal(t, "none", actor.None.String())
}

func TestParseID_RoundTrip(t *testing.T) {
	w := actor.NewWorld()
	a, err := w.Spawn("knight")
	require.NoError(t, err)
	parsed, err := actor.ParseID(a.ID.String())
	require.NoError(t, err)
	assert.Equal(t, a.ID, parsed)

	none, err := actor.ParseID("none")
	require.NoError(t, err)
	assert.True(t, none.IsZero())

	for _, bad := range []string{"7", "a:1", "1:b", "1:99999999999"} {
		_, err := actor.ParseID(bad)
		assert.Error(t, err, bad)
	}
}

func TestPropertyWorld_DestroyedIDsNeverAlive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := actor.NewWorld()
		n := rapid.IntRange(1, 20).Draw(t, "n")
		var ids []actor.ID
		for i := 0; i < n; i++ {
			a, err := w.Spawn(rapid.StringMatching(`[a-z]{8}`).Draw(t, "name"))
			if err != nil {
				continue
			}
			ids = append(ids, a.ID)
		}
		var dead []actor.ID
		for _, id := range ids {
			if rapid.Bool().Draw(t, "destroy") {
				w.Destroy(id)
				dead = append(dead, id)
			}
		}
		for i := 0; i < len(dead); i++ {
			_, _ = w.Spawn(rapid.StringMatching(`[A-Z]{8}`).Draw(t, "respawn"))
		}
		for _, id := range dead {
			assert.False(t, w.Alive(id), "destroyed id %s must stay dead", id)
		}
	})
}
