package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/core"
)

func TestRoomManager(t *testing.T) {
	rm := core.NewRoomManager()
	calls := 0
	create := func() *core.Room {
		calls++
		return core.NewRoom("proj", "", "alice", nil)
	}

	first := rm.GetOrCreate("proj", create)
	second := rm.GetOrCreate("proj", create)
	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	assert.False(t, rm.Add(core.NewRoom("proj", "", "bob", nil)))
	assert.True(t, rm.Add(core.NewRoom("other", "", "bob", nil)))
	assert.Equal(t, 2, rm.Count())

	got, ok := rm.Get("proj")
	require.True(t, ok)
	assert.Equal(t, "alice", got.Owner())

	infos := rm.List()
	assert.Len(t, infos, 2)
	for _, info := range infos {
		assert.Equal(t, "draft", info.State)
		assert.Equal(t, "untitled", info.Name)
	}

	rm.Remove("proj")
	_, ok = rm.Get("proj")
	assert.False(t, ok)
	assert.Equal(t, 1, rm.Count())
}
