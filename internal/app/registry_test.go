package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

func newConn(id string) *core.Connection {
	return core.NewConnection(domain.ConnID(id), "", nil)
}

func TestRegistryAddRemove(t *testing.T) {
	r := NewRegistry()
	c1, c2 := newConn("c1"), newConn("c2")

	r.Add(c1)
	r.Add(c2)
	assert.Equal(t, 2, r.Count())

	got, ok := r.WithID("c1")
	require.True(t, ok)
	assert.Same(t, c1, got)

	r.Remove(c1)
	_, ok = r.WithID("c1")
	assert.False(t, ok)
	assert.False(t, r.Contains(c1))
	assert.True(t, r.Contains(c2))
	assert.Equal(t, 1, r.Count())

	// removing twice is harmless
	r.Remove(c1)
	assert.Equal(t, 1, r.Count())
}

func TestRegistryRemoveIgnoresReplacedConnection(t *testing.T) {
	r := NewRegistry()
	old := newConn("c1")
	r.Add(old)
	fresh := newConn("c1")
	r.Add(fresh)

	r.Remove(old)
	got, ok := r.WithID("c1")
	require.True(t, ok)
	assert.Same(t, fresh, got)
}

func TestRegistrySeatIndex(t *testing.T) {
	r := NewRegistry()
	c1, c2, c3 := newConn("c1"), newConn("c2"), newConn("c3")
	for _, c := range []*core.Connection{c1, c2, c3} {
		r.Add(c)
	}

	r.UpdateSeat(c1, "proj", "cat")
	r.UpdateSeat(c2, "proj", "dog")
	r.UpdateSeat(c3, "other", "cat")

	assert.Equal(t, []*core.Connection{c1}, r.At("proj", "cat"))
	assert.Equal(t, []*core.Connection{c2}, r.At("proj", "dog"))
	assert.ElementsMatch(t, []*core.Connection{c1, c2}, r.AtProject("proj"))
	assert.Empty(t, r.At("proj", "fish"))

	p, role, ok := c1.Seat()
	require.True(t, ok)
	assert.Equal(t, domain.ProjectID("proj"), p)
	assert.Equal(t, domain.RoleID("cat"), role)

	// moving between seats leaves no trace in the old bucket
	r.UpdateSeat(c1, "proj", "dog")
	assert.Empty(t, r.At("proj", "cat"))
	assert.ElementsMatch(t, []*core.Connection{c1, c2}, r.At("proj", "dog"))

	r.UpdateSeat(c1, "", "")
	r.UpdateSeat(c2, "", "")
	assert.Empty(t, r.AtProject("proj"))
	assert.NotContains(t, r.bySeat, domain.ProjectID("proj"))
	assert.Len(t, r.bySeat, 1)
}

func TestRegistryRemovePrunesBuckets(t *testing.T) {
	r := NewRegistry()
	c := newConn("c1")
	r.Add(c)
	r.UpdateUsername(c, "alice", true)
	r.UpdateSeat(c, "proj", "cat")

	r.Remove(c)
	assert.Empty(t, r.byID)
	assert.Empty(t, r.byUsername)
	assert.Empty(t, r.bySeat)
}

func TestRegistryUsernameIndex(t *testing.T) {
	r := NewRegistry()
	c1, c2 := newConn("c1"), newConn("c2")
	r.Add(c1)
	r.Add(c2)

	// anonymous connections are not indexed by name
	assert.Empty(t, r.WithUsername(c1.Username()))

	r.UpdateUsername(c1, "alice", true)
	r.UpdateUsername(c2, "alice", true)
	assert.ElementsMatch(t, []*core.Connection{c1, c2}, r.WithUsername("alice"))

	r.UpdateUsername(c2, "bob", true)
	assert.Equal(t, []*core.Connection{c1}, r.WithUsername("alice"))
	assert.Equal(t, []*core.Connection{c2}, r.WithUsername("bob"))

	r.Remove(c1)
	assert.Empty(t, r.WithUsername("alice"))
	assert.NotContains(t, r.byUsername, "alice")
}

func TestRegistryAddIndexesExistingSeat(t *testing.T) {
	r := NewRegistry()
	c := newConn("c1")
	c.SetSeat("proj", "cat")
	c.SetIdentity("alice", true)

	r.Add(c)
	assert.Equal(t, []*core.Connection{c}, r.At("proj", "cat"))
	assert.Equal(t, []*core.Connection{c}, r.WithUsername("alice"))
}

func TestRegistryRandomSequence(t *testing.T) {
	r := NewRegistry()
	conns := make([]*core.Connection, 10)
	for i := range conns {
		conns[i] = newConn(string(rune('a' + i)))
		r.Add(conns[i])
		r.UpdateSeat(conns[i], "proj", domain.RoleID([]string{"cat", "dog"}[i%2]))
	}
	for i := 0; i < len(conns); i += 3 {
		r.Remove(conns[i])
	}

	live := 0
	for i, c := range conns {
		_, ok := r.WithID(c.ID())
		assert.Equal(t, i%3 != 0, ok)
		if ok {
			live++
		}
	}
	assert.Len(t, r.AtProject("proj"), live)
	assert.Len(t, r.All(), live)
	assert.Len(t, r.At("proj", "cat"), 3)
	assert.Len(t, r.At("proj", "dog"), 3)
}
