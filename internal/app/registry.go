package app

import (
	"slices"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// Registry indexes every live connection by id, by username and by seat.
// The three indices are updated under one lock, so a reader never sees a
// connection in two buckets or in none. Empty buckets are pruned at once.
type Registry struct {
	mu         sync.RWMutex
	byID       map[domain.ConnID]*core.Connection
	byUsername map[string][]*core.Connection
	bySeat     map[domain.ProjectID]map[domain.RoleID][]*core.Connection
}

func NewRegistry() *Registry {
	return &Registry{
		byID:       make(map[domain.ConnID]*core.Connection),
		byUsername: make(map[string][]*core.Connection),
		bySeat:     make(map[domain.ProjectID]map[domain.RoleID][]*core.Connection),
	}
}

// Add registers c. Adding an id twice replaces the earlier connection.
func (r *Registry) Add(c *core.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.byID[c.ID()]; ok {
		r.unindex(old)
	}
	r.byID[c.ID()] = c
	r.addToUsername(c)
	r.addToSeat(c)
	log.Info().Str("module", "app.registry").Str("conn", string(c.ID())).Msg("connection added")
}

func (r *Registry) Remove(c *core.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.byID[c.ID()]; !ok || cur != c {
		return
	}
	r.unindex(c)
	log.Info().Str("module", "app.registry").Str("conn", string(c.ID())).Msg("connection removed")
}

func (r *Registry) WithID(id domain.ConnID) (*core.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byID[id]
	return c, ok
}

func (r *Registry) WithUsername(name string) []*core.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.byUsername[name])
}

func (r *Registry) At(project domain.ProjectID, role domain.RoleID) []*core.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.bySeat[project][role])
}

func (r *Registry) AtProject(project domain.ProjectID) []*core.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*core.Connection
	for _, conns := range r.bySeat[project] {
		out = append(out, conns...)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *Registry) Contains(c *core.Connection) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cur, ok := r.byID[c.ID()]
	return ok && cur == c
}

func (r *Registry) All() []*core.Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*core.Connection, 0, len(r.byID))
	for _, c := range r.byID {
		out = append(out, c)
	}
	return out
}

// UpdateUsername changes c's username and moves it between username buckets.
func (r *Registry) UpdateUsername(c *core.Connection, name string, loggedIn bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	registered := r.byID[c.ID()] == c
	if registered {
		r.removeFromUsername(c)
	}
	c.SetIdentity(name, loggedIn)
	if registered {
		r.addToUsername(c)
	}
	log.Info().Str("module", "app.registry").Str("conn", string(c.ID())).Str("username", name).Msg("updated username")
}

// UpdateSeat changes c's seat and moves it between seat buckets.
// Empty ids unseat the connection.
func (r *Registry) UpdateSeat(c *core.Connection, project domain.ProjectID, role domain.RoleID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	registered := r.byID[c.ID()] == c
	if registered {
		r.removeFromSeat(c)
	}
	c.SetSeat(project, role)
	if registered {
		r.addToSeat(c)
	}
	log.Info().Str("module", "app.registry").Str("conn", string(c.ID())).Str("project", string(project)).Str("role", string(role)).Msg("updated seat")
}

/////////// index helpers (lock held) ///////////

func (r *Registry) unindex(c *core.Connection) {
	delete(r.byID, c.ID())
	r.removeFromUsername(c)
	r.removeFromSeat(c)
}

func (r *Registry) addToUsername(c *core.Connection) {
	if !c.LoggedIn() {
		return
	}
	name := c.Username()
	r.byUsername[name] = append(r.byUsername[name], c)
}

func (r *Registry) removeFromUsername(c *core.Connection) {
	name := c.Username()
	conns := slices.DeleteFunc(r.byUsername[name], func(x *core.Connection) bool { return x == c })
	if len(conns) == 0 {
		delete(r.byUsername, name)
		return
	}
	r.byUsername[name] = conns
}

func (r *Registry) addToSeat(c *core.Connection) {
	project, role, ok := c.Seat()
	if !ok {
		return
	}
	roles, ok := r.bySeat[project]
	if !ok {
		roles = make(map[domain.RoleID][]*core.Connection)
		r.bySeat[project] = roles
	}
	roles[role] = append(roles[role], c)
}

func (r *Registry) removeFromSeat(c *core.Connection) {
	project, role, ok := c.Seat()
	if !ok {
		return
	}
	roles := r.bySeat[project]
	conns := slices.DeleteFunc(roles[role], func(x *core.Connection) bool { return x == c })
	if len(conns) > 0 {
		roles[role] = conns
		return
	}
	delete(roles, role)
	if len(roles) == 0 {
		delete(r.bySeat, project)
	}
}
