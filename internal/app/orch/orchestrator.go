package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

var (
	ErrUnknownConnection = errors.New("unknown connection")
	ErrUnknownRoom       = errors.New("unknown room")
	ErrNotSeated         = errors.New("connection is not seated")
	ErrInvalidSeat       = errors.New("project and role must both be set or both be empty")
)

const defaultContentTimeout = 3 * time.Second

// Options configures an Orchestrator. Zero values pick defaults.
type Options struct {
	Policy         app.Policy
	Recorder       ActionRecorder
	ContentTimeout time.Duration
	Now            func() time.Time
}

// Orchestrator is the single entry point for presence events. It owns the
// connection registry and the live rooms, serializes every mutation per
// project and is the only component that broadcasts.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    *core.RoomManager
	Store    core.ProjectStore
	Actions  core.ActionLog
	Policy   app.Policy
	Recorder ActionRecorder

	contentTimeout time.Duration
	now            func() time.Time

	connLocks keyedLocks[domain.ConnID]
	roomLocks keyedLocks[domain.ProjectID]
}

func New(reg *app.Registry, rooms *core.RoomManager, store core.ProjectStore, actions core.ActionLog, opts Options) *Orchestrator {
	o := &Orchestrator{
		Registry:       reg,
		Rooms:          rooms,
		Store:          store,
		Actions:        actions,
		Policy:         opts.Policy,
		Recorder:       opts.Recorder,
		contentTimeout: opts.ContentTimeout,
		now:            opts.Now,
	}
	if o.Policy == nil {
		o.Policy = app.SimplePolicy{}
	}
	if o.contentTimeout <= 0 {
		o.contentTimeout = defaultContentTimeout
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o
}

// OnConnect registers a new, unseated connection.
func (o *Orchestrator) OnConnect(c *core.Connection) {
	o.Registry.Add(c)
	log.Info().Str("module", "orch").Str("conn", string(c.ID())).Msg("connected")
}

// OnDisconnect unregisters c and vacates its seat. It reports false when c
// was not registered.
func (o *Orchestrator) OnDisconnect(ctx context.Context, c *core.Connection) bool {
	found := true
	_ = o.withConnection(c, nil, func(project domain.ProjectID, role domain.RoleID, seated bool) error {
		if !o.Registry.Contains(c) {
			found = false
			log.Error().Str("module", "orch").Str("conn", string(c.ID())).Msg("could not find connection")
			return nil
		}
		o.Registry.Remove(c)
		if seated {
			if room, ok := o.Rooms.Get(project); ok {
				room.RemoveOccupant(c.ID())
			}
			o.onClientLeave(ctx, project, role)
		}
		return nil
	})
	log.Info().Str("module", "orch").Str("conn", string(c.ID())).Msg("disconnected")
	return found
}

// Login marks the connection as authenticated under username.
func (o *Orchestrator) Login(ctx context.Context, id domain.ConnID, username string) error {
	if err := domain.ValidateUsername(username); err != nil {
		return err
	}
	c, ok := o.Registry.WithID(id)
	if !ok {
		return ErrUnknownConnection
	}
	return o.withConnection(c, nil, func(project domain.ProjectID, _ domain.RoleID, seated bool) error {
		if !o.Registry.Contains(c) {
			return ErrUnknownConnection
		}
		o.Registry.UpdateUsername(c, username, true)
		if seated {
			if _, err := o.BroadcastRoomUpdate(ctx, project); err != nil {
				log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Msg("broadcast after login failed")
			}
		}
		return nil
	})
}

// Stats summarizes live state.
func (o *Orchestrator) Stats() map[string]int {
	return map[string]int{
		"active_rooms":   o.Rooms.Count(),
		"active_clients": o.Registry.Count(),
	}
}

// withConnection runs fn while holding c's connection lock and the room
// locks of c's current project plus extra. The seat passed to fn is
// re-read after the locks are taken, so a seat change that happened while
// waiting is never acted on stale.
func (o *Orchestrator) withConnection(c *core.Connection, extra []domain.ProjectID, fn func(project domain.ProjectID, role domain.RoleID, seated bool) error) error {
	unlockConn := o.connLocks.lock(c.ID())
	defer unlockConn()

	for {
		project, role, seated := c.Seat()
		unlock := o.roomLocks.lock(append([]domain.ProjectID{project}, extra...)...)
		p, r, s := c.Seat()
		if p != project || r != role || s != seated {
			unlock()
			continue
		}
		err := fn(project, role, seated)
		unlock()
		return err
	}
}

// withRoom runs fn on the live room for project under its room lock.
func (o *Orchestrator) withRoom(project domain.ProjectID, fn func(room *core.Room) error) error {
	unlock := o.roomLocks.lock(project)
	defer unlock()
	room, ok := o.Rooms.Get(project)
	if !ok {
		log.Warn().Str("module", "orch").Str("project", string(project)).Msg("unknown room")
		return fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
	}
	return fn(room)
}

// ensureRoom returns the live room for project, loading it from the store
// or starting a draft owned by c when there is none.
func (o *Orchestrator) ensureRoom(ctx context.Context, project domain.ProjectID, c *core.Connection) (*core.Room, error) {
	if room, ok := o.Rooms.Get(project); ok {
		return room, nil
	}
	var meta *domain.ProjectMeta
	if o.Store != nil {
		var err error
		if meta, err = o.Store.GetMetadata(ctx, project); err != nil {
			return nil, fmt.Errorf("load project %s: %w", project, err)
		}
	}
	var content map[domain.RoleID]domain.RoleContent
	if meta != nil {
		var err error
		if content, err = o.loadContent(ctx, meta); err != nil {
			return nil, err
		}
	}
	return o.Rooms.GetOrCreate(project, func() *core.Room {
		if meta == nil {
			return core.NewRoom(project, "", c.Username(), o.Registry)
		}
		return core.RoomFromMeta(meta, content, o.Registry)
	}), nil
}

// loadContent reads the saved content of every seat in meta.
func (o *Orchestrator) loadContent(ctx context.Context, meta *domain.ProjectMeta) (map[domain.RoleID]domain.RoleContent, error) {
	out := make(map[domain.RoleID]domain.RoleContent, len(meta.Roles))
	for role := range meta.Roles {
		c, err := o.Store.GetRoleContent(ctx, meta.ID, role)
		if err != nil {
			return nil, fmt.Errorf("load project %s role %s: %w", meta.ID, role, err)
		}
		if c != nil {
			out[role] = *c
		}
	}
	return out, nil
}

// cacheLiveContent asks c for the content of the seat it is leaving.
func (o *Orchestrator) cacheLiveContent(ctx context.Context, c *core.Connection, room *core.Room, role domain.RoleID) {
	src, ok := c.Signal().(core.ContentSource)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.contentTimeout)
	defer cancel()
	content, err := src.FetchContent(ctx)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(c.ID())).Str("role", string(role)).Msg("could not fetch content before leaving seat")
		return
	}
	if err := room.CacheSeatContent(role, content); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("project", string(room.ID())).Msg("cache content")
	}
}

func (o *Orchestrator) sendJSON(room *core.Room, c *core.Connection, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Msg("sendJSON marshal")
		return
	}
	o.deliver(room, c, b)
}

func (o *Orchestrator) deliver(room *core.Room, c *core.Connection, f core.Frame) {
	if err := c.Send(f); err == nil {
		return
	}
	switch o.Policy.OnBackPressure(room, c) {
	case app.KickMember:
		log.Warn().Str("module", "orch").Str("conn", string(c.ID())).Msg("send failed, dropping connection")
		if s := c.Signal(); s != nil {
			s.Close()
		}
	case app.DropFrame, app.NoAction:
		log.Debug().Str("module", "orch").Str("conn", string(c.ID())).Msg("send failed, message dropped")
	}
}
