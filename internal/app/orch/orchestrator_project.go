package orch

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

var ErrForbidden = errors.New("only the owner may do this")

// Save persists the connection's project. Owners and collaborators save in
// place; anyone else gets a fork of their own, which is saved instead.
// It returns the id of the project that was saved.
func (o *Orchestrator) Save(ctx context.Context, id domain.ConnID) (domain.ProjectID, error) {
	c, ok := o.Registry.WithID(id)
	if !ok {
		return "", ErrUnknownConnection
	}
	var saved domain.ProjectID
	err := o.withConnection(c, nil, func(project domain.ProjectID, role domain.RoleID, seated bool) error {
		if !seated {
			return ErrNotSeated
		}
		room, ok := o.Rooms.Get(project)
		if !ok {
			return fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
		}
		if !room.CanEdit(c.Username()) {
			room = o.forkLocked(ctx, c, room, role)
		}
		saved = room.ID()
		return o.save(ctx, room)
	})
	return saved, err
}

// Fork gives the connection its own copy of the project it is in.
func (o *Orchestrator) Fork(ctx context.Context, id domain.ConnID) (domain.ProjectID, error) {
	c, ok := o.Registry.WithID(id)
	if !ok {
		return "", ErrUnknownConnection
	}
	var forked domain.ProjectID
	err := o.withConnection(c, nil, func(project domain.ProjectID, role domain.RoleID, seated bool) error {
		if !seated {
			return ErrNotSeated
		}
		room, ok := o.Rooms.Get(project)
		if !ok {
			return fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
		}
		forked = o.forkLocked(ctx, c, room, role).ID()
		return nil
	})
	return forked, err
}

func (o *Orchestrator) save(ctx context.Context, room *core.Room) error {
	if o.Store == nil {
		return nil
	}
	room.MarkPersisted()
	return room.Save(ctx, o.Store, o.contentTimeout)
}

// forkLocked copies room for c and moves c into the copy at the same seat.
// The caller holds c's lock and the room's lock.
func (o *Orchestrator) forkLocked(ctx context.Context, c *core.Connection, room *core.Room, role domain.RoleID) *core.Room {
	o.cacheLiveContent(ctx, c, room, role)

	fork := room.Fork(domain.NewProjectID(), c.Username())
	unlock := o.roomLocks.lock(fork.ID())
	defer unlock()
	o.Rooms.Add(fork)

	room.RemoveOccupant(c.ID())
	if _, err := fork.AddOccupant(c.ID(), role); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("project", string(fork.ID())).Msg("could not seat forking connection")
	}
	o.Registry.UpdateSeat(c, fork.ID(), role)

	o.sendJSON(fork, c, core.ForkMessage{Type: core.MsgProjectFork, Room: fork.Name()})
	if _, err := o.BroadcastRoomUpdate(ctx, fork.ID()); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("project", string(fork.ID())).Msg("broadcast failed")
	}
	o.onClientLeave(ctx, room.ID(), role)
	return fork
}

/////////// Ownership ///////////

// AddCollaborator lets username save into the connection's project. Only
// the owner may add collaborators.
func (o *Orchestrator) AddCollaborator(ctx context.Context, id domain.ConnID, username string) error {
	return o.asOwner(id, func(room *core.Room) error {
		if !room.AddCollaborator(username) {
			return nil
		}
		o.broadcastAndSave(ctx, room)
		return nil
	})
}

func (o *Orchestrator) RemoveCollaborator(ctx context.Context, id domain.ConnID, username string) error {
	return o.asOwner(id, func(room *core.Room) error {
		if !room.RemoveCollaborator(username) {
			return nil
		}
		o.broadcastAndSave(ctx, room)
		return nil
	})
}

// RenameProject changes the display name of the connection's project.
func (o *Orchestrator) RenameProject(ctx context.Context, id domain.ConnID, name string) error {
	return o.asOwner(id, func(room *core.Room) error {
		room.SetName(name)
		o.broadcastAndSave(ctx, room)
		return nil
	})
}

// CloseProject closes the connection's project for everyone in it.
func (o *Orchestrator) CloseProject(ctx context.Context, id domain.ConnID) error {
	return o.asOwner(id, func(room *core.Room) error {
		o.closeLocked(ctx, room)
		return nil
	})
}

func (o *Orchestrator) asOwner(id domain.ConnID, fn func(room *core.Room) error) error {
	c, ok := o.Registry.WithID(id)
	if !ok {
		return ErrUnknownConnection
	}
	return o.withConnection(c, nil, func(project domain.ProjectID, _ domain.RoleID, seated bool) error {
		if !seated {
			return ErrNotSeated
		}
		room, ok := o.Rooms.Get(project)
		if !ok {
			return fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
		}
		if room.Owner() != c.Username() {
			log.Warn().Str("module", "orch").Str("project", string(project)).Str("conn", string(c.ID())).Msg("owner-only request refused")
			return ErrForbidden
		}
		return fn(room)
	})
}

// closeLocked empties and drops room, telling everyone in it. Every seat
// it vacates has its history truncated. The caller holds the room's lock.
func (o *Orchestrator) closeLocked(ctx context.Context, room *core.Room) {
	conns := o.Registry.AtProject(room.ID())
	var vacated []domain.RoleID
	for _, c := range conns {
		if _, role, ok := c.Seat(); ok && !slices.Contains(vacated, role) {
			vacated = append(vacated, role)
		}
	}
	slices.Sort(vacated)

	room.Close()
	for _, c := range conns {
		o.sendJSON(room, c, core.ProjectClosed{Type: core.MsgProjectClosed})
		o.Registry.UpdateSeat(c, "", "")
	}
	o.Rooms.Remove(room.ID())
	for _, role := range vacated {
		o.onSeatEmptied(ctx, room.ID(), role)
	}
	log.Info().Str("module", "orch").Str("project", string(room.ID())).Int("vacated", len(vacated)).Msg("room closed")
}
