package orch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

const evictionMessage = "%s has taken your spot.\nYou have been moved to a new project."

// SetState records that connection id is now at (project, role). Empty ids
// take the connection out of its seat. The previous seat, if any, is
// vacated and its room broadcast first; the new room is broadcast after
// when it differs from the old one.
func (o *Orchestrator) SetState(ctx context.Context, id domain.ConnID, project domain.ProjectID, role domain.RoleID, username string) error {
	if (project == "") != (role == "") {
		return ErrInvalidSeat
	}
	c, ok := o.Registry.WithID(id)
	if !ok {
		log.Warn().Str("module", "orch").Str("conn", string(id)).Msg("state change for unknown connection")
		return ErrUnknownConnection
	}

	var extra []domain.ProjectID
	if project != "" {
		extra = append(extra, project)
	}
	return o.withConnection(c, extra, func(oldProject domain.ProjectID, oldRole domain.RoleID, seated bool) error {
		if !o.Registry.Contains(c) {
			return ErrUnknownConnection
		}
		if username != "" && username != c.Username() {
			o.Registry.UpdateUsername(c, username, !domain.IsAnonymous(username))
		}

		if project == "" {
			if !seated {
				return nil
			}
			o.vacate(ctx, c, oldProject, oldRole)
			o.Registry.UpdateSeat(c, "", "")
			o.onClientLeave(ctx, oldProject, oldRole)
			return nil
		}

		room, err := o.ensureRoom(ctx, project, c)
		if err != nil {
			return err
		}
		if room.State() == core.Closed {
			return fmt.Errorf("project %s: %w", project, core.ErrRoomClosed)
		}

		if seated && (oldProject != project || oldRole != role) {
			o.vacate(ctx, c, oldProject, oldRole)
		}
		displaced, err := room.AddOccupant(c.ID(), role)
		if err != nil {
			return err
		}
		if displaced != "" {
			log.Warn().Str("module", "orch").Str("project", string(project)).Str("role", string(role)).
				Str("conn", string(c.ID())).Str("displaced", string(displaced)).Msg("seat was held by another connection")
		}
		o.Registry.UpdateSeat(c, project, role)

		if seated {
			o.onClientLeave(ctx, oldProject, oldRole)
		}
		if !seated || oldProject != project {
			if _, err := o.BroadcastRoomUpdate(ctx, project); err != nil {
				log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Msg("broadcast failed")
			}
		}
		return nil
	})
}

// Move moves connection id between seats of its current project. An empty
// from means the seat the connection is in. If from turns out to be held
// by some other connection, that connection is relocated to a new project
// and told so, and the move completes.
func (o *Orchestrator) Move(ctx context.Context, id domain.ConnID, from, to domain.RoleID) error {
	c, ok := o.Registry.WithID(id)
	if !ok {
		return ErrUnknownConnection
	}
	return o.withConnection(c, nil, func(project domain.ProjectID, role domain.RoleID, seated bool) error {
		if !seated {
			return ErrNotSeated
		}
		if from == "" {
			from = role
		}
		room, ok := o.Rooms.Get(project)
		if !ok {
			return fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
		}
		if from == to {
			return nil
		}

		o.cacheLiveContent(ctx, c, room, role)
		evicted, err := room.MoveOccupant(c.ID(), from, to)
		if err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Str("conn", string(c.ID())).Msg("move failed")
			return err
		}
		if evicted != "" {
			o.relocate(ctx, room, evicted, c)
		}
		o.Registry.UpdateSeat(c, project, to)
		left := []domain.RoleID{from}
		if role != from && role != to {
			left = append(left, role)
		}
		o.onClientLeave(ctx, project, left...)
		return nil
	})
}

// relocate moves an evicted connection into a fresh project of its own.
// A connection that already reports a seat elsewhere only lost a stale
// entry and is left alone.
func (o *Orchestrator) relocate(ctx context.Context, from *core.Room, id domain.ConnID, by *core.Connection) {
	c, ok := o.Registry.WithID(id)
	if !ok {
		return
	}
	if p, _, seated := c.Seat(); seated && p != from.ID() {
		return
	}

	project := domain.NewProjectID()
	room := core.NewRoom(project, "", c.Username(), o.Registry)
	unlock := o.roomLocks.lock(project)
	defer unlock()
	o.Rooms.Add(room)
	if _, err := room.AddOccupant(c.ID(), domain.DefaultRoleID); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("conn", string(id)).Msg("could not relocate evicted connection")
		return
	}
	o.Registry.UpdateSeat(c, project, domain.DefaultRoleID)

	o.sendJSON(room, c, core.Notification{
		Type:    core.MsgNotification,
		Message: fmt.Sprintf(evictionMessage, by.Username()),
	})
	if _, err := o.BroadcastRoomUpdate(ctx, project); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Msg("broadcast failed")
	}
	log.Info().Str("module", "orch").Str("conn", string(id)).Str("from", string(from.ID())).Str("project", string(project)).Msg("evicted connection relocated")
}

// vacate takes c out of its seat in the room, caching its content first.
func (o *Orchestrator) vacate(ctx context.Context, c *core.Connection, project domain.ProjectID, role domain.RoleID) {
	room, ok := o.Rooms.Get(project)
	if !ok {
		return
	}
	o.cacheLiveContent(ctx, c, room, role)
	room.RemoveOccupant(c.ID())
}

/////////// Seats ///////////

func (o *Orchestrator) CreateSeat(ctx context.Context, project domain.ProjectID, role domain.RoleID) error {
	return o.withRoom(project, func(room *core.Room) error {
		if !room.CreateSeat(role) {
			log.Warn().Str("module", "orch").Str("project", string(project)).Str("role", string(role)).Msg("seat already exists")
			return nil
		}
		o.broadcastAndSave(ctx, room)
		return nil
	})
}

// RenameSeat renames a seat, carrying its occupants along.
func (o *Orchestrator) RenameSeat(ctx context.Context, project domain.ProjectID, oldID, newID domain.RoleID) error {
	return o.withRoom(project, func(room *core.Room) error {
		if _, err := room.RenameSeat(oldID, newID); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Msg("rename failed")
			return err
		}
		for _, c := range o.Registry.At(project, oldID) {
			o.Registry.UpdateSeat(c, project, newID)
		}
		o.broadcastAndSave(ctx, room)
		return nil
	})
}

// RemoveSeat deletes a seat. Its occupants become unseated. A room left
// without seats is closed.
func (o *Orchestrator) RemoveSeat(ctx context.Context, project domain.ProjectID, role domain.RoleID) error {
	return o.withRoom(project, func(room *core.Room) error {
		if _, err := room.RemoveSeat(role); err != nil {
			log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Msg("remove seat failed")
			return err
		}
		for _, c := range o.Registry.At(project, role) {
			o.Registry.UpdateSeat(c, "", "")
		}
		if room.SeatCount() == 0 {
			o.closeLocked(ctx, room)
			return nil
		}
		o.broadcastAndSave(ctx, room)
		return nil
	})
}

// CacheContent stores content a connection reports for its own seat.
func (o *Orchestrator) CacheContent(ctx context.Context, id domain.ConnID, content domain.RoleContent) error {
	c, ok := o.Registry.WithID(id)
	if !ok {
		return ErrUnknownConnection
	}
	return o.withConnection(c, nil, func(project domain.ProjectID, role domain.RoleID, seated bool) error {
		if !seated {
			return ErrNotSeated
		}
		room, ok := o.Rooms.Get(project)
		if !ok {
			return fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
		}
		return room.CacheSeatContent(role, content)
	})
}

func (o *Orchestrator) broadcastAndSave(ctx context.Context, room *core.Room) {
	if _, err := o.BroadcastRoomUpdate(ctx, room.ID()); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("project", string(room.ID())).Msg("broadcast failed")
	}
	if o.Store == nil {
		return
	}
	if err := room.Save(ctx, o.Store, o.contentTimeout); err != nil {
		log.Error().Err(err).Str("module", "orch").Str("project", string(room.ID())).Msg("save failed")
	}
}
