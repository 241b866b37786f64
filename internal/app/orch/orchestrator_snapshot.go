package orch

import (
	"context"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// GetRoomSnapshot describes the membership of project. A live room answers
// directly; otherwise the seats come from the project store and the
// occupants from the registry.
func (o *Orchestrator) GetRoomSnapshot(ctx context.Context, project domain.ProjectID) (core.RoomSnapshot, error) {
	if room, ok := o.Rooms.Get(project); ok {
		return room.Snapshot(), nil
	}
	if o.Store == nil {
		return core.RoomSnapshot{}, fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
	}
	meta, err := o.Store.GetMetadata(ctx, project)
	if err != nil {
		return core.RoomSnapshot{}, fmt.Errorf("load project %s: %w", project, err)
	}
	if meta == nil {
		return core.RoomSnapshot{}, fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
	}
	return o.snapshotFromMeta(meta), nil
}

func (o *Orchestrator) snapshotFromMeta(meta *domain.ProjectMeta) core.RoomSnapshot {
	roles := make(map[domain.RoleID]core.RoleState, len(meta.Roles))
	for role, rm := range meta.Roles {
		name := rm.DisplayName
		if name == "" {
			name = string(role)
		}
		occupants := []domain.Occupant{}
		for _, c := range o.Registry.At(meta.ID, role) {
			occupants = append(occupants, domain.NewOccupant(c.ID(), c.Username()))
		}
		roles[role] = core.RoleState{Name: name, Occupants: occupants}
	}
	collaborators := slices.Clone(meta.Collaborators)
	if collaborators == nil {
		collaborators = []string{}
	}
	return core.RoomSnapshot{
		Type:          core.MsgRoomRoles,
		Owner:         meta.Owner,
		ID:            meta.ID,
		Collaborators: collaborators,
		Name:          meta.Name,
		Roles:         roles,
	}
}

// BroadcastRoomUpdate sends the current snapshot of project to every
// connection seated in it and returns that snapshot.
func (o *Orchestrator) BroadcastRoomUpdate(ctx context.Context, project domain.ProjectID) (core.RoomSnapshot, error) {
	snap, err := o.GetRoomSnapshot(ctx, project)
	if err != nil {
		return snap, err
	}
	frame, err := json.Marshal(snap)
	if err != nil {
		return snap, fmt.Errorf("encode snapshot: %w", err)
	}
	room, _ := o.Rooms.Get(project)
	conns := o.Registry.AtProject(project)
	for _, c := range conns {
		o.deliver(room, c, frame)
	}
	log.Debug().Str("module", "orch").Str("project", string(project)).Uint64("version", snap.Version).Int("recipients", len(conns)).Msg("room update broadcast")
	return snap, nil
}

// onClientLeave broadcasts the room a connection left and truncates the
// edit history of each of roles that is now vacant.
func (o *Orchestrator) onClientLeave(ctx context.Context, project domain.ProjectID, roles ...domain.RoleID) {
	snap, err := o.BroadcastRoomUpdate(ctx, project)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Msg("broadcast after leave failed")
		return
	}
	for _, role := range roles {
		if snap.IsVacant(role) {
			o.onSeatEmptied(ctx, project, role)
		}
	}
}

// RoleContent returns the last known content of a seat: the live room's
// cache when the project is open, the saved copy otherwise.
func (o *Orchestrator) RoleContent(ctx context.Context, project domain.ProjectID, role domain.RoleID) (domain.RoleContent, error) {
	if room, ok := o.Rooms.Get(project); ok {
		if !room.HasSeat(role) {
			return domain.RoleContent{}, fmt.Errorf("role %s: %w", role, core.ErrUnknownSeat)
		}
		c, ok := room.CachedContent(role)
		if !ok {
			c = domain.RoleContent{Name: string(role)}
		}
		return c, nil
	}
	if o.Store == nil {
		return domain.RoleContent{}, fmt.Errorf("project %s: %w", project, ErrUnknownRoom)
	}
	c, err := o.Store.GetRoleContent(ctx, project, role)
	if err != nil {
		return domain.RoleContent{}, fmt.Errorf("load project %s role %s: %w", project, role, err)
	}
	if c == nil {
		return domain.RoleContent{}, fmt.Errorf("project %s role %s: %w", project, role, core.ErrUnknownSeat)
	}
	return *c, nil
}

// onSeatEmptied discards the edits recorded for a vacated seat after its
// last checkpoint.
func (o *Orchestrator) onSeatEmptied(ctx context.Context, project domain.ProjectID, role domain.RoleID) {
	if o.Store == nil || o.Actions == nil {
		return
	}
	end := o.now()
	id, err := o.Store.GetLastCheckpointedActionID(ctx, project, role)
	if err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Str("role", string(role)).Msg("could not read checkpoint")
		return
	}
	if err := o.Actions.SetLatestActionID(ctx, id); err != nil {
		log.Warn().Err(err).Str("module", "orch").Int64("action", int64(id)).Msg("could not set latest action id")
		return
	}
	if err := o.Actions.DiscardActionsAfter(ctx, project, role, id, end); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("project", string(project)).Str("role", string(role)).Msg("could not discard actions")
		return
	}
	log.Info().Str("module", "orch").Str("project", string(project)).Str("role", string(role)).Int64("action", int64(id)).Msg("seat emptied, history truncated")
}
