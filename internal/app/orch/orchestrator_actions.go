package orch

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

// ActionRecorder appends edits to a seat's history.
type ActionRecorder interface {
	RecordAction(ctx context.Context, project domain.ProjectID, role domain.RoleID, data []byte) (domain.ActionID, error)
}

// RelayAction records an edit made by connection id and forwards it to the
// other connections in the same project.
func (o *Orchestrator) RelayAction(ctx context.Context, id domain.ConnID, frame core.Frame) (domain.ActionID, error) {
	c, ok := o.Registry.WithID(id)
	if !ok {
		return 0, ErrUnknownConnection
	}
	var action domain.ActionID
	err := o.withConnection(c, nil, func(project domain.ProjectID, role domain.RoleID, seated bool) error {
		if !seated {
			return ErrNotSeated
		}
		if o.Recorder != nil {
			var err error
			if action, err = o.Recorder.RecordAction(ctx, project, role, frame); err != nil {
				log.Error().Err(err).Str("module", "orch").Str("project", string(project)).Str("role", string(role)).Msg("could not record action")
				return err
			}
		}
		room, _ := o.Rooms.Get(project)
		for _, other := range o.Registry.AtProject(project) {
			if other != c {
				o.deliver(room, other, frame)
			}
		}
		return nil
	})
	return action, err
}
