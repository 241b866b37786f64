package signal

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

func (ctl *SignalWSController) handleSetState(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	type statePayload struct {
		Type      string `json:"type"`
		ProjectID string `json:"projectId"`
		RoleID    string `json:"roleId"`
		Username  string `json:"username,omitempty"`
	}
	var p statePayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	if !ctl.limiter.Allow(conn.ID()) {
		log.Warn().Str("module", "signal").Str("conn", string(conn.ID())).Msg("set-state rate limited")
		ctl.sendError(ws, "rate_limited")
		return
	}

	// a logged-in name is not overwritten by what the client claims
	username := p.Username
	if conn.LoggedIn() {
		username = ""
	}
	err := ctl.Orch.SetState(ctx, conn.ID(), domain.ProjectID(p.ProjectID), domain.RoleID(p.RoleID), username)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Str("project", p.ProjectID).Msg("set-state failed")
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) handleMove(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	type movePayload struct {
		Type string `json:"type"`
		From string `json:"from,omitempty"`
		To   string `json:"to"`
	}
	var p movePayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	if err := ctl.Orch.Move(ctx, conn.ID(), domain.RoleID(p.From), domain.RoleID(p.To)); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

type rolePayload struct {
	Type string `json:"type"`
	Role string `json:"role"`
	Name string `json:"name,omitempty"`
}

func (ctl *SignalWSController) handleAddRole(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	var p rolePayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	project, ok := ctl.seatedProject(conn, ws)
	if !ok {
		return
	}
	if err := ctl.Orch.CreateSeat(ctx, project, domain.RoleID(p.Role)); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) handleRenameRole(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	var p rolePayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	project, ok := ctl.seatedProject(conn, ws)
	if !ok {
		return
	}
	if err := ctl.Orch.RenameSeat(ctx, project, domain.RoleID(p.Role), domain.RoleID(p.Name)); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) handleRemoveRole(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	var p rolePayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	project, ok := ctl.seatedProject(conn, ws)
	if !ok {
		return
	}
	if err := ctl.Orch.RemoveSeat(ctx, project, domain.RoleID(p.Role)); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

// handleRoleContent caches content the client pushed without being asked.
func (ctl *SignalWSController) handleRoleContent(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	var p roleContentPayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	if err := ctl.Orch.CacheContent(ctx, conn.ID(), p.content()); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("content not cached")
	}
}

func (ctl *SignalWSController) handleUserAction(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	if _, err := ctl.Orch.RelayAction(ctx, conn.ID(), data); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) handleSave(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
) {
	id, err := ctl.Orch.Save(ctx, conn.ID())
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("save failed")
		ctl.sendError(ws, errorCode(err))
		return
	}
	resp := struct {
		Type string           `json:"type"`
		ID   domain.ProjectID `json:"id"`
	}{
		Type: MsgProjectSaved,
		ID:   id,
	}
	ctl.sendJSON(ws, resp)
}

func (ctl *SignalWSController) handleFork(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
) {
	if _, err := ctl.Orch.Fork(ctx, conn.ID()); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) handleRenameProject(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	type namePayload struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}
	var p namePayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	if p.Name == "" {
		ctl.sendError(ws, "empty name")
		return
	}
	if err := ctl.Orch.RenameProject(ctx, conn.ID(), p.Name); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) handleCollaborator(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
	add bool,
) {
	type collaboratorPayload struct {
		Type     string `json:"type"`
		Username string `json:"username"`
	}
	var p collaboratorPayload
	if !ctl.decode(ws, data, &p) {
		return
	}
	if err := domain.ValidateUsername(p.Username); err != nil {
		ctl.sendError(ws, "invalid_name")
		return
	}
	var err error
	if add {
		err = ctl.Orch.AddCollaborator(ctx, conn.ID(), p.Username)
	} else {
		err = ctl.Orch.RemoveCollaborator(ctx, conn.ID(), p.Username)
	}
	if err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) handleCloseProject(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
) {
	if err := ctl.Orch.CloseProject(ctx, conn.ID()); err != nil {
		ctl.sendError(ws, errorCode(err))
	}
}

func (ctl *SignalWSController) seatedProject(conn *core.Connection, ws *WsSignalConn) (domain.ProjectID, bool) {
	project, _, ok := conn.Seat()
	if !ok {
		ctl.sendError(ws, "not_seated")
	}
	return project, ok
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, orch.ErrNotSeated):
		return "not_seated"
	case errors.Is(err, orch.ErrForbidden):
		return "forbidden"
	case errors.Is(err, orch.ErrUnknownRoom):
		return "unknown_project"
	case errors.Is(err, orch.ErrInvalidSeat):
		return "bad_payload"
	case errors.Is(err, core.ErrUnknownSeat):
		return "unknown_role"
	case errors.Is(err, core.ErrSeatTaken):
		return "role_taken"
	case errors.Is(err, core.ErrRoomClosed):
		return "project_closed"
	}
	return "internal"
}
