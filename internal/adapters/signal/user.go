package signal

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

func (ctl *SignalWSController) handleLogin(
	ctx context.Context,
	conn *core.Connection,
	ws *WsSignalConn,
	data []byte,
) {
	type loginPayload struct {
		Type     string `json:"type"`
		Username string `json:"username"`
		Token    string `json:"token,omitempty"`
	}
	var p loginPayload
	if !ctl.decode(ws, data, &p) {
		return
	}

	username := p.Username
	if ctl.verifier != nil {
		name, err := ctl.verifier.Username(p.Token)
		if err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("login token rejected")
			ctl.sendError(ws, "unauthorized")
			return
		}
		username = name
	}

	if err := ctl.Orch.Login(ctx, conn.ID(), username); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("login failed")
		ctl.sendError(ws, "invalid_name")
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Str("username", username).Msg("login")
	ctl.handleWhoAmI(conn, ws)
}

func (ctl *SignalWSController) handleWhoAmI(
	conn *core.Connection,
	ws *WsSignalConn,
) {
	resp := struct {
		Type      string           `json:"type"`
		UUID      domain.ConnID    `json:"uuid"`
		Username  *string          `json:"username"`
		LoggedIn  bool             `json:"loggedIn"`
		ProjectID domain.ProjectID `json:"projectId,omitempty"`
		RoleID    domain.RoleID    `json:"roleId,omitempty"`
	}{
		Type:     MsgWhoAmI,
		UUID:     conn.ID(),
		Username: domain.NewOccupant(conn.ID(), conn.Username()).Username,
		LoggedIn: conn.LoggedIn(),
	}
	if project, role, ok := conn.Seat(); ok {
		resp.ProjectID = project
		resp.RoleID = role
	}
	ctl.sendJSON(ws, resp)
}
