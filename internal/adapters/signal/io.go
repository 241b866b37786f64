package signal

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"
	"github.com/tidwall/gjson"

	"github.com/dkeye/Presence/internal/core"
)

// serve runs one connection until its socket closes. Inbound messages are
// handled in order on this goroutine; the read pump only answers content
// requests inline so a handler waiting on its own client cannot stall.
func (ctl *SignalWSController) serve(ctx context.Context, conn *core.Connection, c *WsSignalConn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	wg.Go(func() { ctl.writePump(ctx, c) })
	wg.Go(func() { ctl.readPump(conn, c) })

	for data := range c.inbox {
		ctl.handleSignal(ctx, conn, c, data)
	}

	ctl.Orch.OnDisconnect(context.Background(), conn)
	ctl.limiter.Forget(conn.ID())
	c.Close()
	cancel()
	wg.Wait()
}

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(conn *core.Connection, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Msg("readPump closing")
		close(c.inbox)
	}()

	pongWait := ctl.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(ctl.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(conn.ID())).Msg("readPump read error")
			}
			return
		}
		if ctl.answersRequest(c, data) {
			continue
		}
		select {
		case c.inbox <- data:
		default:
			log.Warn().Str("module", "signal").Str("conn", string(conn.ID())).Msg("inbox full, message dropped")
			ctl.sendError(c, "busy")
		}
	}
}

// answersRequest resolves a role-content reply to a pending content request.
func (ctl *SignalWSController) answersRequest(c *WsSignalConn, data []byte) bool {
	if gjson.GetBytes(data, "type").String() != MsgRoleContent {
		return false
	}
	id := gjson.GetBytes(data, "id").String()
	if id == "" {
		return false
	}
	var p roleContentPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return false
	}
	return c.resolve(id, p.content())
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, conn *core.Connection, c *WsSignalConn, data []byte) {
	typ := gjson.GetBytes(data, "type")
	if !typ.Exists() {
		log.Error().Str("module", "signal").Str("conn", string(conn.ID())).Msg("bad json")
		ctl.sendError(c, "bad_payload")
		return
	}

	switch typ.String() {
	case MsgPing:
		ctl.handlePing(c)
	case MsgWhoAmI:
		ctl.handleWhoAmI(conn, c)
	case MsgLogin:
		ctl.handleLogin(ctx, conn, c, data)
	case MsgSetState:
		ctl.handleSetState(ctx, conn, c, data)
	case MsgMove:
		ctl.handleMove(ctx, conn, c, data)
	case MsgAddRole:
		ctl.handleAddRole(ctx, conn, c, data)
	case MsgRenameRole:
		ctl.handleRenameRole(ctx, conn, c, data)
	case MsgRemoveRole:
		ctl.handleRemoveRole(ctx, conn, c, data)
	case MsgRoleContent:
		ctl.handleRoleContent(ctx, conn, c, data)
	case MsgUserAction:
		ctl.handleUserAction(ctx, conn, c, data)
	case MsgSave:
		ctl.handleSave(ctx, conn, c)
	case MsgFork:
		ctl.handleFork(ctx, conn, c)
	case MsgRenameProject:
		ctl.handleRenameProject(ctx, conn, c, data)
	case MsgAddCollaborator:
		ctl.handleCollaborator(ctx, conn, c, data, true)
	case MsgRemoveCollaborator:
		ctl.handleCollaborator(ctx, conn, c, data, false)
	case MsgCloseProject:
		ctl.handleCloseProject(ctx, conn, c)
	default:
		log.Warn().Str("module", "signal").Str("type", typ.String()).Msg("unknown signal")
	}
}

func encode(v any) (core.Frame, error) {
	return json.Marshal(v)
}

func (ctl *SignalWSController) sendJSON(c *WsSignalConn, v any) {
	b, err := encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}

func (ctl *SignalWSController) sendError(c *WsSignalConn, reason string) {
	ctl.sendJSON(c, errorMessage{Type: MsgError, Error: reason})
}

// decode unmarshals a payload, answering the client on failure.
func (ctl *SignalWSController) decode(c *WsSignalConn, data []byte, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad payload")
		ctl.sendError(c, "bad_payload")
		return false
	}
	return true
}
