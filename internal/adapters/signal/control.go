package signal

func (ctl *SignalWSController) handlePing(
	conn *WsSignalConn,
) {
	resp := struct {
		Type string `json:"type"`
	}{
		Type: MsgPong,
	}
	ctl.sendJSON(conn, resp)
}
