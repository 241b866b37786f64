package signal

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

func TestFetchContentResolved(t *testing.T) {
	sc := newWsSignalConn(nil, 4)
	type result struct {
		content domain.RoleContent
		err     error
	}
	results := make(chan result, 1)
	go func() {
		c, err := sc.FetchContent(context.Background())
		results <- result{c, err}
	}()

	frame := <-sc.send
	assert.Equal(t, MsgExportRole, gjson.GetBytes(frame, "type").String())
	id := gjson.GetBytes(frame, "id").String()
	require.NotEmpty(t, id)

	ctl := &SignalWSController{}
	reply := fmt.Sprintf(`{"type":"role-content","id":%q,"name":"cat","content":"<cat/>"}`, id)
	assert.True(t, ctl.answersRequest(sc, []byte(reply)))

	res := <-results
	require.NoError(t, res.err)
	assert.Equal(t, "cat", res.content.Name)
	assert.Equal(t, []byte("<cat/>"), res.content.Body)

	sc.pendingMu.Lock()
	assert.Empty(t, sc.pending)
	sc.pendingMu.Unlock()
}

func TestFetchContentFailures(t *testing.T) {
	t.Run("context done", func(t *testing.T) {
		sc := newWsSignalConn(nil, 4)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, err := sc.FetchContent(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
	t.Run("send buffer full", func(t *testing.T) {
		sc := newWsSignalConn(nil, 0)
		_, err := sc.FetchContent(context.Background())
		assert.ErrorIs(t, err, ErrBackpressure)
	})
}

func TestAnswersRequestIgnoresOtherMessages(t *testing.T) {
	sc := newWsSignalConn(nil, 4)
	ctl := &SignalWSController{}

	assert.False(t, ctl.answersRequest(sc, []byte(`{"type":"ping"}`)))
	assert.False(t, ctl.answersRequest(sc, []byte(`{"type":"role-content","name":"cat"}`)))
	assert.False(t, ctl.answersRequest(sc, []byte(`{"type":"role-content","id":"nobody","name":"cat"}`)))
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{orch.ErrNotSeated, "not_seated"},
		{orch.ErrForbidden, "forbidden"},
		{fmt.Errorf("project p: %w", orch.ErrUnknownRoom), "unknown_project"},
		{orch.ErrInvalidSeat, "bad_payload"},
		{fmt.Errorf("move to %q: %w", "x", core.ErrUnknownSeat), "unknown_role"},
		{core.ErrSeatTaken, "role_taken"},
		{core.ErrRoomClosed, "project_closed"},
		{errors.New("boom"), "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.err), tt.err.Error())
	}
}

/////////// over a real socket ///////////

func newTestServer(t *testing.T, opts Options) (*orch.Orchestrator, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	o := orch.New(app.NewRegistry(), core.NewRoomManager(), nil, nil, orch.Options{})
	ctl := NewSignalWSController(o, opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return o, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(msg)))
}

// expect reads until a message of type typ arrives.
func expect(t *testing.T, ws *websocket.Conn, typ string) gjson.Result {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		if gjson.GetBytes(data, "type").String() == typ {
			return gjson.ParseBytes(data)
		}
	}
}

func TestSignalPingAndLogin(t *testing.T) {
	_, url := newTestServer(t, Options{})
	ws := dial(t, url)

	send(t, ws, `{"type":"ping"}`)
	expect(t, ws, MsgPong)

	send(t, ws, `{"type":"whoami"}`)
	who := expect(t, ws, MsgWhoAmI)
	assert.False(t, who.Get("loggedIn").Bool())
	assert.Equal(t, gjson.Null, who.Get("username").Type)

	send(t, ws, `{"type":"login","username":"alice"}`)
	who = expect(t, ws, MsgWhoAmI)
	assert.True(t, who.Get("loggedIn").Bool())
	assert.Equal(t, "alice", who.Get("username").String())

	send(t, ws, `{"type":"login","username":""}`)
	assert.Equal(t, "invalid_name", expect(t, ws, MsgError).Get("error").String())

	send(t, ws, `not json`)
	assert.Equal(t, "bad_payload", expect(t, ws, MsgError).Get("error").String())
}

func TestSignalLoginWithSecret(t *testing.T) {
	_, url := newTestServer(t, Options{Secret: "s3cret"})
	ws := dial(t, url)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "bob"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	send(t, ws, `{"type":"login","username":"mallory","token":"forged"}`)
	assert.Equal(t, "unauthorized", expect(t, ws, MsgError).Get("error").String())

	send(t, ws, fmt.Sprintf(`{"type":"login","username":"mallory","token":%q}`, token))
	assert.Equal(t, "bob", expect(t, ws, MsgWhoAmI).Get("username").String())
}

func TestSignalSetStateBroadcasts(t *testing.T) {
	_, url := newTestServer(t, Options{})
	a, b := dial(t, url), dial(t, url)

	send(t, a, `{"type":"set-state","projectId":"proj","roleId":"cat","username":"A"}`)
	snap := expect(t, a, core.MsgRoomRoles)
	assert.Equal(t, "A", snap.Get("roles.cat.occupants.0.username").String())

	send(t, b, `{"type":"set-state","projectId":"proj","roleId":"dog","username":"B"}`)
	expect(t, b, core.MsgRoomRoles)
	snap = expect(t, a, core.MsgRoomRoles)
	assert.Equal(t, "B", snap.Get("roles.dog.occupants.0.username").String())
	assert.Equal(t, "A", snap.Get("roles.cat.occupants.0.username").String())

	send(t, a, `{"type":"user-action","action":"draw"}`)
	assert.Equal(t, "draw", expect(t, b, MsgUserAction).Get("action").String())
}

func TestSignalFetchesContentOnLeave(t *testing.T) {
	o, url := newTestServer(t, Options{})
	ws := dial(t, url)

	send(t, ws, `{"type":"set-state","projectId":"proj","roleId":"cat"}`)
	expect(t, ws, core.MsgRoomRoles)

	// the handler waits for this reply while still running
	send(t, ws, `{"type":"set-state","projectId":"proj","roleId":"dog"}`)
	req := expect(t, ws, MsgExportRole)
	send(t, ws, fmt.Sprintf(`{"type":"role-content","id":%q,"name":"cat","content":"<cat/>"}`, req.Get("id").String()))

	snap := expect(t, ws, core.MsgRoomRoles)
	assert.Equal(t, int64(1), snap.Get("roles.dog.occupants.#").Int())

	room, ok := o.Rooms.Get("proj")
	require.True(t, ok)
	content, ok := room.CachedContent("cat")
	require.True(t, ok)
	assert.Equal(t, []byte("<cat/>"), content.Body)
}

func TestSignalRateLimitsSetState(t *testing.T) {
	_, url := newTestServer(t, Options{StateRateLimit: 1, StateRateInterval: time.Hour})
	ws := dial(t, url)

	send(t, ws, `{"type":"set-state","projectId":"proj","roleId":"cat"}`)
	expect(t, ws, core.MsgRoomRoles)
	send(t, ws, `{"type":"set-state","projectId":"other","roleId":"cat"}`)
	assert.Equal(t, "rate_limited", expect(t, ws, MsgError).Get("error").String())
}

func TestSignalUnseatedRequests(t *testing.T) {
	_, url := newTestServer(t, Options{})
	ws := dial(t, url)

	send(t, ws, `{"type":"add-role","role":"fox"}`)
	assert.Equal(t, "not_seated", expect(t, ws, MsgError).Get("error").String())
	send(t, ws, `{"type":"save"}`)
	assert.Equal(t, "not_seated", expect(t, ws, MsgError).Get("error").String())
	send(t, ws, `{"type":"set-state","projectId":"proj"}`)
	assert.Equal(t, "bad_payload", expect(t, ws, MsgError).Get("error").String())
}

func TestSignalDisconnectVacatesSeat(t *testing.T) {
	o, url := newTestServer(t, Options{})
	ws := dial(t, url)

	send(t, ws, `{"type":"set-state","projectId":"proj","roleId":"cat"}`)
	expect(t, ws, core.MsgRoomRoles)
	require.Equal(t, 1, o.Registry.Count())

	require.NoError(t, ws.Close())
	assert.Eventually(t, func() bool { return o.Registry.Count() == 0 }, 5*time.Second, 10*time.Millisecond)

	room, ok := o.Rooms.Get("proj")
	require.True(t, ok)
	assert.True(t, room.IsEmpty())
}
