package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dkeye/Presence/internal/app"
	"github.com/dkeye/Presence/internal/app/orch"
	"github.com/dkeye/Presence/internal/core"
	"github.com/dkeye/Presence/internal/domain"
)

type fakeStats struct {
	stats map[string]int
	err   error
}

func (f fakeStats) GetStats(context.Context) (map[string]int, error) {
	return f.stats, f.err
}

func setup(t *testing.T, stats StatsSource) (*gin.Engine, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	o := orch.New(app.NewRegistry(), core.NewRoomManager(), nil, nil, orch.Options{})
	h := New(o, stats)

	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/api/rooms", h.ListRooms)
	r.GET("/api/rooms/:id", h.GetRoom)
	r.GET("/api/rooms/:id/roles/:role", h.GetRoleContent)
	r.GET("/api/stats", h.Stats)
	return r, o
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	r, _ := setup(t, nil)
	w := get(r, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", gjson.Get(w.Body.String(), "status").String())
}

func TestRooms(t *testing.T) {
	r, o := setup(t, nil)
	c := core.NewConnection("c1", "alice", nil)
	o.OnConnect(c)
	require.NoError(t, o.SetState(context.Background(), c.ID(), "proj", "cat", ""))

	w := get(r, "/api/rooms")
	require.Equal(t, http.StatusOK, w.Code)
	rooms := gjson.Get(w.Body.String(), "rooms")
	require.Len(t, rooms.Array(), 1)
	assert.Equal(t, "proj", rooms.Get("0.id").String())
	assert.Equal(t, "active", rooms.Get("0.state").String())

	w = get(r, "/api/rooms/proj")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", gjson.Get(w.Body.String(), "roles.cat.occupants.0.uuid").String())

	w = get(r, "/api/rooms/nowhere")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRoleContent(t *testing.T) {
	r, o := setup(t, nil)
	ctx := context.Background()
	c := core.NewConnection("c1", "alice", nil)
	o.OnConnect(c)
	require.NoError(t, o.SetState(ctx, c.ID(), "proj", "cat", ""))
	require.NoError(t, o.CacheContent(ctx, c.ID(), domain.RoleContent{Body: []byte("<cat/>")}))

	w := get(r, "/api/rooms/proj/roles/cat")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "cat", gjson.Get(w.Body.String(), "name").String())
	assert.Equal(t, "<cat/>", gjson.Get(w.Body.String(), "content").String())

	assert.Equal(t, http.StatusNotFound, get(r, "/api/rooms/proj/roles/dog").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/api/rooms/nowhere/roles/cat").Code)
}

func TestStats(t *testing.T) {
	r, _ := setup(t, fakeStats{stats: map[string]int{"project_count": 4}})
	w := get(r, "/api/stats")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Equal(t, int64(4), gjson.Get(body, "project_count").Int())
	assert.Equal(t, int64(0), gjson.Get(body, "active_rooms").Int())

	r, _ = setup(t, fakeStats{err: errors.New("offline")})
	w = get(r, "/api/stats")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
