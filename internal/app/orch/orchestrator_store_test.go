package orch

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Presence/internal/domain"
	"github.com/dkeye/Presence/internal/storage/sqlite"
)

func openStore(t *testing.T) *sqlite.Database {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "presence.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// A project reopened from the store and saved again keeps the content of
// seats nobody sat in.
func TestReopenedProjectKeepsSavedContent(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()

	meta := domain.ProjectMeta{
		ID:         "proj",
		Owner:      "alice",
		Name:       "Pets",
		OriginTime: time.Unix(1700000000, 0),
		Roles: map[domain.RoleID]domain.RoleMeta{
			"cat": {DisplayName: "cat"},
			"dog": {DisplayName: "dog"},
		},
	}
	content := map[domain.RoleID]domain.RoleContent{
		"cat": {Name: "cat", Body: []byte("meow")},
		"dog": {Name: "dog", Body: []byte("woof")},
	}
	require.NoError(t, db.Persist(ctx, "proj", content, meta))

	o := newTestOrch(db, db, Options{})
	alice, _ := connect(t, o, "c1", "alice")
	require.NoError(t, o.SetState(ctx, alice.ID(), "proj", "dog", ""))

	saved, err := o.Save(ctx, alice.ID())
	require.NoError(t, err)
	require.Equal(t, domain.ProjectID("proj"), saved)

	for role, want := range map[domain.RoleID]string{"cat": "meow", "dog": "woof"} {
		got, err := db.GetRoleContent(ctx, "proj", role)
		require.NoError(t, err)
		require.NotNil(t, got, role)
		assert.Equal(t, want, string(got.Body), role)
	}

	got, err := o.RoleContent(ctx, "proj", "cat")
	require.NoError(t, err)
	assert.Equal(t, "meow", string(got.Body))
}

// Closing the project leaves the store answering for its seats.
func TestRoleContentFallsBackToStoreAfterClose(t *testing.T) {
	db := openStore(t)
	ctx := context.Background()

	o := newTestOrch(db, db, Options{})
	alice, _ := connect(t, o, "c1", "alice")
	require.NoError(t, o.SetState(ctx, alice.ID(), "proj", "cat", ""))
	require.NoError(t, o.CacheContent(ctx, alice.ID(), domain.RoleContent{Body: []byte("purr")}))
	_, err := o.Save(ctx, alice.ID())
	require.NoError(t, err)

	require.NoError(t, o.CloseProject(ctx, alice.ID()))
	_, ok := o.Rooms.Get("proj")
	require.False(t, ok)

	got, err := o.RoleContent(ctx, "proj", "cat")
	require.NoError(t, err)
	assert.Equal(t, "purr", string(got.Body))
}
