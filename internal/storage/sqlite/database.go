// Package sqlite stores projects and their edit history in a local sqlite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/dkeye/Presence/internal/domain"
)

const latestActionKey = "latest_action_id"

type Database struct {
	db *sql.DB
}

func New(dbPath string) (*Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Str("module", "storage.sqlite").Str("path", dbPath).Msg("database initialized")
	return &Database{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL DEFAULT '',
		name TEXT NOT NULL DEFAULT '',
		collaborators TEXT NOT NULL DEFAULT '[]',
		origin_time INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS project_roles (
		project_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		display_name TEXT NOT NULL DEFAULT '',
		content BLOB,
		action_id INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (project_id, role_id),
		FOREIGN KEY (project_id) REFERENCES projects(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS actions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		project_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		data BLOB,
		created_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_actions_seat ON actions(project_id, role_id, id);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	`

	_, err := db.Exec(schema)
	return err
}

func (d *Database) Close() error {
	return d.db.Close()
}

/////////// ProjectStore ///////////

// GetMetadata returns (nil, nil) when the project has never been saved.
func (d *Database) GetMetadata(ctx context.Context, id domain.ProjectID) (*domain.ProjectMeta, error) {
	row := d.db.QueryRowContext(ctx,
		"SELECT owner, name, collaborators, origin_time FROM projects WHERE id = ?",
		id,
	)

	meta := domain.ProjectMeta{ID: id}
	var collaborators string
	var origin int64
	err := row.Scan(&meta.Owner, &meta.Name, &collaborators, &origin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(collaborators), &meta.Collaborators); err != nil {
		return nil, fmt.Errorf("decode collaborators of %s: %w", id, err)
	}
	if origin != 0 {
		meta.OriginTime = time.Unix(0, origin)
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT role_id, display_name FROM project_roles WHERE project_id = ?",
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	meta.Roles = make(map[domain.RoleID]domain.RoleMeta)
	for rows.Next() {
		var role domain.RoleID
		var rm domain.RoleMeta
		if err := rows.Scan(&role, &rm.DisplayName); err != nil {
			return nil, err
		}
		meta.Roles[role] = rm
	}
	return &meta, rows.Err()
}

// GetLastCheckpointedActionID returns the newest action already folded into
// the seat's saved content, or 0 when the seat was never saved.
func (d *Database) GetLastCheckpointedActionID(ctx context.Context, id domain.ProjectID, role domain.RoleID) (domain.ActionID, error) {
	var action domain.ActionID
	err := d.db.QueryRowContext(ctx,
		"SELECT action_id FROM project_roles WHERE project_id = ? AND role_id = ?",
		id, role,
	).Scan(&action)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return action, err
}

// Persist replaces the saved seats of a project. Every seat is checkpointed
// at the newest action recorded for it.
func (d *Database) Persist(ctx context.Context, id domain.ProjectID, content map[domain.RoleID]domain.RoleContent, meta domain.ProjectMeta) error {
	collaborators := meta.Collaborators
	if collaborators == nil {
		collaborators = []string{}
	}
	encoded, err := json.Marshal(collaborators)
	if err != nil {
		return err
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (id, owner, name, collaborators, origin_time, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			owner = excluded.owner,
			name = excluded.name,
			collaborators = excluded.collaborators,
			origin_time = excluded.origin_time,
			updated_at = excluded.updated_at`,
		id, meta.Owner, meta.Name, string(encoded), meta.OriginTime.UnixNano(), time.Now().UnixNano(),
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM project_roles WHERE project_id = ?", id); err != nil {
		return err
	}
	for role, c := range content {
		name := c.Name
		if rm, ok := meta.Roles[role]; ok && rm.DisplayName != "" {
			name = rm.DisplayName
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO project_roles (project_id, role_id, display_name, content, action_id)
			VALUES (?, ?, ?, ?, (SELECT COALESCE(MAX(id), 0) FROM actions WHERE project_id = ? AND role_id = ?))`,
			id, role, name, c.Body, id, role,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetRoleContent returns the saved content of one seat, or nil when absent.
func (d *Database) GetRoleContent(ctx context.Context, id domain.ProjectID, role domain.RoleID) (*domain.RoleContent, error) {
	var c domain.RoleContent
	err := d.db.QueryRowContext(ctx,
		"SELECT display_name, content FROM project_roles WHERE project_id = ? AND role_id = ?",
		id, role,
	).Scan(&c.Name, &c.Body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

/////////// ActionLog ///////////

// RecordAction appends one edit to a seat's history.
func (d *Database) RecordAction(ctx context.Context, id domain.ProjectID, role domain.RoleID, data []byte) (domain.ActionID, error) {
	res, err := d.db.ExecContext(ctx,
		"INSERT INTO actions (project_id, role_id, data, created_at) VALUES (?, ?, ?, ?)",
		id, role, data, time.Now().UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	n, err := res.LastInsertId()
	return domain.ActionID(n), err
}

func (d *Database) SetLatestActionID(ctx context.Context, id domain.ActionID) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		latestActionKey, id,
	)
	return err
}

// LatestActionID returns the id last stored by SetLatestActionID.
func (d *Database) LatestActionID(ctx context.Context) (domain.ActionID, error) {
	var id domain.ActionID
	err := d.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", latestActionKey).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return id, err
}

// DiscardActionsAfter deletes the seat's actions newer than after that were
// recorded before the given time.
func (d *Database) DiscardActionsAfter(ctx context.Context, id domain.ProjectID, role domain.RoleID, after domain.ActionID, before time.Time) error {
	res, err := d.db.ExecContext(ctx,
		"DELETE FROM actions WHERE project_id = ? AND role_id = ? AND id > ? AND created_at < ?",
		id, role, after, before.UnixNano(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		log.Debug().Str("module", "storage.sqlite").Str("project", string(id)).Str("role", string(role)).Int64("deleted", n).Msg("actions discarded")
	}
	return nil
}

func (d *Database) GetStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int)

	var projectCount int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM projects").Scan(&projectCount); err != nil {
		return nil, err
	}
	stats["project_count"] = projectCount

	var actionCount int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM actions").Scan(&actionCount); err != nil {
		return nil, err
	}
	stats["action_count"] = actionCount

	latest, err := d.LatestActionID(ctx)
	if err != nil {
		return nil, err
	}
	stats["latest_action_id"] = int(latest)

	return stats, nil
}
