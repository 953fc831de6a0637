package host

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rcliao/persona-extended/internal/model"
)

// SQLiteStore persists host state: persona records, the live persona
// fields and extension settings.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates a SQLite database at the given path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &SQLiteStore{db: db, path: dbPath}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		avatar_id   TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		descriptor  TEXT NOT NULL,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_personas_name ON personas(name);

	CREATE TABLE IF NOT EXISTS host_state (
		id             INTEGER PRIMARY KEY CHECK (id = 1),
		current_avatar TEXT NOT NULL DEFAULT '',
		description    TEXT NOT NULL DEFAULT '',
		position       INTEGER NOT NULL DEFAULT 0,
		depth          INTEGER NOT NULL DEFAULT 2,
		role           INTEGER NOT NULL DEFAULT 0
	);
	INSERT OR IGNORE INTO host_state (id) VALUES (1);

	CREATE TABLE IF NOT EXISTS extension_settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Persona is a stored persona record.
type Persona struct {
	AvatarID   string                   `json:"avatar_id"`
	Name       string                   `json:"name"`
	Descriptor *model.PersonaDescriptor `json:"descriptor"`
	CreatedAt  time.Time                `json:"created_at"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// State is the host's live persona state.
type State struct {
	CurrentAvatar string
	Live          model.LiveConfig
}

// Snapshot is everything Host persists in one save.
type Snapshot struct {
	Personas []Persona
	State    State
	Settings ExtensionSettings
}

// LoadPersonas returns all stored personas. Records whose descriptor is
// not valid JSON are loaded with an empty descriptor.
func (s *SQLiteStore) LoadPersonas(ctx context.Context) ([]Persona, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT avatar_id, name, descriptor, created_at, updated_at FROM personas ORDER BY name, avatar_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []Persona
	for rows.Next() {
		var p Persona
		var raw, createdAt, updatedAt string
		if err := rows.Scan(&p.AvatarID, &p.Name, &raw, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.Descriptor, err = model.DecodeDescriptor([]byte(raw))
		if err != nil {
			p.Descriptor, _ = model.DecodeDescriptor(nil)
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

// LoadState returns the live persona state.
func (s *SQLiteStore) LoadState(ctx context.Context) (State, error) {
	var st State
	var pos, role int
	err := s.db.QueryRowContext(ctx,
		`SELECT current_avatar, description, position, depth, role FROM host_state WHERE id = 1`).
		Scan(&st.CurrentAvatar, &st.Live.Description, &pos, &st.Live.Depth, &role)
	if err != nil {
		return st, fmt.Errorf("load state: %w", err)
	}
	st.Live.Position = model.Position(pos)
	st.Live.Role = model.Role(role)
	return st, nil
}

// LoadSettings returns the extension settings, defaults filled in.
func (s *SQLiteStore) LoadSettings(ctx context.Context) (ExtensionSettings, error) {
	settings := DefaultExtensionSettings()
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM extension_settings WHERE key = ?`, settingsKey).Scan(&raw)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("load settings: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return DefaultExtensionSettings(), nil
	}
	return settings, nil
}

// Save writes a full snapshot in one transaction. Personas missing from
// the snapshot are deleted.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339)
	keep := make(map[string]bool, len(snap.Personas))
	for _, p := range snap.Personas {
		keep[p.AvatarID] = true
		raw, err := json.Marshal(p.Descriptor)
		if err != nil {
			return fmt.Errorf("encode persona %s: %w", p.AvatarID, err)
		}
		created := p.CreatedAt.UTC().Format(time.RFC3339)
		if p.CreatedAt.IsZero() {
			created = now
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO personas (avatar_id, name, descriptor, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(avatar_id) DO UPDATE SET
			   name = excluded.name,
			   descriptor = excluded.descriptor,
			   updated_at = excluded.updated_at
			 WHERE personas.descriptor != excluded.descriptor OR personas.name != excluded.name`,
			p.AvatarID, p.Name, string(raw), created, now)
		if err != nil {
			return fmt.Errorf("upsert persona %s: %w", p.AvatarID, err)
		}
	}

	rows, err := tx.QueryContext(ctx, `SELECT avatar_id FROM personas`)
	if err != nil {
		return err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	for _, id := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM personas WHERE avatar_id = ?`, id); err != nil {
			return fmt.Errorf("delete persona %s: %w", id, err)
		}
	}

	lc := snap.State.Live
	_, err = tx.ExecContext(ctx,
		`UPDATE host_state SET current_avatar = ?, description = ?, position = ?, depth = ?, role = ? WHERE id = 1`,
		snap.State.CurrentAvatar, lc.Description, int(lc.Position), lc.Depth, int(lc.Role))
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	raw, _ := json.Marshal(snap.Settings)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO extension_settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingsKey, string(raw))
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	return tx.Commit()
}

// Close closes the store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
