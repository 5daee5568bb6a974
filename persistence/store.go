// Package persistence is the bridge to durable per-player state. The
// in-memory world stays authoritative: a failed write here is logged and
// retried on the next natural save trigger, never blocking gameplay.
package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// PlayerData is the stored slice of one player.
type PlayerData struct {
	ID       string
	Name     string
	XP       int64
	Hue      float64
	LastSeen time.Time
}

// Store is a sqlite-backed player store.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
	id        TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	xp        INTEGER NOT NULL DEFAULT 0,
	hue       REAL NOT NULL DEFAULT 0,
	last_seen INTEGER NOT NULL DEFAULT 0
);
`

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("persistence: create %q: %w", dir, err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("persistence: open %q: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("persistence: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

// GetPlayer loads stored fields for one player. A player never seen before
// returns (nil, nil).
func (s *Store) GetPlayer(ctx context.Context, playerID string) (*PlayerData, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, xp, hue, last_seen FROM players WHERE id = ?`, playerID)

	var (
		p        PlayerData
		lastSeen int64
	)
	p.ID = playerID
	if err := row.Scan(&p.Name, &p.XP, &p.Hue, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("persistence: load %q: %w", playerID, err)
	}
	p.LastSeen = time.UnixMilli(lastSeen)
	return &p, nil
}

// UpdatePlayer upserts one player's fields.
func (s *Store) UpdatePlayer(ctx context.Context, p PlayerData) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO players (id, name, xp, hue, last_seen)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			xp = excluded.xp,
			hue = excluded.hue,
			last_seen = excluded.last_seen`,
		p.ID, p.Name, p.XP, p.Hue, p.LastSeen.UnixMilli())
	if err != nil {
		return fmt.Errorf("persistence: save %q: %w", p.ID, err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
