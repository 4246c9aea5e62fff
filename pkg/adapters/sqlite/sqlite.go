// Package sqlite stores templates and sessions in a SQLite database through
// the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS templates (
	id TEXT PRIMARY KEY,
	name TEXT,
	status TEXT NOT NULL,
	document BLOB NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	template_id TEXT NOT NULL,
	status TEXT NOT NULL,
	data BLOB NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);`

// DB owns the connection shared by Templates and Sessions.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn and applies the schema.
func Open(dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite dsn is required")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// In-memory databases live as long as their single connection.
	if strings.Contains(dsn, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite set WAL mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite create schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Templates returns the template repository backed by d.
func (d *DB) Templates() *Templates {
	return &Templates{db: d.db}
}

// Sessions returns the session store backed by d.
func (d *DB) Sessions() *Sessions {
	return &Sessions{db: d.db}
}

// Templates implements ports.TemplateRepository. Documents are stored in the
// canonical JSON form and validated again on every read.
type Templates struct {
	db *sql.DB
}

// GetPublishedGraph returns the graph if it exists and is published.
func (t *Templates) GetPublishedGraph(ctx context.Context, templateID string) (*domain.FlowGraph, error) {
	var (
		status string
		doc    []byte
	)
	err := t.db.QueryRowContext(ctx,
		`SELECT status, document FROM templates WHERE id = ?`, templateID).Scan(&status, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, templateID)
	}
	if err != nil {
		return nil, fmt.Errorf("template sqlite get: %w", err)
	}
	if domain.TemplateStatus(status) != domain.TemplatePublished {
		return nil, fmt.Errorf("%w: %s", domain.ErrTemplateNotPublished, templateID)
	}
	return graph.Load(doc)
}

// Save inserts or replaces the graph.
func (t *Templates) Save(ctx context.Context, g *domain.FlowGraph) error {
	if g.TemplateID == "" {
		return errors.New("template id is required")
	}
	doc, err := graph.Serialize(g)
	if err != nil {
		return err
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = t.db.ExecContext(ctx, `
INSERT INTO templates (id, name, status, document, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	name = excluded.name,
	status = excluded.status,
	document = excluded.document,
	updated_at = excluded.updated_at`,
		g.TemplateID, g.Name, string(g.Status), doc, now, now)
	if err != nil {
		return fmt.Errorf("template sqlite save: %w", err)
	}
	return nil
}

// List returns every template id in lexical order.
func (t *Templates) List(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, t.db, `SELECT id FROM templates ORDER BY id`)
}

// Delete removes a template.
func (t *Templates) Delete(ctx context.Context, templateID string) error {
	if _, err := t.db.ExecContext(ctx, `DELETE FROM templates WHERE id = ?`, templateID); err != nil {
		return fmt.Errorf("template sqlite delete: %w", err)
	}
	return nil
}

// Sessions implements ports.SessionStore.
type Sessions struct {
	db *sql.DB
}

// Save inserts or replaces the session snapshot.
func (s *Sessions) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO sessions (id, template_id, status, data, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	template_id = excluded.template_id,
	status = excluded.status,
	data = excluded.data,
	updated_at = excluded.updated_at`,
		session.ID, session.TemplateID, string(session.Status), data,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("session sqlite save: %w", err)
	}
	return nil
}

// Load retrieves the session.
func (s *Sessions) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM sessions WHERE id = ?`, sessionID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("session sqlite load: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	if session.Variables == nil {
		session.Variables = make(map[string]any)
	}
	return &session, nil
}

// Delete removes the session.
func (s *Sessions) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("session sqlite delete: %w", err)
	}
	return nil
}

// List returns every session id in lexical order.
func (s *Sessions) List(ctx context.Context) ([]string, error) {
	return queryIDs(ctx, s.db, `SELECT id FROM sessions ORDER BY id`)
}

func queryIDs(ctx context.Context, db *sql.DB, query string) ([]string, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite list scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list rows: %w", err)
	}
	return ids, nil
}
