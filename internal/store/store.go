// Package store keeps the site's small amount of state in SQLite: visitor
// metrics with hashed IPs, per-project 3D interaction counters, and the
// contact form inbox.
package store

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite database.
type Store struct {
	db   *sql.DB
	salt string
	now  func() time.Time
}

// Open opens (creating if needed) the database at path and migrates it.
// The IP hashing salt is generated per process, so hashes are consistent
// within a run but cannot be joined across restarts.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + path
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_time_format=sqlite"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// SQLite allows one writer; tracking writes happen in the background.
	db.SetMaxOpenConns(1)

	salt := make([]byte, 32)
	if _, err := rand.Read(salt); err != nil {
		db.Close()
		return nil, fmt.Errorf("generate salt: %w", err)
	}

	s := &Store{db: db, salt: hex.EncodeToString(salt), now: time.Now}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// HashIP hashes an IP address with the process salt and truncates it, so
// visits can be counted as unique without storing the address.
func (s *Store) HashIP(ip string) string {
	h := sha256.Sum256([]byte(ip + s.salt))
	return hex.EncodeToString(h[:])[:16]
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		render_mode TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS visitors_timestamp ON visitors(timestamp)`,
	`CREATE TABLE IF NOT EXISTS interactions (
		project_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		last_at DATETIME NOT NULL,
		PRIMARY KEY (project_id, kind)
	)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		body TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0
	)`,
}

// Migrate creates any missing tables. It is safe to run repeatedly.
func (s *Store) Migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Visit is one tracked page view.
type Visit struct {
	ID         int64     `json:"id"`
	HashedIP   string    `json:"hashed_ip"`
	UserAgent  string    `json:"user_agent"`
	Path       string    `json:"path"`
	RenderMode string    `json:"render_mode"`
	Timestamp  time.Time `json:"timestamp"`
}

// RecordVisit stores a page view. The IP is hashed before it is written.
func (s *Store) RecordVisit(ctx context.Context, ip, userAgent, path, renderMode string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, render_mode, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		s.HashIP(ip), userAgent, path, renderMode, s.now().UTC())
	if err != nil {
		return fmt.Errorf("record visit: %w", err)
	}
	return nil
}

// RecentVisitors returns the latest n visits, newest first.
func (s *Store) RecentVisitors(ctx context.Context, n int) ([]Visit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), render_mode, timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []Visit
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.RenderMode, &v.Timestamp); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

// Cleanup deletes visits older than retention and returns how many went.
func (s *Store) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, s.now().UTC().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("cleanup visitors: %w", err)
	}
	return res.RowsAffected()
}

// Interaction kinds.
const (
	KindOrbit = "orbit"
	KindOpen  = "open"
)

// ErrUnknownKind is returned for an interaction kind other than KindOrbit
// or KindOpen.
var ErrUnknownKind = errors.New("unknown interaction kind")

// RecordInteraction bumps the counter for a project's 3D thumbnail.
func (s *Store) RecordInteraction(ctx context.Context, projectID, kind string) error {
	switch kind {
	case KindOrbit, KindOpen:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO interactions (project_id, kind, count, last_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(project_id, kind) DO UPDATE SET count = count + 1, last_at = excluded.last_at`,
		projectID, kind, now)
	if err != nil {
		return fmt.Errorf("record interaction: %w", err)
	}
	return nil
}

// ProjectStat sums the interactions with one project.
type ProjectStat struct {
	ProjectID string    `json:"project_id"`
	Orbits    int64     `json:"orbits"`
	Opens     int64     `json:"opens"`
	LastAt    time.Time `json:"last_at"`
}

// Message is a contact form submission.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	Delivered bool      `json:"delivered"`
}

// SaveMessage stores a new message and fills in its id and time.
func (s *Store) SaveMessage(ctx context.Context, m *Message) error {
	m.ID = uuid.NewString()
	m.CreatedAt = s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, name, email, body, created_at, delivered)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.Email, m.Body, m.CreatedAt, m.Delivered)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// MarkDelivered records that a message was emailed.
func (s *Store) MarkDelivered(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE messages SET delivered = 1 WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// Messages returns the latest n messages, newest first.
func (s *Store) Messages(ctx context.Context, n int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, body, created_at, delivered
		FROM messages
		ORDER BY created_at DESC
		LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Body, &m.CreatedAt, &m.Delivered); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// DeleteMessage removes a message by id.
func (s *Store) DeleteMessage(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
