package store

import (
	"database/sql"
	"time"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
	"github.com/desertthunder/floater/internal/shared"
)

// SQLiteStore keeps the refresh token in the credentials table and records auth events.
//
// The schema comes from [shared.RunMigrations].
type SQLiteStore struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB, logger *log.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger.With("component", "sqlite_store")}
}

func (s *SQLiteStore) Save(token string) error {
	if token == "" {
		return ErrEmptyToken
	}

	_, err := s.db.Exec(`
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		Key, token, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed to save token to database")
	}
	return nil
}

func (s *SQLiteStore) Load() (string, bool, error) {
	var token string
	err := s.db.QueryRow("SELECT value FROM credentials WHERE key = ?", Key).Scan(&token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, errors.Wrap(err, "failed to load token from database")
	}

	if token == "" {
		s.logger.Warn("stored token is empty, removing it")
		_ = s.Clear()
		return "", false, nil
	}
	return token, true, nil
}

func (s *SQLiteStore) Clear() error {
	if _, err := s.db.Exec("DELETE FROM credentials WHERE key = ?", Key); err != nil {
		return errors.Wrap(err, "failed to delete token from database")
	}
	return nil
}

// Event is a recorded authentication transition.
type Event struct {
	ID        string
	Kind      string
	Detail    string
	CreatedAt time.Time
}

// RecordEvent appends an entry to auth_events.
func (s *SQLiteStore) RecordEvent(kind, detail string) error {
	_, err := s.db.Exec("INSERT INTO auth_events (id, kind, detail, created_at) VALUES (?, ?, ?, ?)",
		shared.GenerateID(), kind, detail, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "failed to record auth event")
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (s *SQLiteStore) RecentEvents(limit int) ([]Event, error) {
	rows, err := s.db.Query("SELECT id, kind, detail, created_at FROM auth_events ORDER BY created_at DESC, rowid DESC LIMIT ?", limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query auth events")
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Kind, &e.Detail, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan auth event")
		}
		events = append(events, e)
	}
	return events, errors.Wrap(rows.Err(), "failed to iterate auth events")
}
