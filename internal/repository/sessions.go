package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/appleater7/chatgpt-ui/internal/domain"
)

// SessionStore is the persistence behind the authenticated admin directory.
type SessionStore interface {
	CreateSession(ctx context.Context, session *domain.Session) error
	GetSession(ctx context.Context, sessionID string) (*domain.Session, error)
	ListSessions(ctx context.Context) ([]domain.Session, error)

	AddActivity(ctx context.Context, activity *domain.SessionActivity) error
	ListActivities(ctx context.Context, sessionID string) ([]domain.SessionActivity, error)

	// SetActive updates is_active and last_active and appends an activity
	// row in one transaction. It returns false when the session is unknown.
	SetActive(ctx context.Context, sessionID string, active bool, action, details string) (bool, error)

	Close() error
}

// SQLiteSessionStore implements SessionStore using SQLite.
type SQLiteSessionStore struct {
	db    *sql.DB
	clock func() time.Time
}

// NewSQLiteSessionStore opens dsn, migrates and seeds the sample dataset on
// an empty database.
func NewSQLiteSessionStore(dsn string) (*SQLiteSessionStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteSessionStore{db: db, clock: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := store.seed(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to seed sessions: %w", err)
	}
	return store, nil
}

var _ SessionStore = (*SQLiteSessionStore)(nil)

func (s *SQLiteSessionStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS admin_sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			username TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_active DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			is_active INTEGER NOT NULL DEFAULT 1,
			ip_address TEXT NOT NULL,
			user_agent TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS session_activities (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			action TEXT NOT NULL,
			timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			details TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_session_activities_session ON session_activities(session_id, timestamp)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}
	return nil
}

// seed loads the sample dataset when admin_sessions is empty.
func (s *SQLiteSessionStore) seed(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admin_sessions`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, session := range SampleSessions() {
		if err := s.CreateSession(ctx, &session); err != nil {
			return err
		}
		for _, activity := range SampleActivities(session.ID) {
			if err := s.AddActivity(ctx, &activity); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteSessionStore) Close() error {
	return s.db.Close()
}

// CreateSession inserts a session.
func (s *SQLiteSessionStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO admin_sessions (id, user_id, username, created_at, last_active, is_active, ip_address, user_agent)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.UserID, session.Username, session.CreatedAt, session.LastActive,
		session.IsActive, session.IPAddress, session.UserAgent)
	return err
}

const sessionColumns = `id, user_id, username, created_at, last_active, is_active, ip_address, user_agent`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var session domain.Session
	if err := row.Scan(&session.ID, &session.UserID, &session.Username, &session.CreatedAt,
		&session.LastActive, &session.IsActive, &session.IPAddress, &session.UserAgent); err != nil {
		return nil, err
	}
	return &session, nil
}

// GetSession retrieves a session by ID.
func (s *SQLiteSessionStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM admin_sessions WHERE id = ?`, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ListSessions returns all sessions, most recently active first.
func (s *SQLiteSessionStore) ListSessions(ctx context.Context) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+` FROM admin_sessions ORDER BY last_active DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]domain.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	return sessions, rows.Err()
}

// AddActivity appends an activity row and sets activity.ID.
func (s *SQLiteSessionStore) AddActivity(ctx context.Context, activity *domain.SessionActivity) error {
	return addActivity(ctx, s.db, activity)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func addActivity(ctx context.Context, db execer, activity *domain.SessionActivity) error {
	res, err := db.ExecContext(ctx,
		`INSERT INTO session_activities (session_id, action, timestamp, details) VALUES (?, ?, ?, ?)`,
		activity.SessionID, activity.Action, activity.Timestamp, activity.Details)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	activity.ID = id
	return nil
}

// ListActivities returns the activity log of a session, oldest first.
func (s *SQLiteSessionStore) ListActivities(ctx context.Context, sessionID string) ([]domain.SessionActivity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, action, timestamp, details FROM session_activities
		 WHERE session_id = ? ORDER BY timestamp ASC, id ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.SessionActivity, 0)
	for rows.Next() {
		var a domain.SessionActivity
		var details sql.NullString
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Action, &a.Timestamp, &details); err != nil {
			return nil, err
		}
		if details.Valid {
			a.Details = details.String
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// SetActive flips a session's active flag and logs the change.
func (s *SQLiteSessionStore) SetActive(ctx context.Context, sessionID string, active bool, action, details string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	now := s.clock()
	res, err := tx.ExecContext(ctx,
		`UPDATE admin_sessions SET is_active = ?, last_active = ? WHERE id = ?`,
		active, now, sessionID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if err := addActivity(ctx, tx, &domain.SessionActivity{
		SessionID: sessionID,
		Action:    action,
		Timestamp: now,
		Details:   details,
	}); err != nil {
		return false, err
	}
	return true, tx.Commit()
}
