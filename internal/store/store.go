// Package store persists threat assessments and emergency events in
// SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"guardian/internal/types"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// StorageError wraps a failed storage operation with its context.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store is the SQLite persistence layer.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open initializes the SQLite database at the given path, creating the
// directory and schema as needed.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &StorageError{Op: "create directory", Err: err}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, &StorageError{Op: "open database", Err: err}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.Exec("PRAGMA busy_timeout = 5000")
	db.Exec("PRAGMA journal_mode = WAL")
	db.Exec("PRAGMA synchronous = NORMAL")

	s := &Store{db: db}
	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threat_assessments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		threat_level TEXT NOT NULL,
		confidence REAL NOT NULL,
		recommended_action TEXT,
		reasoning TEXT,
		provider TEXT,
		tokens_used INTEGER,
		status TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_user ON threat_assessments(user_id, created_at);

	CREATE TABLE IF NOT EXISTS emergency_events (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		assessment_id TEXT NOT NULL,
		status TEXT NOT NULL,
		priority TEXT NOT NULL,
		location TEXT,
		context TEXT,
		services_contacted INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_events_user ON emergency_events(user_id, created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return &StorageError{Op: "initialize schema", Err: err}
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PutAssessment inserts or replaces a threat assessment.
func (s *Store) PutAssessment(ctx context.Context, ta types.ThreatAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO threat_assessments
		(id, user_id, threat_level, confidence, recommended_action, reasoning, provider, tokens_used, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ta.ID, ta.UserID, string(ta.Level), ta.Confidence, ta.RecommendedAction,
		ta.Reasoning, ta.Provider, ta.TokensUsed, string(ta.Status), ta.CreatedAt)
	if err != nil {
		return &StorageError{Op: "put assessment", Err: err}
	}
	return nil
}

// GetAssessment loads one assessment by id.
func (s *Store) GetAssessment(ctx context.Context, id string) (types.ThreatAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, threat_level, confidence, recommended_action, reasoning, provider, tokens_used, status, created_at
		FROM threat_assessments WHERE id = ?`, id)
	return scanAssessment(row)
}

// AssessmentsForUser returns a user's assessments, newest first.
func (s *Store) AssessmentsForUser(ctx context.Context, userID string, limit int) ([]types.ThreatAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, threat_level, confidence, recommended_action, reasoning, provider, tokens_used, status, created_at
		FROM threat_assessments WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, &StorageError{Op: "list assessments", Err: err}
	}
	defer rows.Close()

	var out []types.ThreatAssessment
	for rows.Next() {
		ta, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ta)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list assessments", Err: err}
	}
	return out, nil
}

// PutEvent inserts or replaces an emergency event.
func (s *Store) PutEvent(ctx context.Context, ev types.EmergencyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contextJSON, err := json.Marshal(ev.Context)
	if err != nil {
		return &StorageError{Op: "encode event context", Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO emergency_events
		(id, user_id, assessment_id, status, priority, location, context, services_contacted, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.UserID, ev.AssessmentID, string(ev.Status), string(ev.Priority),
		ev.Location, string(contextJSON), boolToInt(ev.ServicesContacted), ev.CreatedAt, ev.UpdatedAt)
	if err != nil {
		return &StorageError{Op: "put event", Err: err}
	}
	return nil
}

// GetEvent loads one emergency event by id.
func (s *Store) GetEvent(ctx context.Context, id string) (types.EmergencyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		ev          types.EmergencyEvent
		status      string
		priority    string
		contextJSON string
		contacted   int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, assessment_id, status, priority, location, context, services_contacted, created_at, updated_at
		FROM emergency_events WHERE id = ?`, id).Scan(
		&ev.ID, &ev.UserID, &ev.AssessmentID, &status, &priority,
		&ev.Location, &contextJSON, &contacted, &ev.CreatedAt, &ev.UpdatedAt)
	if err == sql.ErrNoRows {
		return ev, ErrNotFound
	}
	if err != nil {
		return ev, &StorageError{Op: "get event", Err: err}
	}

	ev.Status = types.EventStatus(status)
	ev.Priority = types.Priority(priority)
	ev.ServicesContacted = contacted != 0
	if contextJSON != "" {
		if err := json.Unmarshal([]byte(contextJSON), &ev.Context); err != nil {
			return ev, &StorageError{Op: "decode event context", Err: err}
		}
	}
	return ev, nil
}

// UpdateEventStatus changes an event's status and stamps updated_at.
func (s *Store) UpdateEventStatus(ctx context.Context, id string, status types.EventStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE emergency_events SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return &StorageError{Op: "update event status", Err: err}
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(row rowScanner) (types.ThreatAssessment, error) {
	var (
		ta     types.ThreatAssessment
		level  string
		status string
	)
	err := row.Scan(&ta.ID, &ta.UserID, &level, &ta.Confidence, &ta.RecommendedAction,
		&ta.Reasoning, &ta.Provider, &ta.TokensUsed, &status, &ta.CreatedAt)
	if err == sql.ErrNoRows {
		return ta, ErrNotFound
	}
	if err != nil {
		return ta, &StorageError{Op: "scan assessment", Err: err}
	}
	ta.Level = types.ThreatLevel(level)
	ta.Status = types.AssessmentStatus(status)
	return ta, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
