package history

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	profile_json  TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	ended_at      TEXT
);

CREATE TABLE IF NOT EXISTS transitions (
	version_id    TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	parent_id     TEXT,
	from_level    TEXT NOT NULL,
	to_level      TEXT NOT NULL,
	trigger_type  TEXT NOT NULL,
	metrics_json  TEXT,
	reason        TEXT,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id),
	FOREIGN KEY (parent_id) REFERENCES transitions(version_id)
);

CREATE INDEX IF NOT EXISTS transitions_session ON transitions(session_id);

CREATE TABLE IF NOT EXISTS active_level (
	session_id    TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id),
	FOREIGN KEY (version_id) REFERENCES transitions(version_id)
);
`

// #endregion schema

// #region store-struct
// Store records sessions and their tier transitions in SQLite.
type Store struct {
	db *sql.DB
}

// ErrNoTransitions is returned by Current for a session with no recorded change.
var ErrNoTransitions = errors.New("no transitions recorded")

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Timer callbacks record from their own goroutines; one connection
	// serializes writers.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region sessions
// OpenSession starts a session for a surface with the given profile.
func (s *Store) OpenSession(profile device.DeviceProfile) (Session, error) {
	sess := Session{
		ID:        uuid.New().String(),
		Profile:   profile,
		StartedAt: time.Now().UTC(),
	}
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return Session{}, fmt.Errorf("marshal profile: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, profile_json, started_at) VALUES (?, ?, ?)`,
		sess.ID, string(profileJSON), sess.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// UpdateProfile replaces the stored profile, used once detection resolves
// after the session was opened.
func (s *Store) UpdateProfile(sessionID string, profile device.DeviceProfile) error {
	profileJSON, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}
	res, err := s.db.Exec(`UPDATE sessions SET profile_json = ? WHERE session_id = ?`,
		string(profileJSON), sessionID)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return requireRow(res, sessionID)
}

// CloseSession stamps the session's end time.
func (s *Store) CloseSession(sessionID string) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET ended_at = ? WHERE session_id = ? AND ended_at IS NULL`,
		time.Now().UTC().Format(time.RFC3339Nano), sessionID,
	)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return requireRow(res, sessionID)
}

// GetSession reads one session.
func (s *Store) GetSession(sessionID string) (Session, error) {
	row := s.db.QueryRow(
		`SELECT session_id, profile_json, started_at, ended_at FROM sessions WHERE session_id = ?`,
		sessionID,
	)
	sess, err := scanSession(row)
	if err != nil {
		return Session{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return sess, nil
}

// ListSessions returns the most recent sessions first.
func (s *Store) ListSessions(limit int) ([]Session, error) {
	rows, err := s.db.Query(
		`SELECT session_id, profile_json, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// #endregion sessions

// #region record
// Record appends a transition to the session's chain and moves its active
// pointer in one transaction.
func (s *Store) Record(sessionID string, t controller.Transition) (TransitionRecord, error) {
	rec := TransitionRecord{
		VersionID: uuid.New().String(),
		SessionID: sessionID,
		From:      t.From,
		To:        t.To,
		Trigger:   t.Trigger,
		Metrics:   t.Metrics,
		Reason:    t.Reason,
		CreatedAt: t.At.UTC(),
	}
	if t.At.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	metricsJSON, err := json.Marshal(t.Metrics)
	if err != nil {
		return TransitionRecord{}, fmt.Errorf("marshal metrics: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return TransitionRecord{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var parent sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_level WHERE session_id = ?`, sessionID).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return TransitionRecord{}, fmt.Errorf("get active: %w", err)
	}
	if parent.Valid {
		rec.ParentID = parent.String
	}

	_, err = tx.Exec(
		`INSERT INTO transitions (version_id, session_id, parent_id, from_level, to_level, trigger_type, metrics_json, reason, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.VersionID, sessionID, nullIfEmpty(rec.ParentID), string(rec.From), string(rec.To),
		string(rec.Trigger), string(metricsJSON), nullIfEmpty(rec.Reason),
		rec.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return TransitionRecord{}, fmt.Errorf("insert transition: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO active_level (session_id, version_id) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET version_id = excluded.version_id`,
		sessionID, rec.VersionID,
	)
	if err != nil {
		return TransitionRecord{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return TransitionRecord{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion record

// #region read
// Current returns the session's latest transition.
func (s *Store) Current(sessionID string) (TransitionRecord, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_level WHERE session_id = ?`, sessionID).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return TransitionRecord{}, fmt.Errorf("session %s: %w", sessionID, ErrNoTransitions)
	}
	if err != nil {
		return TransitionRecord{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetTransition(versionID)
}

// GetTransition retrieves one transition by version id.
func (s *Store) GetTransition(versionID string) (TransitionRecord, error) {
	row := s.db.QueryRow(
		`SELECT version_id, session_id, parent_id, from_level, to_level, trigger_type, metrics_json, reason, created_at
		 FROM transitions WHERE version_id = ?`, versionID,
	)
	rec, err := scanTransition(row)
	if err != nil {
		return TransitionRecord{}, fmt.Errorf("get transition %s: %w", versionID, err)
	}
	return rec, nil
}

// ListTransitions returns up to limit transitions of a session in commit order.
func (s *Store) ListTransitions(sessionID string, limit int) ([]TransitionRecord, error) {
	rows, err := s.db.Query(
		`SELECT version_id, session_id, parent_id, from_level, to_level, trigger_type, metrics_json, reason, created_at
		 FROM transitions WHERE session_id = ? ORDER BY rowid ASC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var records []TransitionRecord
	for rows.Next() {
		rec, err := scanTransition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion read

// #region helpers
type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (Session, error) {
	var sess Session
	var profileJSON, startedStr string
	var endedStr sql.NullString
	if err := row.Scan(&sess.ID, &profileJSON, &startedStr, &endedStr); err != nil {
		return Session{}, err
	}
	if err := json.Unmarshal([]byte(profileJSON), &sess.Profile); err != nil {
		return Session{}, fmt.Errorf("unmarshal profile: %w", err)
	}
	sess.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	if endedStr.Valid {
		sess.EndedAt, _ = time.Parse(time.RFC3339Nano, endedStr.String)
	}
	return sess, nil
}

func scanTransition(row scanner) (TransitionRecord, error) {
	var rec TransitionRecord
	var parentID, metricsJSON, reason sql.NullString
	var from, to, trigger, createdStr string
	err := row.Scan(&rec.VersionID, &rec.SessionID, &parentID, &from, &to, &trigger,
		&metricsJSON, &reason, &createdStr)
	if err != nil {
		return TransitionRecord{}, err
	}
	rec.ParentID = parentID.String
	rec.From = quality.Level(from)
	rec.To = quality.Level(to)
	rec.Trigger = controller.Trigger(trigger)
	rec.Reason = reason.String
	if metricsJSON.Valid {
		var m perf.Metrics
		if err := json.Unmarshal([]byte(metricsJSON.String), &m); err != nil {
			return TransitionRecord{}, fmt.Errorf("unmarshal metrics: %w", err)
		}
		rec.Metrics = m
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

func requireRow(res sql.Result, sessionID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("session %s not found or already closed", sessionID)
	}
	return nil
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
