// Package history keeps a SQLite log of every graded submission so that
// completed sessions can be reviewed and exported after the fact. Logging
// is best-effort: the session loop treats failures here as warnings.
package history

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pavelanni/skillforge/internal/model"

	_ "modernc.org/sqlite"
)

// Store wraps the attempts database.
type Store struct {
	db *sql.DB
}

// Open opens (and migrates) the attempts database at dbPath. Use
// ":memory:" in tests.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		exercise_id TEXT NOT NULL,
		answer TEXT NOT NULL,
		status TEXT NOT NULL,
		score REAL NOT NULL DEFAULT 0,
		match_type TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_session ON attempts(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordAttempt inserts one graded submission and returns its row id.
func (s *Store) RecordAttempt(rec model.AttemptRecord) (int64, error) {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	res, err := s.db.Exec(
		`INSERT INTO attempts (session_id, exercise_id, answer, status, score, match_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SessionID, rec.ExerciseID, rec.Answer, rec.Status, rec.Score, rec.MatchType, createdAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	return res.LastInsertId()
}

// ListAttempts returns all attempts for a session in submission order.
func (s *Store) ListAttempts(sessionID string) ([]model.AttemptRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, exercise_id, answer, status, score, match_type, created_at
		 FROM attempts WHERE session_id = ? ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []model.AttemptRecord
	for rows.Next() {
		var rec model.AttemptRecord
		if err := rows.Scan(&rec.ID, &rec.SessionID, &rec.ExerciseID, &rec.Answer,
			&rec.Status, &rec.Score, &rec.MatchType, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// AttemptCount returns the number of logged attempts for a session.
func (s *Store) AttemptCount(sessionID string) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM attempts WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}

// ExportSession joins a persisted session with its attempt rows into an
// export-ready structure.
func (s *Store) ExportSession(sess *model.LearningSession) (*model.SessionExport, error) {
	attempts, err := s.ListAttempts(sess.SessionID)
	if err != nil {
		return nil, fmt.Errorf("list attempts for %s: %w", sess.SessionID, err)
	}
	return &model.SessionExport{
		SessionID:         sess.SessionID,
		Topic:             sess.Course.Topic,
		Difficulty:        sess.Course.Difficulty,
		State:             sess.State,
		CreatedAt:         sess.CreatedAt,
		LastActivityAt:    sess.LastActivityAt,
		CompletionPercent: sess.Progress.CompletionPercent(),
		Attempts:          attempts,
	}, nil
}
