package model

import "time"

// AttemptRecord is one graded submission as logged by the history store.
type AttemptRecord struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	ExerciseID string    `json:"exercise_id"`
	Answer     string    `json:"answer"`
	Status     string    `json:"status"`
	Score      float64   `json:"score"`
	MatchType  string    `json:"match_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// SessionExport is the top-level JSON structure for the export command:
// the persisted session joined with its attempt history.
type SessionExport struct {
	SessionID         string          `json:"session_id"`
	Topic             string          `json:"topic"`
	Difficulty        Difficulty      `json:"difficulty"`
	State             SessionState    `json:"state"`
	CreatedAt         time.Time       `json:"created_at"`
	LastActivityAt    time.Time       `json:"last_activity_at"`
	CompletionPercent float64         `json:"completion_percent"`
	Attempts          []AttemptRecord `json:"attempts"`
}
