package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionState represents the lifecycle state of a learning session.
type SessionState string

const (
	SessionActive    SessionState = "active"
	SessionPaused    SessionState = "paused"
	SessionCompleted SessionState = "completed"
	SessionAbandoned SessionState = "abandoned"
)

// LearningSession is the unit of persistence: one learner's position and
// progress within one course snapshot. One JSON file per session.
type LearningSession struct {
	SessionID         string         `json:"session_id"`
	Course            Course         `json:"course"`
	Progress          CourseProgress `json:"progress"`
	State             SessionState   `json:"state"`
	CurrentLessonID   string         `json:"current_lesson_id,omitempty"`
	CurrentExerciseID string         `json:"current_exercise_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	LastActivityAt    time.Time      `json:"last_activity_at"`
	PausedAt          *time.Time     `json:"paused_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
}

// NewLearningSession creates an active session owning a deep copy of the
// course and a fresh progress tree positioned at the first exercise.
func NewLearningSession(course *Course, userID string) *LearningSession {
	snapshot := course.Clone()
	now := time.Now()
	s := &LearningSession{
		SessionID:      uuid.NewString(),
		Course:         *snapshot,
		Progress:       NewCourseProgress(snapshot, userID),
		State:          SessionActive,
		CreatedAt:      now,
		LastActivityAt: now,
	}
	if len(snapshot.Lessons) > 0 {
		s.CurrentLessonID = snapshot.Lessons[0].ID
		if len(snapshot.Lessons[0].Exercises) > 0 {
			s.CurrentExerciseID = snapshot.Lessons[0].Exercises[0].ID
		}
	}
	return s
}

// Touch updates the last-activity timestamp.
func (s *LearningSession) Touch() {
	s.LastActivityAt = time.Now()
}

// Pause moves the session to paused and records when.
func (s *LearningSession) Pause() {
	s.State = SessionPaused
	now := time.Now()
	s.PausedAt = &now
	s.LastActivityAt = now
}

// Resume reactivates a session regardless of its persisted state.
func (s *LearningSession) Resume() {
	s.State = SessionActive
	s.PausedAt = nil
	s.LastActivityAt = time.Now()
}

// Complete marks the session finished.
func (s *LearningSession) Complete() {
	s.State = SessionCompleted
	now := time.Now()
	s.CompletedAt = &now
	s.LastActivityAt = now
}

// Abandon marks the session terminally abandoned.
func (s *LearningSession) Abandon() {
	s.State = SessionAbandoned
	s.LastActivityAt = time.Now()
}
