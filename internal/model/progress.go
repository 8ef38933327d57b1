package model

import "time"

// ProgressStatus represents the completion status of an exercise, lesson,
// or course.
type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
	StatusFailed     ProgressStatus = "failed"
)

// ExerciseProgress tracks a single exercise. Attempts count only real
// answer submissions, never control commands.
type ExerciseProgress struct {
	ExerciseID  string         `json:"exercise_id"`
	Status      ProgressStatus `json:"status"`
	Attempts    int            `json:"attempts"`
	UserAnswer  string         `json:"user_answer,omitempty"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}

// Resolved reports whether the exercise no longer blocks its lesson:
// either completed or skipped (failed).
func (ep *ExerciseProgress) Resolved() bool {
	return ep.Status == StatusCompleted || ep.Status == StatusFailed
}

// LessonProgress tracks one lesson. ExerciseProgress is index-aligned with
// the lesson's exercises.
type LessonProgress struct {
	LessonID         string             `json:"lesson_id"`
	Status           ProgressStatus     `json:"status"`
	ExerciseProgress []ExerciseProgress `json:"exercise_progress"`
	StartedAt        *time.Time         `json:"started_at,omitempty"`
	CompletedAt      *time.Time         `json:"completed_at,omitempty"`
}

// AllResolved reports whether every exercise is completed or skipped.
// A lesson with skipped exercises can still finish; see CourseProgress
// for the stricter course-completion rule.
func (lp *LessonProgress) AllResolved() bool {
	for i := range lp.ExerciseProgress {
		if !lp.ExerciseProgress[i].Resolved() {
			return false
		}
	}
	return true
}

// CompletionPercent returns the share of completed exercises, 0-100.
func (lp *LessonProgress) CompletionPercent() float64 {
	if len(lp.ExerciseProgress) == 0 {
		return 0
	}
	done := 0
	for i := range lp.ExerciseProgress {
		if lp.ExerciseProgress[i].Status == StatusCompleted {
			done++
		}
	}
	return float64(done) / float64(len(lp.ExerciseProgress)) * 100
}

// CourseProgress tracks an entire course. LessonProgress is index-aligned
// with the course's lessons.
type CourseProgress struct {
	CourseID           string           `json:"course_id"`
	UserID             string           `json:"user_id"`
	Status             ProgressStatus   `json:"status"`
	LessonProgress     []LessonProgress `json:"lesson_progress"`
	CurrentLessonIndex int              `json:"current_lesson_index"`
	StartedAt          *time.Time       `json:"started_at,omitempty"`
	CompletedAt        *time.Time       `json:"completed_at,omitempty"`
}

// IsCompleted reports full course completion: every lesson completed and
// every single exercise completed. A skipped (failed) exercise resolves
// its lesson but keeps the course from completing.
func (cp *CourseProgress) IsCompleted() bool {
	if len(cp.LessonProgress) == 0 {
		return false
	}
	for i := range cp.LessonProgress {
		lp := &cp.LessonProgress[i]
		if lp.Status != StatusCompleted {
			return false
		}
		for j := range lp.ExerciseProgress {
			if lp.ExerciseProgress[j].Status != StatusCompleted {
				return false
			}
		}
	}
	return true
}

// MarkLessonComplete records lesson completion and, when the whole course
// is done, stamps the course-level status as well.
func (cp *CourseProgress) MarkLessonComplete(lessonID string, now time.Time) {
	for i := range cp.LessonProgress {
		lp := &cp.LessonProgress[i]
		if lp.LessonID != lessonID {
			continue
		}
		lp.Status = StatusCompleted
		if lp.CompletedAt == nil {
			t := now
			lp.CompletedAt = &t
		}
	}
	if cp.IsCompleted() {
		cp.Status = StatusCompleted
		if cp.CompletedAt == nil {
			t := now
			cp.CompletedAt = &t
		}
	}
}

// CompletionPercent returns the share of completed exercises across the
// whole course, 0-100.
func (cp *CourseProgress) CompletionPercent() float64 {
	total, done := 0, 0
	for i := range cp.LessonProgress {
		for j := range cp.LessonProgress[i].ExerciseProgress {
			total++
			if cp.LessonProgress[i].ExerciseProgress[j].Status == StatusCompleted {
				done++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// NewCourseProgress builds a progress tree index-aligned 1:1 with the
// course's lessons and exercises, everything not_started.
func NewCourseProgress(course *Course, userID string) CourseProgress {
	lps := make([]LessonProgress, len(course.Lessons))
	for i, l := range course.Lessons {
		eps := make([]ExerciseProgress, len(l.Exercises))
		for j, ex := range l.Exercises {
			eps[j] = ExerciseProgress{ExerciseID: ex.ID, Status: StatusNotStarted}
		}
		lps[i] = LessonProgress{
			LessonID:         l.ID,
			Status:           StatusNotStarted,
			ExerciseProgress: eps,
		}
	}
	return CourseProgress{
		CourseID:       course.ID,
		UserID:         userID,
		Status:         StatusNotStarted,
		LessonProgress: lps,
	}
}
