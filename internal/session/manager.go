// Package session drives the interactive learning loop: it walks the
// course's lessons and exercises, routes answers through the simulator and
// validator, tracks progress, and persists the session after every state
// change that matters.
package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/pavelanni/skillforge/internal/i18n"
	"github.com/pavelanni/skillforge/internal/model"
	"github.com/pavelanni/skillforge/internal/simulator"
	"github.com/pavelanni/skillforge/internal/validator"
)

// Simulator is the slice of the command simulator the manager needs.
type Simulator interface {
	Simulate(ctx context.Context, command, exerciseCtx string) simulator.Result
	Reset()
}

// Validator grades answers and produces hints.
type Validator interface {
	Validate(ctx context.Context, ex *model.Exercise, answer, exerciseCtx string) validator.Result
	GenerateHint(ctx context.Context, ex *model.Exercise, answer string, attemptNumber int) string
}

// Display renders session output and collects learner input.
type Display interface {
	Welcome(course *model.Course)
	LessonHeader(lesson *model.Lesson, num, total int)
	Exercise(ex *model.Exercise, num, total int)
	SimulationOutput(output string)
	ValidationResult(res validator.Result)
	Hint(hint string, attempt int)
	LessonComplete(lesson *model.Lesson, lp *model.LessonProgress)
	CourseComplete(cp *model.CourseProgress)
	ProgressSummary(cp *model.CourseProgress)
	CommandsHelp()
	Notice(msg string)
	PromptAnswer() (string, error)
	PromptContinue() (bool, error)
}

// AttemptRecorder logs graded submissions. May be nil; logging is
// best-effort and never interrupts the loop.
type AttemptRecorder interface {
	RecordAttempt(rec model.AttemptRecord) (int64, error)
}

// Control-command vocabulary, matched case-insensitively against whole
// answers before anything is simulated or graded.
var specialCommands = map[string]struct{}{
	"hint":   {},
	"skip":   {},
	"quit":   {},
	"exit":   {},
	"help":   {},
	"status": {},
}

type exerciseOutcome int

const (
	outcomeCompleted exerciseOutcome = iota
	outcomeSkipped
	outcomeQuit
)

type specialAction int

const (
	actionContinue specialAction = iota
	actionSkip
	actionQuit
)

// Manager orchestrates one learning session.
type Manager struct {
	session   *model.LearningSession
	sim       Simulator
	val       Validator
	disp      Display
	history   AttemptRecorder
	dataDir   string
	hintCount int
}

// NewManager wraps an existing session. history may be nil.
func NewManager(sess *model.LearningSession, sim Simulator, val Validator, disp Display, dataDir string, history AttemptRecorder) *Manager {
	return &Manager{
		session: sess,
		sim:     sim,
		val:     val,
		disp:    disp,
		history: history,
		dataDir: dataDir,
	}
}

// CreateNewSession builds a fresh session for the course, with progress
// arrays index-aligned 1:1 to lessons and exercises.
func CreateNewSession(course *model.Course, userID string, sim Simulator, val Validator, disp Display, dataDir string, history AttemptRecorder) *Manager {
	sess := model.NewLearningSession(course, userID)
	return NewManager(sess, sim, val, disp, dataDir, history)
}

// Session exposes the managed session (read-mostly; tests and the CLI
// status path use it).
func (m *Manager) Session() *model.LearningSession { return m.session }

// Run executes the interactive loop until the course completes, the
// learner quits or declines to continue, or ctx is canceled (interrupt).
// Progress is always persisted before Run returns.
func (m *Manager) Run(ctx context.Context) error {
	sess := m.session
	progress := &sess.Progress

	sess.State = model.SessionActive
	progress.Status = model.StatusInProgress
	if progress.StartedAt == nil {
		now := time.Now()
		progress.StartedAt = &now
	}

	m.disp.Welcome(&sess.Course)

	interrupted := m.runLessons(ctx)
	if interrupted && ctx.Err() != nil {
		m.disp.Notice(i18n.T("Session.Interrupted"))
		sess.Pause()
		m.saveProgress()
		return nil
	}

	if progress.IsCompleted() {
		sess.Complete()
		m.disp.CourseComplete(progress)
	} else if sess.State != model.SessionPaused {
		sess.Pause()
	}
	m.saveProgress()
	return nil
}

// runLessons iterates lessons from the saved position. Returns true when
// the loop stopped early (quit, decline, or interrupt).
func (m *Manager) runLessons(ctx context.Context) bool {
	sess := m.session
	course := &sess.Course
	progress := &sess.Progress

	for idx := progress.CurrentLessonIndex; idx < len(course.Lessons); idx++ {
		progress.CurrentLessonIndex = idx
		lesson := &course.Lessons[idx]
		lp := &progress.LessonProgress[idx]

		if lp.Status == model.StatusCompleted {
			continue
		}

		lp.Status = model.StatusInProgress
		if lp.StartedAt == nil {
			now := time.Now()
			lp.StartedAt = &now
		}
		sess.CurrentLessonID = lesson.ID
		m.disp.LessonHeader(lesson, idx+1, len(course.Lessons))

		if stopped := m.runLessonExercises(ctx, lesson, lp); stopped {
			return true
		}

		progress.MarkLessonComplete(lesson.ID, time.Now())
		m.disp.LessonComplete(lesson, lp)

		if idx < len(course.Lessons)-1 {
			cont, err := m.disp.PromptContinue()
			if err != nil || !cont {
				sess.Pause()
				m.saveProgress()
				return true
			}
		}
	}
	return false
}

// runLessonExercises runs every unresolved exercise in order. Returns true
// if the learner quit (skips do not stop the lesson).
func (m *Manager) runLessonExercises(ctx context.Context, lesson *model.Lesson, lp *model.LessonProgress) bool {
	for i := range lesson.Exercises {
		ex := &lesson.Exercises[i]
		ep := &lp.ExerciseProgress[i]

		// Completed and skipped (failed) exercises are both resolved.
		if ep.Resolved() {
			continue
		}

		m.session.CurrentExerciseID = ex.ID
		m.disp.Exercise(ex, i+1, len(lesson.Exercises))

		// Fresh simulator per exercise: no filesystem or Python state
		// survives exercise boundaries.
		m.sim.Reset()

		if m.runExercise(ctx, ex, ep) == outcomeQuit {
			return true
		}
	}
	return false
}

// runExercise is the per-exercise prompt loop.
func (m *Manager) runExercise(ctx context.Context, ex *model.Exercise, ep *model.ExerciseProgress) exerciseOutcome {
	m.hintCount = 0
	ep.Status = model.StatusInProgress

	for {
		if ctx.Err() != nil {
			return outcomeQuit
		}

		raw, err := m.disp.PromptAnswer()
		if err != nil {
			// Input stream closed: same path as an explicit quit.
			m.session.Pause()
			m.saveProgress()
			return outcomeQuit
		}

		answer := normalizeAnswer(raw)
		if _, special := specialCommands[strings.ToLower(answer)]; special {
			switch m.handleSpecialCommand(ctx, strings.ToLower(answer), ex, ep) {
			case actionQuit:
				return outcomeQuit
			case actionSkip:
				return outcomeSkipped
			}
			continue
		}

		// Simulation is display feedback only; grading is independent.
		simRes := m.sim.Simulate(ctx, answer, ex.Instruction)
		if simRes.Output != "" {
			m.disp.SimulationOutput(simRes.Output)
		}

		ep.Attempts++
		ep.UserAnswer = answer
		m.session.Touch()

		valRes := m.val.Validate(ctx, ex, answer, ex.Instruction)
		m.disp.ValidationResult(valRes)
		m.recordAttempt(ex, answer, valRes)

		if valRes.IsCorrect() {
			ep.Status = model.StatusCompleted
			now := time.Now()
			ep.CompletedAt = &now
			m.saveProgress()
			return outcomeCompleted
		}

		m.hintCount++
		if len(valRes.Hints) > 0 {
			m.disp.Hint(valRes.Hints[0], m.hintCount)
		}
	}
}

func (m *Manager) handleSpecialCommand(ctx context.Context, command string, ex *model.Exercise, ep *model.ExerciseProgress) specialAction {
	switch command {
	case "quit", "exit":
		m.session.Pause()
		m.saveProgress()
		m.disp.Notice(i18n.T("Session.Saved"))
		return actionQuit

	case "skip":
		ep.Status = model.StatusFailed
		m.disp.Notice(i18n.T("Exercise.Skipped"))
		m.saveProgress()
		return actionSkip

	case "hint":
		m.hintCount++
		hint := m.val.GenerateHint(ctx, ex, ep.UserAnswer, m.hintCount)
		m.disp.Hint(hint, m.hintCount)
		return actionContinue

	case "help":
		m.disp.CommandsHelp()
		return actionContinue

	case "status":
		m.disp.ProgressSummary(&m.session.Progress)
		return actionContinue
	}
	return actionContinue
}

// recordAttempt logs the graded submission to the history store, if one is
// configured. Failures are logged and swallowed.
func (m *Manager) recordAttempt(ex *model.Exercise, answer string, res validator.Result) {
	if m.history == nil {
		return
	}
	_, err := m.history.RecordAttempt(model.AttemptRecord{
		SessionID:  m.session.SessionID,
		ExerciseID: ex.ID,
		Answer:     answer,
		Status:     string(res.Status),
		Score:      res.Score,
		MatchType:  res.Details["match_type"],
		CreatedAt:  time.Now(),
	})
	if err != nil {
		slog.Warn("record attempt", "session", m.session.SessionID, "exercise", ex.ID, "error", err)
	}
}

// normalizeAnswer trims the input and strips surrounding backticks (users
// sometimes paste `command`).
func normalizeAnswer(raw string) string {
	answer := strings.TrimSpace(raw)
	if len(answer) > 1 && strings.HasPrefix(answer, "`") && strings.HasSuffix(answer, "`") {
		answer = strings.TrimSpace(answer[1 : len(answer)-1])
	}
	return answer
}
