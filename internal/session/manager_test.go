package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/pavelanni/skillforge/internal/model"
	"github.com/pavelanni/skillforge/internal/simulator"
	"github.com/pavelanni/skillforge/internal/validator"
)

// scriptDisplay feeds a fixed sequence of answers and records what was
// shown. When the script runs out, PromptAnswer reports EOF, which the
// manager treats as a quit.
type scriptDisplay struct {
	answers []string
	next    int

	lessonHeaders []string
	exercises     []string
	hints         []string
	notices       []string
	continueOK    bool
	courseDone    bool
}

func newScriptDisplay(answers ...string) *scriptDisplay {
	return &scriptDisplay{answers: answers, continueOK: true}
}

func (d *scriptDisplay) Welcome(*model.Course) {}
func (d *scriptDisplay) LessonHeader(lesson *model.Lesson, _, _ int) {
	d.lessonHeaders = append(d.lessonHeaders, lesson.Title)
}
func (d *scriptDisplay) Exercise(ex *model.Exercise, _, _ int) {
	d.exercises = append(d.exercises, ex.ID)
}
func (d *scriptDisplay) SimulationOutput(string)            {}
func (d *scriptDisplay) ValidationResult(validator.Result)  {}
func (d *scriptDisplay) Hint(hint string, _ int)            { d.hints = append(d.hints, hint) }
func (d *scriptDisplay) LessonComplete(*model.Lesson, *model.LessonProgress) {}
func (d *scriptDisplay) CourseComplete(*model.CourseProgress) { d.courseDone = true }
func (d *scriptDisplay) ProgressSummary(*model.CourseProgress) {}
func (d *scriptDisplay) CommandsHelp()                         {}
func (d *scriptDisplay) Notice(msg string)                     { d.notices = append(d.notices, msg) }

func (d *scriptDisplay) PromptAnswer() (string, error) {
	if d.next >= len(d.answers) {
		return "", io.EOF
	}
	answer := d.answers[d.next]
	d.next++
	return answer, nil
}

func (d *scriptDisplay) PromptContinue() (bool, error) { return d.continueOK, nil }

func testCourse() *model.Course {
	return &model.Course{
		ID:          "course-1",
		Topic:       "Git Basics",
		Description: "Learn git from scratch",
		Difficulty:  model.DifficultyBeginner,
		Lessons: []model.Lesson{
			{
				ID:         "lesson-1",
				Title:      "Getting Started",
				Objectives: []string{"Initialize a repository"},
				Exercises: []model.Exercise{
					{
						ID:             "ex-1",
						Instruction:    "Initialize a new repository",
						ExpectedOutput: "git init",
						Hints:          []string{"The subcommand is init"},
					},
					{
						ID:             "ex-2",
						Instruction:    "Check the repository status",
						ExpectedOutput: "git status",
						Hints:          []string{"The subcommand is status"},
					},
				},
			},
			{
				ID:         "lesson-2",
				Title:      "Making Commits",
				Objectives: []string{"Stage and commit changes"},
				Exercises: []model.Exercise{
					{
						ID:             "ex-3",
						Instruction:    "Stage every change",
						ExpectedOutput: "git add .",
					},
				},
			},
		},
	}
}

func newTestManager(t *testing.T, disp Display) *Manager {
	t.Helper()
	return CreateNewSession(testCourse(), "tester",
		simulator.New(nil), validator.New(nil), disp, t.TempDir(), nil)
}

func TestRunFullCompletion(t *testing.T) {
	disp := newScriptDisplay("git init", "git status", "git add .")
	mgr := newTestManager(t, disp)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := mgr.Session()
	if sess.State != model.SessionCompleted {
		t.Errorf("State = %s, want completed", sess.State)
	}
	if !sess.Progress.IsCompleted() {
		t.Error("expected completed progress")
	}
	if sess.CompletedAt == nil {
		t.Error("expected CompletedAt to be set")
	}
	if !disp.courseDone {
		t.Error("expected course completion screen")
	}
	if got := sess.Progress.CompletionPercent(); got != 100 {
		t.Errorf("CompletionPercent = %.0f, want 100", got)
	}

	// Both lesson headers shown, in order.
	if len(disp.lessonHeaders) != 2 || disp.lessonHeaders[0] != "Getting Started" {
		t.Errorf("lesson headers %v", disp.lessonHeaders)
	}

	// Session file persisted.
	sessions, err := FindSavedSessions(mgr.dataDir)
	if err != nil {
		t.Fatalf("FindSavedSessions: %v", err)
	}
	if len(sessions) != 1 || sessions[0].State != model.SessionCompleted {
		t.Errorf("saved sessions %+v", sessions)
	}
}

func TestRunQuitPersistsWithoutAttempts(t *testing.T) {
	disp := newScriptDisplay("quit")
	mgr := newTestManager(t, disp)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := mgr.Session()
	if sess.State != model.SessionPaused {
		t.Errorf("State = %s, want paused", sess.State)
	}
	// quit is not an answer: the attempt counter is untouched.
	if got := sess.Progress.LessonProgress[0].ExerciseProgress[0].Attempts; got != 0 {
		t.Errorf("Attempts = %d, want 0", got)
	}

	// The session must be reloadable.
	loaded, err := LoadSession(sess.SessionID, simulator.New(nil), validator.New(nil),
		newScriptDisplay(), mgr.dataDir, nil)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if loaded.Session().State != model.SessionActive {
		t.Errorf("loaded state = %s, want active after resume", loaded.Session().State)
	}
}

func TestRunWrongThenRightThenSkip(t *testing.T) {
	// Wrong answer, correct answer, then skip the second exercise. The
	// lesson still completes (skipped counts as resolved) but the course
	// does not (a skipped exercise is never completed).
	disp := newScriptDisplay("wrong answer xyz", "git init", "skip")
	disp.continueOK = false
	mgr := newTestManager(t, disp)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := mgr.Session()
	lp := &sess.Progress.LessonProgress[0]

	if got := lp.ExerciseProgress[0].Attempts; got != 2 {
		t.Errorf("ex-1 attempts = %d, want 2", got)
	}
	if lp.ExerciseProgress[0].Status != model.StatusCompleted {
		t.Errorf("ex-1 status = %s, want completed", lp.ExerciseProgress[0].Status)
	}
	if lp.ExerciseProgress[1].Status != model.StatusFailed {
		t.Errorf("ex-2 status = %s, want failed", lp.ExerciseProgress[1].Status)
	}
	// skip is a control command, not an attempt.
	if got := lp.ExerciseProgress[1].Attempts; got != 0 {
		t.Errorf("ex-2 attempts = %d, want 0", got)
	}
	if lp.Status != model.StatusCompleted {
		t.Errorf("lesson status = %s, want completed", lp.Status)
	}
	if sess.Progress.IsCompleted() {
		t.Error("course must not complete with a skipped exercise")
	}
	if sess.State != model.SessionPaused {
		t.Errorf("State = %s, want paused", sess.State)
	}
	// The wrong answer surfaced the stored hint.
	if len(disp.hints) != 1 || disp.hints[0] != "The subcommand is init" {
		t.Errorf("hints %v", disp.hints)
	}
}

func TestRunSingleLessonSkipScenario(t *testing.T) {
	// One lesson, two exercises, answers: wrong, correct, skip. The skip
	// resolves the lesson but keeps the course (and session) incomplete.
	course := &model.Course{
		ID:         "course-s",
		Topic:      "Git Basics",
		Difficulty: model.DifficultyBeginner,
		Lessons: []model.Lesson{
			{
				ID:    "lesson-1",
				Title: "Getting Started",
				Exercises: []model.Exercise{
					{ID: "ex-1", Instruction: "init", ExpectedOutput: "git init"},
					{ID: "ex-2", Instruction: "status", ExpectedOutput: "git status"},
				},
			},
		},
	}
	disp := newScriptDisplay("wrong", "git init", "skip")
	mgr := CreateNewSession(course, "tester",
		simulator.New(nil), validator.New(nil), disp, t.TempDir(), nil)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := mgr.Session()
	lp := &sess.Progress.LessonProgress[0]
	if lp.ExerciseProgress[0].Status != model.StatusCompleted || lp.ExerciseProgress[0].Attempts != 2 {
		t.Errorf("ex-1 = %s/%d attempts, want completed/2",
			lp.ExerciseProgress[0].Status, lp.ExerciseProgress[0].Attempts)
	}
	if lp.ExerciseProgress[1].Status != model.StatusFailed {
		t.Errorf("ex-2 = %s, want failed", lp.ExerciseProgress[1].Status)
	}
	if lp.Status != model.StatusCompleted {
		t.Errorf("lesson = %s, want completed", lp.Status)
	}
	if sess.State != model.SessionPaused {
		t.Errorf("session = %s, want paused", sess.State)
	}
}

func TestRunHintCommand(t *testing.T) {
	disp := newScriptDisplay("hint", "git init", "git status", "git add .")
	mgr := newTestManager(t, disp)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(disp.hints) == 0 || disp.hints[0] != "The subcommand is init" {
		t.Errorf("expected first stored hint, got %v", disp.hints)
	}
	// hint is not an attempt.
	if got := mgr.Session().Progress.LessonProgress[0].ExerciseProgress[0].Attempts; got != 1 {
		t.Errorf("Attempts = %d, want 1", got)
	}
}

func TestRunSpecialCommandsAreCaseInsensitive(t *testing.T) {
	disp := newScriptDisplay("QUIT")
	mgr := newTestManager(t, disp)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if mgr.Session().State != model.SessionPaused {
		t.Errorf("State = %s, want paused", mgr.Session().State)
	}
	if got := mgr.Session().Progress.LessonProgress[0].ExerciseProgress[0].Attempts; got != 0 {
		t.Errorf("Attempts = %d, want 0", got)
	}
}

func TestRunBacktickAnswersAreStripped(t *testing.T) {
	disp := newScriptDisplay("`git init`", "git status", "git add .")
	mgr := newTestManager(t, disp)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	ep := &mgr.Session().Progress.LessonProgress[0].ExerciseProgress[0]
	if ep.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed (backticks stripped)", ep.Status)
	}
	if ep.UserAnswer != "git init" {
		t.Errorf("UserAnswer = %q, want bare command", ep.UserAnswer)
	}
}

func TestRunDeclineContinuePauses(t *testing.T) {
	disp := newScriptDisplay("git init", "git status")
	disp.continueOK = false
	mgr := newTestManager(t, disp)

	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	sess := mgr.Session()
	if sess.State != model.SessionPaused {
		t.Errorf("State = %s, want paused", sess.State)
	}
	if sess.Progress.LessonProgress[0].Status != model.StatusCompleted {
		t.Error("first lesson should be completed")
	}
	if sess.Progress.LessonProgress[1].Status != model.StatusNotStarted {
		t.Error("second lesson should be untouched")
	}
}

func TestRunResumeSkipsResolvedWork(t *testing.T) {
	// Complete lesson 1, quit at lesson 2.
	disp := newScriptDisplay("git init", "git status", "quit")
	mgr := newTestManager(t, disp)
	if err := mgr.Run(context.Background()); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	sessionID := mgr.Session().SessionID

	// Resume: only lesson 2's exercise is offered.
	disp2 := newScriptDisplay("git add .")
	loaded, err := LoadSession(sessionID, simulator.New(nil), validator.New(nil),
		disp2, mgr.dataDir, nil)
	if err != nil {
		t.Fatalf("LoadSession: %v", err)
	}
	if err := loaded.Run(context.Background()); err != nil {
		t.Fatalf("second Run: %v", err)
	}

	if len(disp2.lessonHeaders) != 1 || disp2.lessonHeaders[0] != "Making Commits" {
		t.Errorf("expected only lesson 2, got %v", disp2.lessonHeaders)
	}
	if len(disp2.exercises) != 1 || disp2.exercises[0] != "ex-3" {
		t.Errorf("expected only ex-3, got %v", disp2.exercises)
	}
	if loaded.Session().State != model.SessionCompleted {
		t.Errorf("State = %s, want completed", loaded.Session().State)
	}
}

func TestRunInterruptPausesAndPersists(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	disp := newScriptDisplay("git init")
	mgr := newTestManager(t, disp)
	if err := mgr.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if mgr.Session().State != model.SessionPaused {
		t.Errorf("State = %s, want paused", mgr.Session().State)
	}
	if _, err := ReadSession(mgr.dataDir, mgr.Session().SessionID); err != nil {
		t.Errorf("expected persisted session, got %v", err)
	}
}

func TestSaveAndLoadRoundtrip(t *testing.T) {
	dir := t.TempDir()
	sess := model.NewLearningSession(testCourse(), "tester")
	sess.Progress.LessonProgress[0].ExerciseProgress[0].Attempts = 3

	if err := SaveSession(dir, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	loaded, err := ReadSession(dir, sess.SessionID)
	if err != nil {
		t.Fatalf("ReadSession: %v", err)
	}
	if loaded.SessionID != sess.SessionID {
		t.Errorf("SessionID = %q, want %q", loaded.SessionID, sess.SessionID)
	}
	if loaded.Course.Topic != "Git Basics" {
		t.Errorf("Topic = %q", loaded.Course.Topic)
	}
	if got := loaded.Progress.LessonProgress[0].ExerciseProgress[0].Attempts; got != 3 {
		t.Errorf("Attempts = %d, want 3", got)
	}
}

func TestLoadSessionNotFound(t *testing.T) {
	_, err := LoadSession("missing-id", simulator.New(nil), validator.New(nil),
		newScriptDisplay(), t.TempDir(), nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFindSavedSessionsSkipsCorrupt(t *testing.T) {
	dir := t.TempDir()
	sess := model.NewLearningSession(testCourse(), "tester")
	if err := SaveSession(dir, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	// Drop a corrupt file next to the good one.
	corrupt := filepath.Join(sessionsDir(dir), "broken.json")
	if err := writeDirect(corrupt, []byte("{not json")); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	infos, err := FindSavedSessions(dir)
	if err != nil {
		t.Fatalf("FindSavedSessions: %v", err)
	}
	if len(infos) != 1 || infos[0].SessionID != sess.SessionID {
		t.Errorf("expected only the valid session, got %+v", infos)
	}
}

func TestResolveSessionIDPrefix(t *testing.T) {
	dir := t.TempDir()
	sess := model.NewLearningSession(testCourse(), "tester")
	if err := SaveSession(dir, sess); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}

	got, err := ResolveSessionID(dir, sess.SessionID[:8])
	if err != nil {
		t.Fatalf("ResolveSessionID: %v", err)
	}
	if got != sess.SessionID {
		t.Errorf("resolved %q, want %q", got, sess.SessionID)
	}

	if _, err := ResolveSessionID(dir, "zzzz"); err == nil {
		t.Error("expected error for unmatched prefix")
	}
}
