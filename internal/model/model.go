package model

// Difficulty represents a course difficulty level.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// ParseDifficulty converts a user-supplied string into a Difficulty.
func ParseDifficulty(s string) (Difficulty, bool) {
	switch Difficulty(s) {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return Difficulty(s), true
	}
	return "", false
}

// Exercise is a single hands-on task within a lesson. The expected output
// is optional; hints are consumed in order by attempt number.
type Exercise struct {
	ID             string   `json:"id"`
	Instruction    string   `json:"instruction"`
	ExpectedOutput string   `json:"expected_output,omitempty"`
	Hints          []string `json:"hints,omitempty"`
}

// Lesson is a focused learning unit. Exercise order is stable and defines
// progress indexing.
type Lesson struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Objectives []string   `json:"objectives"`
	Exercises  []Exercise `json:"exercises"`
}

// ExerciseByIndex returns the exercise at the given index, or nil.
func (l *Lesson) ExerciseByIndex(i int) *Exercise {
	if i < 0 || i >= len(l.Exercises) {
		return nil
	}
	return &l.Exercises[i]
}

// Course is a complete generated curriculum. It is immutable once
// generated or loaded; a session owns its own deep copy.
type Course struct {
	ID          string     `json:"id"`
	Topic       string     `json:"topic"`
	Description string     `json:"description"`
	Difficulty  Difficulty `json:"difficulty"`
	Lessons     []Lesson   `json:"lessons"`
}

// LessonByIndex returns the lesson at the given index, or nil.
func (c *Course) LessonByIndex(i int) *Lesson {
	if i < 0 || i >= len(c.Lessons) {
		return nil
	}
	return &c.Lessons[i]
}

// TotalExercises counts exercises across all lessons.
func (c *Course) TotalExercises() int {
	n := 0
	for _, l := range c.Lessons {
		n += len(l.Exercises)
	}
	return n
}

// Clone returns a deep copy of the course. Sessions snapshot the course at
// creation time so later edits to the source never propagate.
func (c *Course) Clone() *Course {
	out := *c
	out.Lessons = make([]Lesson, len(c.Lessons))
	for i, l := range c.Lessons {
		nl := l
		nl.Objectives = append([]string(nil), l.Objectives...)
		nl.Exercises = make([]Exercise, len(l.Exercises))
		for j, ex := range l.Exercises {
			ne := ex
			ne.Hints = append([]string(nil), ex.Hints...)
			nl.Exercises[j] = ne
		}
		out.Lessons[i] = nl
	}
	return &out
}
