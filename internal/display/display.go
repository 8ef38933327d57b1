// Package display renders session output to the terminal and collects
// learner input. All user-facing strings go through the i18n catalog.
package display

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pavelanni/skillforge/internal/i18n"
	"github.com/pavelanni/skillforge/internal/model"
	"github.com/pavelanni/skillforge/internal/validator"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	welcomeStyle  = panelStyle.BorderForeground(lipgloss.Color("10"))
	lessonStyle   = panelStyle.BorderForeground(lipgloss.Color("14"))
	exerciseStyle = panelStyle.BorderForeground(lipgloss.Color("12"))
	outputStyle   = panelStyle.BorderForeground(lipgloss.Color("8"))
	hintStyle     = panelStyle.BorderForeground(lipgloss.Color("11"))
	successStyle  = panelStyle.BorderForeground(lipgloss.Color("10"))

	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
	correctStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	partialStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	wrongStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	promptStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	noticeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

// Display writes styled panels to out and reads answers from in.
type Display struct {
	out io.Writer
	in  *bufio.Reader
}

// New creates a display over the given streams.
func New(out io.Writer, in io.Reader) *Display {
	return &Display{out: out, in: bufio.NewReader(in)}
}

func (d *Display) panel(style lipgloss.Style, title, body string) {
	content := body
	if title != "" {
		content = titleStyle.Render(title) + "\n" + body
	}
	fmt.Fprintln(d.out, style.Render(content))
}

// Welcome shows the course summary and the special-command vocabulary.
func (d *Display) Welcome(course *model.Course) {
	body := fmt.Sprintf("%s\n\n%s\n\n%s\n\n%s",
		titleStyle.Render(course.Topic),
		course.Description,
		dimStyle.Render(i18n.Td("Welcome.Meta", map[string]any{
			"Difficulty": string(course.Difficulty),
			"Lessons":    len(course.Lessons),
			"Exercises":  course.TotalExercises(),
		})),
		dimStyle.Render(i18n.T("Welcome.Commands")),
	)
	d.panel(welcomeStyle, i18n.T("Welcome.Title"), body)
}

// LessonHeader shows the lesson title and objectives.
func (d *Display) LessonHeader(lesson *model.Lesson, num, total int) {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(lesson.Title))
	sb.WriteString("\n\n" + i18n.T("Lesson.Objectives"))
	for _, obj := range lesson.Objectives {
		sb.WriteString("\n  - " + obj)
	}
	d.panel(lessonStyle, i18n.Td("Lesson.Header", map[string]any{"Num": num, "Total": total}), sb.String())
}

// Exercise shows the instruction panel.
func (d *Display) Exercise(ex *model.Exercise, num, total int) {
	d.panel(exerciseStyle, i18n.Td("Exercise.Header", map[string]any{"Num": num, "Total": total}), ex.Instruction)
}

// SimulationOutput shows simulated command output, if any.
func (d *Display) SimulationOutput(output string) {
	if output == "" {
		return
	}
	d.panel(outputStyle, i18n.T("Output.Title"), output)
}

// ValidationResult shows the color-coded grading verdict.
func (d *Display) ValidationResult(res validator.Result) {
	var line string
	switch res.Status {
	case validator.StatusCorrect:
		line = correctStyle.Render("✓ " + res.Feedback)
	case validator.StatusPartial:
		line = partialStyle.Render("~ " + res.Feedback)
	default:
		line = wrongStyle.Render("✗ " + res.Feedback)
	}
	fmt.Fprintln(d.out, line)
}

// Hint shows one hint panel with the running attempt number.
func (d *Display) Hint(hint string, attempt int) {
	d.panel(hintStyle, i18n.Td("Hint.Title", map[string]any{"Attempt": attempt}), hint)
}

// LessonComplete shows the lesson completion summary.
func (d *Display) LessonComplete(lesson *model.Lesson, lp *model.LessonProgress) {
	body := fmt.Sprintf("%s\n\n%s\n%s",
		correctStyle.Render(i18n.T("Lesson.Complete")),
		lesson.Title,
		i18n.Td("Lesson.Completion", map[string]any{"Percent": fmt.Sprintf("%.0f", lp.CompletionPercent())}),
	)
	d.panel(successStyle, "", body)
}

// CourseComplete shows the final stats panel.
func (d *Display) CourseComplete(cp *model.CourseProgress) {
	total, done := 0, 0
	for i := range cp.LessonProgress {
		for j := range cp.LessonProgress[i].ExerciseProgress {
			total++
			if cp.LessonProgress[i].ExerciseProgress[j].Status == model.StatusCompleted {
				done++
			}
		}
	}
	body := fmt.Sprintf("%s\n\n%s",
		correctStyle.Render(i18n.T("Course.Complete")),
		i18n.Td("Course.Stats", map[string]any{
			"Lessons": len(cp.LessonProgress),
			"Done":    done,
			"Total":   total,
			"Percent": fmt.Sprintf("%.0f", cp.CompletionPercent()),
		}),
	)
	d.panel(successStyle, i18n.T("Course.Congrats"), body)
}

// ProgressSummary shows a per-lesson progress table.
func (d *Display) ProgressSummary(cp *model.CourseProgress) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%-36s  %-12s  %s",
		i18n.T("Progress.Lesson"), i18n.T("Progress.Status"), i18n.T("Progress.Completion")))
	for i := range cp.LessonProgress {
		lp := &cp.LessonProgress[i]
		status := strings.ReplaceAll(string(lp.Status), "_", " ")
		sb.WriteString(fmt.Sprintf("\n%-36s  %-12s  %.0f%%", lp.LessonID, status, lp.CompletionPercent()))
	}
	d.panel(panelStyle, i18n.T("Progress.Title"), sb.String())
}

// CommandsHelp shows the special-command reference.
func (d *Display) CommandsHelp() {
	rows := []struct{ cmd, msgID string }{
		{"hint", "Help.Hint"},
		{"skip", "Help.Skip"},
		{"quit / exit", "Help.Quit"},
		{"help", "Help.Help"},
		{"status", "Help.Status"},
	}
	var sb strings.Builder
	for i, r := range rows {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%-12s %s", r.cmd, i18n.T(r.msgID)))
	}
	d.panel(panelStyle, i18n.T("Help.Title"), sb.String())
}

// Notice prints a one-line yellow notice (saved, interrupted, skipped).
func (d *Display) Notice(msg string) {
	fmt.Fprintln(d.out, noticeStyle.Render(msg))
}

// PromptAnswer blocks for one line of learner input. An error (EOF) is
// treated by the caller as a quit.
func (d *Display) PromptAnswer() (string, error) {
	fmt.Fprint(d.out, promptStyle.Render(i18n.T("Prompt.Answer")))
	line, err := d.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// PromptContinue asks whether to move on to the next lesson. Anything but
// an explicit "n" continues.
func (d *Display) PromptContinue() (bool, error) {
	fmt.Fprint(d.out, promptStyle.Render(i18n.T("Prompt.Continue")))
	line, err := d.in.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	return strings.ToLower(strings.TrimSpace(line)) != "n", nil
}
