package validator

import (
	"strconv"
	"strings"
)

// evaluation is the structured form of the LLM's fixed-format grading
// reply. The Status:/Score:/Feedback:/Hint: labels form a private
// micro-protocol with buildGradingPrompt; both must change together.
type evaluation struct {
	Status   Status
	Score    float64
	Feedback string
	Hints    []string
}

// parseEvaluation scans the reply line by line, matching labels
// case-insensitively. Missing or malformed labels keep their defaults
// (partial, 0.5); scores are clamped into [0, 1]; a hint of "none"
// yields no hint.
func parseEvaluation(resp string) evaluation {
	eval := evaluation{
		Status:   StatusPartial,
		Score:    0.5,
		Feedback: "Answer evaluated.",
	}

	for _, line := range strings.Split(strings.TrimSpace(resp), "\n") {
		line = strings.TrimSpace(line)
		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.ToLower(label) {
		case "status":
			switch strings.ToLower(value) {
			case "correct":
				eval.Status = StatusCorrect
			case "incorrect":
				eval.Status = StatusIncorrect
			default:
				eval.Status = StatusPartial
			}
		case "score":
			if score, err := strconv.ParseFloat(value, 64); err == nil {
				eval.Score = clamp(score, 0.0, 1.0)
			}
		case "feedback":
			eval.Feedback = value
		case "hint":
			if !strings.EqualFold(value, "none") && value != "" {
				eval.Hints = append(eval.Hints, value)
			}
		}
	}

	return eval
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
