// Package validator grades free-text answers against exercises. Cheap
// deterministic pattern tiers run first; the LLM is consulted only when
// no tier is decisive.
package validator

import (
	"context"
	"fmt"
	"strings"

	"github.com/pavelanni/skillforge/internal/llm"
	"github.com/pavelanni/skillforge/internal/model"
)

// Status classifies a graded answer.
type Status string

const (
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
	StatusPartial   Status = "partial"
)

// Result is one grading outcome. Transient; the session manager copies
// what it needs into the progress records.
type Result struct {
	Status   Status
	Score    float64
	Feedback string
	Hints    []string
	Details  map[string]string
}

// IsCorrect reports a fully correct answer.
func (r Result) IsCorrect() bool { return r.Status == StatusCorrect }

// Generator is the slice of the LLM client the validator needs.
type Generator interface {
	Generate(ctx context.Context, req llm.Request) (string, error)
}

// Validator grades answers and produces progressive hints. gen may be
// nil, in which case only pattern and basic validation are available.
type Validator struct {
	gen Generator
}

// New creates a validator.
func New(gen Generator) *Validator {
	return &Validator{gen: gen}
}

const fallbackHint = "Review the exercise instructions carefully and try again."

// Validate grades an answer. exerciseCtx is free text (typically the
// instruction) forwarded to the LLM for better judgment.
func (v *Validator) Validate(ctx context.Context, ex *model.Exercise, answer, exerciseCtx string) Result {
	answer = strings.TrimSpace(answer)

	if answer == "" {
		return Result{
			Status:   StatusIncorrect,
			Score:    0.0,
			Feedback: "No answer provided. Please try again.",
			Hints:    storedHints(ex, 0),
		}
	}

	if ex.ExpectedOutput != "" {
		if res, decisive := v.validatePattern(ex, answer); decisive {
			return res
		}
	}

	if v.gen != nil {
		return v.validateWithLLM(ctx, ex, answer, exerciseCtx)
	}
	return v.validateBasic(ex)
}

// validatePattern tries the deterministic tiers in strict priority order.
// The second return is false when no tier is decisive and the caller
// should fall through to the LLM.
func (v *Validator) validatePattern(ex *model.Exercise, answer string) (Result, bool) {
	expected := strings.TrimSpace(ex.ExpectedOutput)

	correct := func(matchType string) (Result, bool) {
		return Result{
			Status:   StatusCorrect,
			Score:    1.0,
			Feedback: "Correct! Well done.",
			Details:  map[string]string{"match_type": matchType},
		}, true
	}

	if answer == expected {
		return correct("exact")
	}
	if strings.EqualFold(answer, expected) {
		return correct("case_insensitive")
	}
	if normalizeWhitespace(answer) == normalizeWhitespace(expected) {
		return correct("normalized_whitespace")
	}

	lowerAnswer := strings.ToLower(answer)
	lowerExpected := strings.ToLower(expected)

	if strings.Contains(lowerAnswer, lowerExpected) {
		return Result{
			Status:   StatusPartial,
			Score:    0.7,
			Feedback: "Your answer contains the expected output, but includes extra content. Try to be more precise.",
			Hints:    storedHints(ex, 0),
			Details:  map[string]string{"match_type": "contains"},
		}, true
	}
	if strings.Contains(lowerExpected, lowerAnswer) {
		return Result{
			Status:   StatusPartial,
			Score:    0.5,
			Feedback: "You're on the right track, but your answer is incomplete.",
			Hints:    storedHints(ex, 0),
			Details:  map[string]string{"match_type": "subset"},
		}, true
	}

	return Result{}, false
}

// validateBasic is the no-LLM fallback: accept anything when the exercise
// defines no expected output, otherwise reject.
func (v *Validator) validateBasic(ex *model.Exercise) Result {
	if ex.ExpectedOutput == "" {
		return Result{
			Status:   StatusPartial,
			Score:    0.5,
			Feedback: "Answer received. Unable to fully validate without expected output defined.",
			Details:  map[string]string{"match_type": "no_expected_output"},
		}
	}
	return Result{
		Status:   StatusIncorrect,
		Score:    0.0,
		Feedback: "That's not quite right. Review the exercise instructions and try again.",
		Hints:    storedHints(ex, 0),
		Details:  map[string]string{"match_type": "no_match"},
	}
}

const gradingSystemPrompt = "You are an expert programming tutor evaluating " +
	"student exercises. Be encouraging but accurate. Give clear, specific feedback."

func (v *Validator) validateWithLLM(ctx context.Context, ex *model.Exercise, answer, exerciseCtx string) Result {
	resp, err := v.gen.Generate(ctx, llm.Request{
		Prompt:       buildGradingPrompt(ex, answer, exerciseCtx),
		SystemPrompt: gradingSystemPrompt,
		Temperature:  0.3,
		MaxTokens:    256,
	})
	if err != nil {
		// Degrade to partial credit rather than abort the loop.
		return Result{
			Status:   StatusPartial,
			Score:    0.5,
			Feedback: fmt.Sprintf("Validation error: %v. Your answer has been recorded.", err),
			Details:  map[string]string{"error": err.Error()},
		}
	}

	eval := parseEvaluation(resp)
	res := Result{
		Status:   eval.Status,
		Score:    eval.Score,
		Feedback: eval.Feedback,
		Hints:    eval.Hints,
		Details:  map[string]string{"source": "llm"},
	}
	if res.Status != StatusCorrect {
		res.Hints = append(res.Hints, storedHints(ex, 0)...)
	}
	return res
}

func buildGradingPrompt(ex *model.Exercise, answer, exerciseCtx string) string {
	var sb strings.Builder
	sb.WriteString("Evaluate the following user answer to a learning exercise.\n\n")
	sb.WriteString("Exercise Instruction: " + ex.Instruction + "\n")
	if ex.ExpectedOutput != "" {
		sb.WriteString("Expected Output: " + ex.ExpectedOutput + "\n")
	}
	sb.WriteString("\nUser's Answer: " + answer + "\n")
	if exerciseCtx != "" {
		sb.WriteString("Learning Context: " + exerciseCtx + "\n")
	}
	sb.WriteString("\nEvaluate the answer and respond in this exact format:\n")
	sb.WriteString("Status: [correct/incorrect/partial]\n")
	sb.WriteString("Score: [0.0 to 1.0]\n")
	sb.WriteString("Feedback: [one sentence of constructive feedback]\n")
	sb.WriteString("Hint: [one helpful hint if not fully correct, or \"none\" if correct]\n")
	return sb.String()
}

const hintSystemPrompt = "You are a helpful programming tutor. Give concise, " +
	"encouraging hints without revealing the answer directly."

// GenerateHint returns the exercise's stored hint for this attempt, an
// LLM-generated one past the stored list, or a static fallback. It never
// fails and never indexes out of range.
func (v *Validator) GenerateHint(ctx context.Context, ex *model.Exercise, answer string, attemptNumber int) string {
	if attemptNumber >= 1 && attemptNumber <= len(ex.Hints) {
		return ex.Hints[attemptNumber-1]
	}
	if v.gen == nil {
		return fallbackHint
	}

	var sb strings.Builder
	sb.WriteString("A student is working on this exercise and needs a hint.\n\n")
	sb.WriteString("Exercise: " + ex.Instruction + "\n")
	if ex.ExpectedOutput != "" {
		sb.WriteString("Expected Answer: " + ex.ExpectedOutput + "\n")
	}
	sb.WriteString("Student's Answer: " + answer + "\n")
	sb.WriteString(fmt.Sprintf("Attempt Number: %d\n\n", attemptNumber))
	sb.WriteString("Provide a single, concise hint that guides the student toward the correct answer\n")
	sb.WriteString("without giving it away. Make the hint progressively more specific for higher\n")
	sb.WriteString("attempt numbers.\n\nHint:")

	resp, err := v.gen.Generate(ctx, llm.Request{
		Prompt:       sb.String(),
		SystemPrompt: hintSystemPrompt,
		Temperature:  0.5,
		MaxTokens:    128,
	})
	if err != nil {
		return fallbackHint
	}
	return strings.TrimSpace(resp)
}

// storedHints returns at most one stored hint starting at the given index.
func storedHints(ex *model.Exercise, index int) []string {
	if index < 0 || index >= len(ex.Hints) {
		return nil
	}
	return []string{ex.Hints[index]}
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
