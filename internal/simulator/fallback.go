package simulator

import (
	"context"
	"strings"

	"github.com/pavelanni/skillforge/internal/llm"
)

const fallbackSystemPrompt = "You are simulating command execution in a safe " +
	"learning environment. Provide realistic but safe outputs."

// simulateWithLLM asks the LLM for a plausible command outcome. Any error
// from the client is converted into a failed result here at the boundary;
// the interactive loop never sees an exception from a flaky dependency.
func (s *Simulator) simulateWithLLM(ctx context.Context, command, exerciseCtx string) Result {
	if s.gen == nil {
		return fail(127, "Unknown command: %s", command)
	}

	resp, err := s.gen.Generate(ctx, llm.Request{
		Prompt:       buildFallbackPrompt(command, exerciseCtx),
		SystemPrompt: fallbackSystemPrompt,
		Temperature:  0.3,
		MaxTokens:    512,
	})
	if err != nil {
		return fail(1, "Simulation error: %v", err)
	}

	success, output := parseFallbackResponse(resp)
	exitCode := 0
	if !success {
		exitCode = 1
	}
	return Result{
		Success:      success,
		Output:       output,
		ExitCode:     exitCode,
		StateChanges: map[string]string{"llm_simulated": "true"},
	}
}

func buildFallbackPrompt(command, exerciseCtx string) string {
	var sb strings.Builder
	sb.WriteString("Simulate the output of this command in a learning environment:\n\n")
	sb.WriteString("Command: " + command + "\n\n")
	if exerciseCtx != "" {
		sb.WriteString("Context: " + exerciseCtx + "\n\n")
	}
	sb.WriteString("Provide a realistic but safe simulation of what this command would output.\n")
	sb.WriteString("Keep the output concise and educational.\n\n")
	sb.WriteString("Respond in the following format:\n")
	sb.WriteString("Success: [yes/no]\n")
	sb.WriteString("Exit Code: [number]\n")
	sb.WriteString("Output:\n")
	sb.WriteString("[command output here]\n")
	return sb.String()
}

// parseFallbackResponse reads the fixed reply format leniently: success is
// the literal presence of "Success: yes", and everything after "Output:"
// is the output. A reply without the marker is used whole.
func parseFallbackResponse(resp string) (success bool, output string) {
	success = strings.Contains(resp, "Success: yes")
	if _, after, found := strings.Cut(resp, "Output:"); found {
		return success, strings.TrimSpace(after)
	}
	return success, resp
}
