package simulator

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Heuristic-only detection of Python statements, tested in order. Anything
// these patterns miss goes to the LLM fallback; no real parsing happens.
var pythonPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^import\s+\w+`),
	regexp.MustCompile(`^from\s+\w+\s+import`),
	regexp.MustCompile(`^\w+\s*=\s*.+`),
	regexp.MustCompile(`^print\(`),
	regexp.MustCompile(`^def\s+\w+\(`),
	regexp.MustCompile(`^class\s+\w+`),
}

var (
	printLiteralRe = regexp.MustCompile(`^print\(["'](.+?)["']\)`)
	assignRe       = regexp.MustCompile(`^(\w+)\s*=\s*(.+)$`)
)

func looksLikePython(command string) bool {
	for _, re := range pythonPatterns {
		if re.MatchString(command) {
			return true
		}
	}
	return false
}

func (s *Simulator) cmdPython(ctx context.Context, args []string, exerciseCtx string) Result {
	if len(args) == 0 {
		return ok("Python 3.9.0\nType 'help' for more information.")
	}

	switch {
	case args[0] == "-c" && len(args) > 1:
		return s.simulatePythonCode(ctx, args[1], exerciseCtx)
	case strings.HasSuffix(args[0], ".py"):
		code, err := s.fs.ReadFile(args[0])
		if err != nil {
			return fail(2, "python: can't open file '%s': [Errno 2] No such file or directory", args[0])
		}
		return s.simulatePythonCode(ctx, code, exerciseCtx)
	default:
		return s.simulateWithLLM(ctx, "python "+strings.Join(args, " "), exerciseCtx)
	}
}

// simulatePythonCode handles the statements the heuristics can emulate:
// imports, literal prints, and plain assignments. Anything more complex
// falls through to the LLM.
func (s *Simulator) simulatePythonCode(ctx context.Context, code, exerciseCtx string) Result {
	code = strings.TrimSpace(code)

	if strings.HasPrefix(code, "import ") || strings.HasPrefix(code, "from ") {
		return s.simulatePythonImport(code)
	}

	if m := printLiteralRe.FindStringSubmatch(code); m != nil {
		return ok(m[1])
	}

	if m := assignRe.FindStringSubmatch(code); m != nil {
		s.vars[m[1]] = m[2]
		return okChanged("", "python_variable", m[1])
	}

	return s.simulateWithLLM(ctx, code, exerciseCtx)
}

func (s *Simulator) simulatePythonImport(code string) Result {
	var module string
	switch {
	case strings.HasPrefix(code, "import "):
		rest := strings.Fields(strings.TrimPrefix(code, "import "))
		if len(rest) == 0 {
			return fail(1, "Invalid import syntax")
		}
		module = strings.SplitN(rest[0], ".", 2)[0]
	case strings.HasPrefix(code, "from "):
		fields := strings.Fields(code)
		if len(fields) < 2 {
			return fail(1, "Invalid import syntax")
		}
		module = strings.SplitN(fields[1], ".", 2)[0]
	default:
		return fail(1, "Invalid import syntax")
	}

	s.imports[module] = struct{}{}
	return okChanged("", "python_import", module)
}

func (s *Simulator) cmdPip(_ context.Context, args []string, _ string) Result {
	if len(args) == 0 {
		return ok("Usage: pip <command> [options]\n\nCommands:\n  install   Install packages\n  list      List installed packages")
	}
	switch args[0] {
	case "install":
		if len(args) < 2 {
			return fail(1, "ERROR: You must give at least one requirement to install")
		}
		return okChanged(fmt.Sprintf("Successfully installed %s", args[1]), "installed_package", args[1])
	case "list":
		return ok("Package    Version\n---------- -------\npip        24.0")
	default:
		return fail(1, "ERROR: unknown command '%s'", args[0])
	}
}
