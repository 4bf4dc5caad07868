package trial

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/codeready-toolchain/llmbench/internal/sandbox"
	"github.com/codeready-toolchain/llmbench/internal/scoring"
	"github.com/codeready-toolchain/llmbench/internal/task"
)

// difficultyComplexity is Pass A's complexity score per spec.md §4.5.
var difficultyComplexity = map[task.Difficulty]float64{
	task.DifficultyEasy:   0.3,
	task.DifficultyMedium: 0.6,
	task.DifficultyHard:   0.9,
}

// moduleDenyList is the fixed set of modules the Pass B runner's import
// guard refuses (spec.md §4.5).
var moduleDenyList = []string{
	"os", "subprocess", "socket", "urllib", "requests",
	"http", "ftplib", "smtplib", "shutil", "pathlib",
}

// SandboxEvaluator runs §4.5's two-pass evaluation inside a sandbox.Manager
// container, grounded on the teacher's "execute via an executor, record
// duration, classify error" shape (pkg/agent/controller/tool_execution.go).
type SandboxEvaluator struct {
	Mgr       *sandbox.Manager
	SandboxID string
}

func NewSandboxEvaluator(mgr *sandbox.Manager, sandboxID string) *SandboxEvaluator {
	return &SandboxEvaluator{Mgr: mgr, SandboxID: sandboxID}
}

// Evaluate runs Pass A then Pass B and derives the remaining axes.
func (e *SandboxEvaluator) Evaluate(ctx context.Context, t task.CodeTask, code string) (map[string]float64, error) {
	complexity := e.passA(ctx, t, code)

	passed, total, err := e.passB(ctx, t, code)
	if err != nil {
		return nil, fmt.Errorf("pass B: %w", err)
	}

	correctness := scoring.Correctness(passed, total)

	return map[string]float64{
		"complexity":  complexity,
		"correctness": correctness,
		"codeQuality": qualityScore(code),
		"edgeCases":   scoring.EdgeCases(correctness),
		"debugging":   scoring.Debugging(correctness, t.HasTag("debug")),
		"stability":   1, // per-trial stability is undefined; aggregator recomputes across trials
	}, nil
}

// passA checks the source parses and defines expectedSymbol at module
// scope, via `python3 -c` (compile + ast inspection) inside the sandbox.
func (e *SandboxEvaluator) passA(ctx context.Context, t task.CodeTask, code string) float64 {
	script := passAScript(t.ExpectedSymbol)
	if err := e.Mgr.WriteFile(ctx, e.SandboxID, "solution.py", code); err != nil {
		return 0
	}
	if err := e.Mgr.WriteFile(ctx, e.SandboxID, "check_symbol.py", script); err != nil {
		return 0
	}
	res, err := e.Mgr.Exec(ctx, e.SandboxID, []string{"python3", "check_symbol.py"})
	if err != nil || res.ExitCode != 0 || !strings.Contains(res.Stdout, "OK") {
		return 0
	}
	return difficultyComplexity[t.Difficulty]
}

// passB writes the solution and a generated runner, executes it under
// rlimits, and parses the "passed/total" line it prints.
func (e *SandboxEvaluator) passB(ctx context.Context, t task.CodeTask, code string) (passed, total int, err error) {
	if err := e.Mgr.WriteFile(ctx, e.SandboxID, "solution.py", code); err != nil {
		return 0, len(t.Tests), err
	}
	runner := passBRunnerScript(t)
	if err := e.Mgr.WriteFile(ctx, e.SandboxID, "run_tests.py", runner); err != nil {
		return 0, len(t.Tests), err
	}

	res, execErr := e.Mgr.Exec(ctx, e.SandboxID, []string{"python3", "run_tests.py"})
	if execErr != nil {
		return 0, len(t.Tests), execErr
	}
	p, tot, ok := parsePassedTotal(res.Stdout)
	if !ok {
		return 0, len(t.Tests), nil
	}
	return p, tot, nil
}

var passedTotalRE = regexp.MustCompile(`(\d+)/(\d+)`)

func parsePassedTotal(stdout string) (passed, total int, ok bool) {
	m := passedTotalRE.FindStringSubmatch(stdout)
	if m == nil {
		return 0, 0, false
	}
	fmt.Sscanf(m[1], "%d", &passed)
	fmt.Sscanf(m[2], "%d", &total)
	return passed, total, true
}

func passAScript(expectedSymbol string) string {
	return fmt.Sprintf(`
import ast, sys

with open("solution.py") as f:
    src = f.read()

try:
    tree = ast.parse(src)
except SyntaxError:
    print("FAIL")
    sys.exit(0)

found = any(
    isinstance(node, (ast.FunctionDef, ast.AsyncFunctionDef, ast.ClassDef)) and node.name == %q
    for node in tree.body
)
print("OK" if found else "FAIL")
`, expectedSymbol)
}

// passBRunnerScript builds the rlimited, import/open-guarded test runner
// (spec.md §4.5). Resource limits mirror the spec's example budget (CPU 2s,
// address space 512MB, 5s wall-clock alarm).
func passBRunnerScript(t task.CodeTask) string {
	var cases strings.Builder
	for _, tc := range t.Tests {
		fmt.Fprintf(&cases, "    (%q, %q),\n", tc.InputExpression, tc.ExpectedExpression)
	}

	denyList := make([]string, len(moduleDenyList))
	for i, m := range moduleDenyList {
		denyList[i] = fmt.Sprintf("%q", m)
	}

	return fmt.Sprintf(`
import ast, resource, signal, sys, builtins

resource.setrlimit(resource.RLIMIT_CPU, (2, 2))
resource.setrlimit(resource.RLIMIT_AS, (512 * 1024 * 1024, 512 * 1024 * 1024))

def _alarm(signum, frame):
    raise TimeoutError("wall-clock limit exceeded")
signal.signal(signal.SIGALRM, _alarm)
signal.alarm(5)

DENIED_MODULES = {%s}
_real_import = builtins.__import__

def _guarded_import(name, *args, **kwargs):
    top = name.split(".")[0]
    if top in DENIED_MODULES:
        raise ImportError(f"module {top!r} is not permitted in sandboxed evaluation")
    return _real_import(name, *args, **kwargs)
builtins.__import__ = _guarded_import

_real_open = builtins.open

def _guarded_open(file, mode="r", *args, **kwargs):
    path = str(file)
    if any(m in mode for m in ("w", "a", "+", "x")) and not path.startswith("/tmp"):
        raise PermissionError("writes outside /tmp are not permitted")
    if path.startswith("/") and not path.startswith("/tmp"):
        raise PermissionError("absolute paths outside /tmp are not permitted")
    return _real_open(file, mode, *args, **kwargs)
builtins.open = _guarded_open

with open("solution.py") as f:
    src = f.read()

ns = {}
exec(compile(src, "solution.py", "exec"), ns)
fn = ns[%q]

cases = [
%s]

passed = 0
for input_expr, expected_expr in cases:
    try:
        args = ast.literal_eval(input_expr)
        expected = ast.literal_eval(expected_expr)
        result = fn(*args)
        if result == expected:
            passed += 1
    except Exception:
        pass

print(f"{passed}/{len(cases)}")
`, strings.Join(denyList, ", "), t.ExpectedSymbol, cases.String())
}

// qualityScore derives codeQuality ∈ [0, 0.75] from source-text signals
// (spec.md §4.5), no sandbox execution required.
func qualityScore(code string) float64 {
	score := 0.0
	size := len(code)
	if size >= 20 && size <= 2000 {
		score += 0.15
	}

	bannedPatterns := []string{"eval(", "exec(", "__import__"}
	clean := true
	for _, p := range bannedPatterns {
		if strings.Contains(code, p) {
			clean = false
		}
	}
	if clean {
		score += 0.15
	}

	hasDefOrClass := defOrClassRE.MatchString(code)
	if hasDefOrClass {
		score += 0.1
	}

	controlFlowRE := regexp.MustCompile(`(?m)^\s*(if|for|while|try)\b`)
	if controlFlowRE.MatchString(code) {
		score += 0.1
	}

	if strings.Contains(code, `"""`) || strings.Contains(code, "'''") {
		score += 0.1
	}

	if regexp.MustCompile(`:\s*\w+(\[\w+\])?\s*[,)=]`).MatchString(code) || strings.Contains(code, "->") {
		score += 0.1
	}

	if regexp.MustCompile(`#\s*\S{4,}`).MatchString(code) {
		score += 0.05
	}

	if strings.Contains(code, "return") {
		score += 0.05
	}

	if strings.Contains(code, "global ") {
		score -= 0.05
	}
	if strings.Contains(code, "lambda") {
		score -= 0.03
	}
	if size > 2000 {
		score -= 0.05
	}

	if score < 0 {
		score = 0
	}
	if score > 0.75 {
		score = 0.75
	}
	return score
}
