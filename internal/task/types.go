// Package task holds the static registry of code-generation and
// tool-calling tasks benchmarked by the system (C2).
package task

// Difficulty mirrors store.Difficulty without importing the store package,
// keeping task definitions free of a persistence dependency.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// TestCase is one input/expected-output pair for a CodeTask, evaluated by
// literal-tuple call + comparison (spec.md §4.5 Pass B).
type TestCase struct {
	InputExpression    string
	ExpectedExpression string
}

// CodeTask is one Python code-generation prompt (spec.md §4.2, §4.4).
type CodeTask struct {
	Slug           string
	Prompt         string
	ExpectedSymbol string
	Difficulty     Difficulty
	MaxTokens      int
	Tags           []string // e.g. "debug"
	Tests          []TestCase
}

// HasTag reports whether the task carries the given tag, e.g. "debug".
func (t CodeTask) HasTag(tag string) bool {
	for _, g := range t.Tags {
		if g == tag {
			return true
		}
	}
	return false
}

// SandboxConfig is the subset of C3's create() config a task fixes in
// advance (spec.md §4.3).
type SandboxConfig struct {
	Image         string
	WorkingDir    string
	TimeoutMs     int
	MemoryLimitMB int
	CPULimit      float64
	NetworkAccess bool
}

// CriteriaKind discriminates the variants of SuccessCriteria (spec.md §4.6
// "Success checking").
type CriteriaKind string

const (
	CriteriaFileExists    CriteriaKind = "file_exists"
	CriteriaFileContains  CriteriaKind = "file_contains"
	CriteriaCommandExit   CriteriaKind = "command_exit"
	CriteriaCommandStdout CriteriaKind = "command_stdout"
)

// SuccessCriterion is one deterministic check against the sandbox, a
// tagged union over CriteriaKind.
type SuccessCriterion struct {
	Kind CriteriaKind

	Path     string // file_exists, file_contains
	Contains string // file_contains

	Command      []string // command_exit, command_stdout
	ExpectedExit int      // command_exit
	StdoutMatch  string   // command_stdout
}

// ToolTask is one multi-turn tool-calling scenario (spec.md §4.2, §4.6).
type ToolTask struct {
	Slug            string
	InitialMessage  string
	MaxTurns        int
	ExpectedTools   []string
	InitialFiles    map[string]string
	SandboxConfig   SandboxConfig
	SuccessCriteria []SuccessCriterion
}
