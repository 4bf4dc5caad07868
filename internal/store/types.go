// Package store implements the append-only persistence layer (C8):
// models, runs, metrics, scores, tool sessions and their
// executions, backed by PostgreSQL via pgx.
package store

import "time"

// Vendor is one of a closed set of provider tags (spec.md §3).
type Vendor string

const (
	VendorAnthropic Vendor = "anthropic"
	VendorOpenAI    Vendor = "openai"
	VendorGoogle    Vendor = "google"
	VendorMeta      Vendor = "meta"
	VendorMistral   Vendor = "mistral"
	VendorXAI       Vendor = "xai"
	VendorOther     Vendor = "other"
)

// Model is a benchmarked LLM.
type Model struct {
	ID                  string
	Name                string // provider-facing identifier
	Vendor              Vendor
	Version             string
	Notes               string
	ShowInRankings      bool
	SupportsToolCalling bool
	CreatedAt           time.Time
}

// Difficulty is the difficulty tier of a code task.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Suite names a benchmark class.
type Suite string

const (
	SuiteHourly  Suite = "hourly"
	SuiteDeep    Suite = "deep"
	SuiteTooling Suite = "tooling"
)

// Run is one code-gen trial.
type Run struct {
	ID           string
	ModelID      string
	TaskID       string
	Ts           time.Time
	TempSeed     float64
	TokensIn     int
	TokensOut    int
	LatencyMs    int
	Attempts     int
	Passed       bool
	ArtifactHash string
}

// Metric is the seven-axis vector attached 1:1 to a Run.
type Metric struct {
	RunID       string
	Correctness float64
	Complexity  float64
	CodeQuality float64
	Efficiency  float64
	Stability   float64
	EdgeCases   float64
	Debugging   float64
}

// Axes returns the metric as a name->value map using current axis names.
func (m Metric) Axes() map[string]float64 {
	return map[string]float64{
		"correctness": m.Correctness,
		"complexity":  m.Complexity,
		"codeQuality": m.CodeQuality,
		"efficiency":  m.Efficiency,
		"stability":   m.Stability,
		"edgeCases":   m.EdgeCases,
		"debugging":   m.Debugging,
	}
}

// Sentinel stupidScore values (spec.md §3, §7). Never mixed with numeric
// scoring: a sentinel Score always carries axes of -1 across the board.
const (
	SentinelNoAPIKey             = -999
	SentinelAllTasksFailed       = -888
	SentinelAdapterValidation    = -777
	SentinelGenericError         = -100
)

// IsSentinel reports whether raw is one of the defined sentinel values.
func IsSentinel(raw float64) bool {
	switch raw {
	case SentinelNoAPIKey, SentinelAllTasksFailed, SentinelAdapterValidation, SentinelGenericError:
		return true
	default:
		return false
	}
}

// Score is a per-model, per-suite aggregated snapshot.
type Score struct {
	ID             string
	ModelID        string
	Ts             time.Time
	BatchTimestamp time.Time
	Suite          Suite
	StupidScore    float64
	Axes           map[string]float64
	Cusum          float64
	Note           string
}

// SentinelAxes returns the fixed -1 axis vector used on every sentinel Score.
func SentinelAxes() map[string]float64 {
	return map[string]float64{
		"correctness": -1, "complexity": -1, "codeQuality": -1,
		"efficiency": -1, "stability": -1, "edgeCases": -1, "debugging": -1,
	}
}

// legacyAxisSynonyms maps historical axis names to their current name
// (spec.md §4.9: "consumers MUST tolerate legacy axis names").
var legacyAxisSynonyms = map[string]string{
	"spec":     "complexity",
	"refusal":  "edgeCases",
	"recovery": "debugging",
}

// NormalizeAxes rewrites any legacy-named keys in axes to their current
// names, leaving already-current keys untouched.
func NormalizeAxes(axes map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(axes))
	for k, v := range axes {
		if cur, ok := legacyAxisSynonyms[k]; ok {
			out[cur] = v
			continue
		}
		out[k] = v
	}
	return out
}

// ToolSessionStatus is the lifecycle state of a ToolSession.
type ToolSessionStatus string

const (
	ToolSessionRunning   ToolSessionStatus = "running"
	ToolSessionCompleted ToolSessionStatus = "completed"
	ToolSessionFailed    ToolSessionStatus = "failed"
	ToolSessionTimedOut  ToolSessionStatus = "timedout"
)

// ToolSession is one multi-turn tool-calling run.
type ToolSession struct {
	ID                 string
	ModelID            string
	TaskSlug           string
	Status             ToolSessionStatus
	SandboxID          string
	Turns              int
	TotalLatencyMs     int
	TotalTokensIn      int
	TotalTokensOut     int
	ToolCallsCount     int
	SuccessfulToolCalls int
	FailedToolCalls    int
	Passed             bool
	FinalScore         float64
	ConversationData   string // serialized conversation, opaque to store
	ToolCallHistory    string // serialized []ToolExecution, opaque to store
	ErrorLog           string
	CreatedAt          time.Time
	CompletedAt        *time.Time
}

// ToolExecution is a per-call log row belonging to a ToolSession.
type ToolExecution struct {
	ID           string
	SessionID    string
	TurnNumber   int
	ToolName     string
	Parameters   string // JSON
	Result       string // JSON
	Success      bool
	LatencyMs    int
	ErrorMessage string
	Ts           time.Time
}
