package scoring

import "math"

// toolingWeights is the fixed-weight convex combination used to derive the
// suite-level tooling stupidScore from the ten-axis rubric (spec.md §4.7).
// Only the weighted subset of axes feeds the score; avgToolLatency,
// toolDiversity and conversationFlow are recorded but not weighted.
var toolingWeights = map[string]float64{
	"taskCompletion":    0.30,
	"toolSelection":     0.20,
	"parameterAccuracy": 0.15,
	"efficiency":        0.15,
	"errorHandling":     0.10,
	"contextAwareness":  0.05,
	"safetyCompliance":  0.05,
}

// ToolingScore computes the 0-100 suite-level score for a tool-calling
// session from its rubric metrics.
func ToolingScore(rubric map[string]float64) float64 {
	sum := 0.0
	for axis, weight := range toolingWeights {
		sum += weight * rubric[axis]
	}
	return math.Round(clipFloat(sum*100, 0, 100))
}
