package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func perfectAxes() map[string]float64 {
	return map[string]float64{
		"correctness": 1, "complexity": 1, "codeQuality": 1,
		"efficiency": 0.92, "stability": 1, "edgeCases": 1, "debugging": 1,
	}
}

func TestHarsh_PerfectAxesWithBaselineScoresHigh(t *testing.T) {
	baseline := Baseline{Mean: flatMap(0.9), Sigma: flatMap(0.05), HasBaseline: true}
	score := Harsh(perfectAxes(), baseline)
	assert.GreaterOrEqual(t, score, 80.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestHarsh_NoBaselineScoresLowerThanWithBaseline(t *testing.T) {
	// Mid-range axes, clear of the excellence-cap thresholds, so the
	// baseline variance term and the explicit no-baseline penalty are
	// what distinguish the two runs (spec.md §8 testable property 12).
	axes := map[string]float64{
		"correctness": 0.9, "complexity": 0.8, "codeQuality": 0.8,
		"efficiency": 0.7, "stability": 0.85, "edgeCases": 0.85, "debugging": 0.85,
	}
	withBaseline := Harsh(axes, Baseline{Mean: axes, Sigma: flatMap(0.05), HasBaseline: true})
	withoutBaseline := Harsh(axes, Baseline{Mean: flatMap(defaultMean), Sigma: flatMap(defaultSigma), HasBaseline: false})
	assert.Less(t, withoutBaseline, withBaseline)
}

func TestHarsh_LowCorrectnessTriggersQualityGate(t *testing.T) {
	axes := perfectAxes()
	axes["correctness"] = 0.4
	baseline := Baseline{Mean: flatMap(0.5), Sigma: flatMap(0.15), HasBaseline: false}
	score := Harsh(axes, baseline)
	assert.Less(t, score, 50.0)
}

func TestHarsh_ExcellenceCapRequiresEveryAxisNearPerfectAt95(t *testing.T) {
	axes := perfectAxes()
	axes["efficiency"] = 0.92 // capped by definition, never reaches 0.98
	baseline := Baseline{Mean: flatMap(0.95), Sigma: flatMap(0.02), HasBaseline: true}
	score := Harsh(axes, baseline)
	assert.LessOrEqual(t, score, 89.0)
}

func TestHarsh_AlwaysClamped(t *testing.T) {
	axes := map[string]float64{
		"correctness": 0, "complexity": 0, "codeQuality": 0,
		"efficiency": 0, "stability": 0, "edgeCases": 0, "debugging": 0,
	}
	baseline := Baseline{Mean: flatMap(0.9), Sigma: flatMap(0.01), HasBaseline: true}
	score := Harsh(axes, baseline)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 100.0)
}

func TestComputeBaseline_FewerThanMinSamplesHasNoBaseline(t *testing.T) {
	history := make([]map[string]float64, 3)
	for i := range history {
		history[i] = perfectAxes()
	}
	b := ComputeBaseline(history)
	require.False(t, b.HasBaseline)
	assert.Equal(t, defaultMean, b.Mean["correctness"])
}

func TestComputeBaseline_EnoughSamplesComputesMeanAndSigma(t *testing.T) {
	history := make([]map[string]float64, 12)
	for i := range history {
		history[i] = perfectAxes()
	}
	b := ComputeBaseline(history)
	require.True(t, b.HasBaseline)
	assert.InDelta(t, 1.0, b.Mean["correctness"], 1e-9)
	assert.Equal(t, sigmaFloor, b.Sigma["correctness"])
}

func TestToDisplayScore_Sentinel(t *testing.T) {
	_, ok := ToDisplayScore(-999, "", true)
	assert.False(t, ok)
}

func TestToDisplayScore_SmallMagnitudeRaw(t *testing.T) {
	v, ok := ToDisplayScore(0.3, "", false)
	require.True(t, ok)
	assert.InDelta(t, 50-0.3*100, v, 1e-9)
}

func TestToDisplayScore_Idempotent(t *testing.T) {
	v1, ok := ToDisplayScore(72, "", false)
	require.True(t, ok)
	v2, ok := ToDisplayScore(v1, "", false)
	require.True(t, ok)
	assert.Equal(t, v1, v2)
}

func TestEfficiency_CappedBelowOne(t *testing.T) {
	assert.LessOrEqual(t, Efficiency(1), efficiencyCap)
	assert.Greater(t, Efficiency(2000), 0.0)
}

func TestFailurePenalty_AllSucceeded(t *testing.T) {
	assert.Equal(t, 0.0, FailurePenalty(5, 5))
}

func TestFailurePenalty_AllFailed(t *testing.T) {
	assert.Equal(t, 12.0, FailurePenalty(0, 5))
}
