package scoring

import "math"

// CollapseTask reduces the metric vectors of one task's trials to a single
// axis snapshot (spec.md §4.5 step 4): median per axis across successful
// trials, with stability instead derived from the spread of correctness
// across ALL attempted trials (successful and failed).
func CollapseTask(successfulAxes []map[string]float64, allCorrectness []float64) map[string]float64 {
	out := map[string]float64{}
	for _, axis := range axisOrder {
		if axis == "stability" {
			continue
		}
		vals := make([]float64, 0, len(successfulAxes))
		for _, m := range successfulAxes {
			vals = append(vals, m[axis])
		}
		out[axis] = median(vals)
	}
	out["stability"] = stabilityFromCorrectness(allCorrectness)
	return out
}

// stabilityFromCorrectness implements spec.md §3 invariant 2 / §4.5 step 4:
// stability = clip(1 - sigma(correctness)/0.3, 0, 1).
func stabilityFromCorrectness(correctness []float64) float64 {
	if len(correctness) == 0 {
		return 0
	}
	mean := 0.0
	for _, c := range correctness {
		mean += c
	}
	mean /= float64(len(correctness))

	variance := 0.0
	for _, c := range correctness {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(correctness))
	sigma := math.Sqrt(variance)

	return clipFloat(1-sigma/0.3, 0, 1)
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64(nil), vals...)
	insertionSortFloats(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// insertionSortFloats avoids pulling in sort.Float64s for a handful of
// elements per task; trial counts per task are small and bounded.
func insertionSortFloats(vals []float64) {
	for i := 1; i < len(vals); i++ {
		v := vals[i]
		j := i - 1
		for j >= 0 && vals[j] > v {
			vals[j+1] = vals[j]
			j--
		}
		vals[j+1] = v
	}
}

// FailurePenalty implements spec.md §4.5 step 6: round(12 * (1 -
// successfulTasks/K)) where K is the number of tasks selected for the suite.
func FailurePenalty(successfulTasks, selectedTasks int) float64 {
	if selectedTasks == 0 {
		return 0
	}
	return math.Round(12 * (1 - float64(successfulTasks)/float64(selectedTasks)))
}

// CalibrationPenalty is the additional flat penalty subtracted when a model
// has no baseline yet, applied on top of Harsh's own no-baseline term
// (spec.md §4.5 step 6: "subtract an additional calibration penalty (≈2)").
const CalibrationPenalty = 2.0
