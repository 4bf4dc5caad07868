package scoring

import "math"

// Baseline is a model's own per-axis distribution, estimated from its
// recent score history (spec.md §4.8).
type Baseline struct {
	Mean        map[string]float64
	Sigma       map[string]float64
	HasBaseline bool
}

const (
	baselineMinSamples = 10
	baselineMaxSamples = 50
	sigmaFloor         = 1e-6
	defaultMean        = 0.5
	defaultSigma       = 0.15
)

// ComputeBaseline derives a Baseline from up to the most recent 50
// non-sentinel axis snapshots of a model's suite history, most-recent-first.
// Fewer than baselineMaxSamples rows is fine; fewer than baselineMinSamples
// yields HasBaseline=false and the fallback mean/sigma.
func ComputeBaseline(axisHistory []map[string]float64) Baseline {
	if len(axisHistory) > baselineMaxSamples {
		axisHistory = axisHistory[:baselineMaxSamples]
	}

	if len(axisHistory) < baselineMinSamples {
		return Baseline{
			Mean:        flatMap(defaultMean),
			Sigma:       flatMap(defaultSigma),
			HasBaseline: false,
		}
	}

	sums := map[string]float64{}
	for _, axes := range axisHistory {
		for k, v := range axes {
			sums[k] += v
		}
	}
	n := float64(len(axisHistory))
	mean := map[string]float64{}
	for k, s := range sums {
		mean[k] = s / n
	}

	variance := map[string]float64{}
	for _, axes := range axisHistory {
		for k, v := range axes {
			d := v - mean[k]
			variance[k] += d * d
		}
	}
	sigma := map[string]float64{}
	for k, v := range variance {
		s := math.Sqrt(v / n)
		if s < sigmaFloor {
			s = sigmaFloor
		}
		sigma[k] = s
	}

	return Baseline{Mean: mean, Sigma: sigma, HasBaseline: true}
}

func flatMap(v float64) map[string]float64 {
	return map[string]float64{
		"correctness": v, "complexity": v, "codeQuality": v,
		"efficiency": v, "stability": v, "edgeCases": v, "debugging": v,
	}
}
