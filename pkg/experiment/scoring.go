package experiment

import "time"

// Quality score weights. Correctness dominates, then cost, then speed.
const (
	WeightSuccess = 0.5
	WeightCost    = 0.3
	WeightSpeed   = 0.2
)

// Auto-validation thresholds.
const (
	AutoValidateMinQuality     = 0.8
	AutoValidateMinSuccessRate = 0.9
)

// ComputeMetrics derives Metrics from the full result sequence.
//
// A zero budget yields a cost efficiency of 0 and a zero time limit yields a
// speed score of 0. An empty sequence yields zero Metrics.
func ComputeMetrics(results []Result, budget float64, timeLimit time.Duration) Metrics {
	total := len(results)
	if total == 0 {
		return Metrics{}
	}

	var (
		successes   int
		totalCost   float64
		totalDurSec float64
	)
	for _, r := range results {
		if r.Success {
			successes++
		}
		totalCost += r.Cost
		totalDurSec += r.Duration.Seconds()
	}

	n := float64(total)
	m := Metrics{
		TotalRuns:   total,
		SuccessRate: float64(successes) / n,
		AvgCost:     totalCost / n,
	}
	avgDurSec := totalDurSec / n
	m.AvgDuration = time.Duration(avgDurSec * float64(time.Second))

	if budget > 0 {
		m.CostEfficiency = max(0, 1-m.AvgCost/budget)
	}
	if limit := timeLimit.Seconds(); limit > 0 {
		m.SpeedScore = max(0, 1-avgDurSec/limit)
	}

	m.QualityScore = QualityScore(m.SuccessRate, m.CostEfficiency, m.SpeedScore)
	return m
}

// QualityScore combines the three component scores with the fixed weights.
func QualityScore(successRate, costEfficiency, speedScore float64) float64 {
	return WeightSuccess*successRate + WeightCost*costEfficiency + WeightSpeed*speedScore
}

// ShouldAutoValidate reports whether a completed experiment skips human review.
func ShouldAutoValidate(qualityScore, successRate float64) bool {
	return qualityScore >= AutoValidateMinQuality && successRate >= AutoValidateMinSuccessRate
}
