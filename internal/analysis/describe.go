package analysis

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// Summary holds the descriptive statistics of one numeric column.
type Summary struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"p25"`
	P50   float64 `json:"p50"`
	P75   float64 `json:"p75"`
	Max   float64 `json:"max"`
}

// Summarize computes count, mean, sample standard deviation, extremes and
// quartiles of vals. Std is NaN for a single value.
func Summarize(vals []float64) (Summary, error) {
	if len(vals) == 0 {
		return Summary{}, &EmptyDatasetError{}
	}
	data := stats.Float64Data(vals)
	mean, err := data.Mean()
	if err != nil {
		return Summary{}, err
	}
	std := math.NaN()
	if len(vals) > 1 {
		if std, err = data.StandardDeviationSample(); err != nil {
			return Summary{}, err
		}
	}
	lo, err := data.Min()
	if err != nil {
		return Summary{}, err
	}
	hi, err := data.Max()
	if err != nil {
		return Summary{}, err
	}
	sorted := make([]float64, len(vals))
	copy(sorted, vals)
	sort.Float64s(sorted)
	return Summary{
		Count: len(vals),
		Mean:  mean,
		Std:   std,
		Min:   lo,
		P25:   quantile(sorted, 0.25),
		P50:   quantile(sorted, 0.5),
		P75:   quantile(sorted, 0.75),
		Max:   hi,
	}, nil
}

// quantile interpolates linearly between the closest ranks of sorted.
func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	w := pos - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
