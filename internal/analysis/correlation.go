package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Correlation is a Pearson product-moment coefficient with its two-sided
// p-value under the null hypothesis of zero correlation.
type Correlation struct {
	R      float64 `json:"r"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// Pearson computes r between x and y and its p-value from a Student's t
// statistic with n-2 degrees of freedom.
func Pearson(x, y []float64) (Correlation, error) {
	r, err := pearsonR(x, y)
	if err != nil {
		return Correlation{}, err
	}
	return Correlation{R: r, PValue: pValue(r, len(x)), N: len(x)}, nil
}

func pearsonR(x, y []float64) (float64, error) {
	if len(x) != len(y) {
		return 0, fmt.Errorf("length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 {
		return 0, &DegenerateInputError{Reason: fmt.Sprintf("need at least 2 observations, got %d", len(x))}
	}
	if constant(x) {
		return 0, &DegenerateInputError{Reason: "discount rate has zero variance"}
	}
	if constant(y) {
		return 0, &DegenerateInputError{Reason: "sales amount has zero variance"}
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, &DegenerateInputError{Reason: "coefficient is not finite"}
	}
	return clamp(r, -1, 1), nil
}

func pValue(r float64, n int) float64 {
	df := float64(n - 2)
	if df <= 0 {
		return 1
	}
	if math.Abs(r) >= 1 {
		return 0
	}
	t := r * math.Sqrt(df/(1-r*r))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clamp(2*dist.CDF(-math.Abs(t)), 0, 1)
}

// Fit is an ordinary least-squares line y = Slope*x + Intercept.
type Fit struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the fitted line at x.
func (f Fit) At(x float64) float64 { return f.Slope*x + f.Intercept }

// LinearFit fits a degree-1 polynomial to (x, y) by least squares.
func LinearFit(x, y []float64) (Fit, error) {
	if len(x) != len(y) {
		return Fit{}, fmt.Errorf("length mismatch: %d vs %d", len(x), len(y))
	}
	if len(x) < 2 || constant(x) {
		return Fit{}, &DegenerateInputError{Reason: "linear fit needs at least two distinct discount rates"}
	}
	intercept, slope := stat.LinearRegression(x, y, nil, false)
	return Fit{Slope: slope, Intercept: intercept}, nil
}

func constant(v []float64) bool {
	return floats.Min(v) == floats.Max(v)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
