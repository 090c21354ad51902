package analysis

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/KaramelBytes/discountlens/internal/dataset"
)

// DefaultThreshold is the significance cutoff applied to the p-value.
const DefaultThreshold = 0.05

// Options controls the analysis.
type Options struct {
	// Threshold is the p-value below which the correlation is significant.
	Threshold float64
}

// DefaultOptions returns the conventional 0.05 significance level.
func DefaultOptions() Options {
	return Options{Threshold: DefaultThreshold}
}

// Report is the complete result of one analysis run. It is not modified
// after Analyze returns.
type Report struct {
	Records     int                   `json:"records"`
	Skipped     int                   `json:"skipped"`
	Discount    Summary               `json:"discount_rate"`
	Sales       Summary               `json:"sales_amount"`
	Pearson     Correlation           `json:"pearson"`
	Threshold   float64               `json:"threshold"`
	Significant bool                  `json:"significant"`
	Fit         Fit                   `json:"fit"`
	Groups      []DiscountGroup       `json:"groups"`
	Categories  []CategoryCorrelation `json:"categories"`
}

// Analyze computes descriptive statistics, the overall correlation and its
// significance, the per-discount aggregates and per-category correlations.
func Analyze(ctx context.Context, ds *dataset.Dataset, opt Options) (*Report, error) {
	logger := zerolog.Ctx(ctx)
	if ds == nil || ds.Len() == 0 {
		skipped := 0
		if ds != nil {
			skipped = ds.Skipped
		}
		return nil, &EmptyDatasetError{Skipped: skipped}
	}
	if opt.Threshold <= 0 {
		opt.Threshold = DefaultThreshold
	}
	x, y := ds.DiscountRates(), ds.SalesAmounts()

	rep := &Report{Records: ds.Len(), Skipped: ds.Skipped, Threshold: opt.Threshold}
	var err error
	if rep.Discount, err = Summarize(x); err != nil {
		return nil, err
	}
	if rep.Sales, err = Summarize(y); err != nil {
		return nil, err
	}
	if rep.Pearson, err = Pearson(x, y); err != nil {
		return nil, err
	}
	rep.Significant = rep.Pearson.PValue < opt.Threshold
	if rep.Fit, err = LinearFit(x, y); err != nil {
		return nil, err
	}
	rep.Groups = GroupByDiscount(ds.Records)
	rep.Categories = CategoryCorrelations(ds.Records)

	logger.Debug().
		Float64("r", rep.Pearson.R).
		Float64("p", rep.Pearson.PValue).
		Int("groups", len(rep.Groups)).
		Int("categories", len(rep.Categories)).
		Msg("analysis complete")
	return rep, nil
}
