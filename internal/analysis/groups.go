package analysis

import (
	"sort"

	"github.com/KaramelBytes/discountlens/internal/dataset"
)

// DiscountGroup aggregates the records sharing one exact discount rate.
type DiscountGroup struct {
	Rate      float64 `json:"rate"`
	MeanSales float64 `json:"mean_sales"`
	Count     int     `json:"count"`
	// Sales keeps the members' amounts in record order for distribution plots.
	Sales []float64 `json:"-"`
}

// CategoryCorrelation is the within-category Pearson r.
type CategoryCorrelation struct {
	Category string  `json:"category"`
	R        float64 `json:"r"`
	N        int     `json:"n"`
}

// MinCategorySize is the smallest category size that gets a correlation.
// Smaller categories are omitted from the breakdown, not zero-filled.
const MinCategorySize = 3

// GroupByDiscount groups records by exact discount rate, ascending.
func GroupByDiscount(records []dataset.Record) []DiscountGroup {
	byRate := map[float64]*DiscountGroup{}
	for _, r := range records {
		g := byRate[r.DiscountRate]
		if g == nil {
			g = &DiscountGroup{Rate: r.DiscountRate}
			byRate[r.DiscountRate] = g
		}
		g.Count++
		g.Sales = append(g.Sales, r.SalesAmount)
	}
	out := make([]DiscountGroup, 0, len(byRate))
	for _, g := range byRate {
		var sum float64
		for _, s := range g.Sales {
			sum += s
		}
		g.MeanSales = sum / float64(g.Count)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate < out[j].Rate })
	return out
}

// Categories returns the distinct category labels in first-appearance order.
func Categories(records []dataset.Record) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range records {
		if _, ok := seen[r.Category]; ok {
			continue
		}
		seen[r.Category] = struct{}{}
		out = append(out, r.Category)
	}
	return out
}

// CategoryCorrelations computes r per category with at least MinCategorySize
// records. Categories below the cutoff, or where either variable is constant,
// are left out.
func CategoryCorrelations(records []dataset.Record) []CategoryCorrelation {
	byCat := map[string][]dataset.Record{}
	for _, r := range records {
		byCat[r.Category] = append(byCat[r.Category], r)
	}
	var out []CategoryCorrelation
	for _, c := range Categories(records) {
		members := byCat[c]
		if len(members) < MinCategorySize {
			continue
		}
		x := make([]float64, len(members))
		y := make([]float64, len(members))
		for i, m := range members {
			x[i], y[i] = m.DiscountRate, m.SalesAmount
		}
		r, err := pearsonR(x, y)
		if err != nil {
			continue
		}
		out = append(out, CategoryCorrelation{Category: c, R: r, N: len(members)})
	}
	return out
}
