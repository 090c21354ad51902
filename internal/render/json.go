package render

import (
	"io"
	"math"

	"github.com/KaramelBytes/discountlens/internal/analysis"
	"github.com/KaramelBytes/discountlens/internal/dataset"
	"github.com/KaramelBytes/discountlens/internal/utils"
)

type jsonSummary struct {
	Count int      `json:"count"`
	Mean  float64  `json:"mean"`
	Std   *float64 `json:"std"` // null for a single observation
	Min   float64  `json:"min"`
	P25   float64  `json:"p25"`
	P50   float64  `json:"p50"`
	P75   float64  `json:"p75"`
	Max   float64  `json:"max"`
}

type jsonReport struct {
	File        string                         `json:"file,omitempty"`
	Fields      dataset.FieldMap               `json:"fields"`
	Columns     []string                       `json:"columns"`
	Head        [][]string                     `json:"head"`
	Records     int                            `json:"records"`
	Skipped     int                            `json:"skipped"`
	Discount    jsonSummary                    `json:"discount_rate"`
	Sales       jsonSummary                    `json:"sales_amount"`
	Pearson     analysis.Correlation           `json:"pearson"`
	Threshold   float64                        `json:"threshold"`
	Significant bool                           `json:"significant"`
	Fit         analysis.Fit                   `json:"fit"`
	Groups      []analysis.DiscountGroup       `json:"groups"`
	Categories  []analysis.CategoryCorrelation `json:"categories"`
}

// WriteJSON emits the same content as WriteText in machine-readable form.
func WriteJSON(w io.Writer, ds *dataset.Dataset, rep *analysis.Report) error {
	cats := rep.Categories
	if cats == nil {
		cats = []analysis.CategoryCorrelation{}
	}
	b, err := utils.PrettyJSON(jsonReport{
		File:        ds.Name,
		Fields:      ds.Fields,
		Columns:     ds.Columns,
		Head:        ds.Head,
		Records:     rep.Records,
		Skipped:     rep.Skipped,
		Discount:    toJSONSummary(rep.Discount),
		Sales:       toJSONSummary(rep.Sales),
		Pearson:     rep.Pearson,
		Threshold:   rep.Threshold,
		Significant: rep.Significant,
		Fit:         rep.Fit,
		Groups:      rep.Groups,
		Categories:  cats,
	})
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func toJSONSummary(s analysis.Summary) jsonSummary {
	out := jsonSummary{Count: s.Count, Mean: s.Mean, Min: s.Min, P25: s.P25, P50: s.P50, P75: s.P75, Max: s.Max}
	if !math.IsNaN(s.Std) {
		std := s.Std
		out.Std = &std
	}
	return out
}
