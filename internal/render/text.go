package render

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/KaramelBytes/discountlens/internal/analysis"
	"github.com/KaramelBytes/discountlens/internal/dataset"
)

// WriteText prints the human-readable report. The output depends only on
// its inputs, so identical runs produce identical bytes.
func WriteText(w io.Writer, ds *dataset.Dataset, rep *analysis.Report, st Style) error {
	var b strings.Builder
	l := st.Labels

	b.WriteString(l.DatasetSection + "\n")
	if ds.Name != "" {
		fmt.Fprintf(&b, "%s: %s\n", l.File, ds.Name)
	}
	fmt.Fprintf(&b, "%s: %d (%s %d)\n\n", l.Records, rep.Records, l.Skipped, rep.Skipped)
	if len(ds.Head) > 0 {
		writeTable(&b, ds.Columns, ds.Head)
	}

	b.WriteString("\n" + l.DescribeSection + "\n")
	writeDescribe(&b, ds.Fields, rep.Discount, rep.Sales)

	b.WriteString("\n" + l.CorrelationSection + "\n")
	fmt.Fprintf(&b, "%s: %.4f\n", l.Correlation, rep.Pearson.R)
	fmt.Fprintf(&b, "%s: %.4f\n", l.PearsonR, rep.Pearson.R)
	fmt.Fprintf(&b, "%s: %.6f\n", l.PValue, rep.Pearson.PValue)
	if rep.Significant {
		fmt.Fprintf(&b, l.Significant+"\n", rep.Threshold)
	} else {
		fmt.Fprintf(&b, l.NotSignificant+"\n", rep.Threshold)
	}

	b.WriteString("\n" + l.GroupSection + "\n")
	rows := make([][]string, len(rep.Groups))
	for i, g := range rep.Groups {
		rows[i] = []string{formatRate(g.Rate, l.Percent), fmt.Sprintf("%.2f", g.MeanSales), strconv.Itoa(g.Count)}
	}
	writeTable(&b, []string{ds.Fields.DiscountRate, l.Mean, l.Count}, rows)

	b.WriteString("\n" + l.CategorySection + "\n")
	if len(rep.Categories) == 0 {
		b.WriteString(l.NoCategories + "\n")
	}
	for _, c := range rep.Categories {
		fmt.Fprintf(&b, "%s: %.4f\n", c.Category, c.R)
	}
	fmt.Fprintf(&b, "(%s)\n", l.CategoryNote)

	_, err := io.WriteString(w, b.String())
	return err
}

func writeDescribe(b *strings.Builder, fields dataset.FieldMap, d, s analysis.Summary) {
	stat := func(name string, dv, sv float64) []string {
		return []string{name, formatStat(dv), formatStat(sv)}
	}
	rows := [][]string{
		{"count", strconv.Itoa(d.Count), strconv.Itoa(s.Count)},
		stat("mean", d.Mean, s.Mean),
		stat("std", d.Std, s.Std),
		stat("min", d.Min, s.Min),
		stat("25%", d.P25, s.P25),
		stat("50%", d.P50, s.P50),
		stat("75%", d.P75, s.P75),
		stat("max", d.Max, s.Max),
	}
	writeTable(b, []string{"", fields.DiscountRate, fields.SalesAmount}, rows)
}

func writeTable(b *strings.Builder, header []string, rows [][]string) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		cells := make([]string, len(header))
		for i := range cells {
			if i < len(row) {
				cells[i] = safeVal(row[i])
			}
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatRate(rate float64, unit string) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + unit
}

var amountPrinter = message.NewPrinter(language.English)

// formatAmount renders v with thousands separators, dropping the fraction.
func formatAmount(v float64, currency string) string {
	return amountPrinter.Sprintf("%d", int64(v)) + currency
}

func safeVal(s string) string {
	return strings.NewReplacer("\n", " ", "\t", " ").Replace(s)
}
