package dataset

import (
	"fmt"
	"strings"
)

// Record is one observation of the discount/sales relationship.
type Record struct {
	DiscountRate float64 `json:"discount_rate"`
	SalesAmount  float64 `json:"sales_amount"`
	Category     string  `json:"category"`
}

// Dataset holds every valid record of a file in input order.
type Dataset struct {
	Name    string
	Records []Record
	// Skipped counts data rows excluded for a missing, non-numeric or
	// negative required field.
	Skipped int
	// Columns is the full header as read; Head holds the first raw rows for display.
	Columns []string
	Head    [][]string
	// Fields are the header labels matched to the three required fields.
	Fields FieldMap
}

// Len returns the number of valid records.
func (d *Dataset) Len() int { return len(d.Records) }

// DiscountRates returns the discount column in record order.
func (d *Dataset) DiscountRates() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.DiscountRate
	}
	return out
}

// SalesAmounts returns the sales column in record order.
func (d *Dataset) SalesAmounts() []float64 {
	out := make([]float64, len(d.Records))
	for i, r := range d.Records {
		out[i] = r.SalesAmount
	}
	return out
}

// FieldMap names the column headers carrying each required field.
type FieldMap struct {
	DiscountRate string `json:"discount_rate"`
	SalesAmount  string `json:"sales_amount"`
	Category     string `json:"category"`
}

var fieldAliases = struct {
	discount, sales, category []string
}{
	discount: []string{"discountRate", "discount_rate", "discount rate", "discount", "할인율"},
	sales:    []string{"salesAmount", "sales_amount", "sales amount", "sales", "revenue", "매출액"},
	category: []string{"category", "product_category", "카테고리"},
}

// resolve finds the index of each required field in header. Configured names
// win; otherwise the built-in aliases are tried in order.
func (m FieldMap) resolve(header []string) (idx [3]int, resolved FieldMap, err error) {
	norm := make(map[string]int, len(header))
	for i, h := range header {
		k := normHeader(h)
		if _, dup := norm[k]; !dup {
			norm[k] = i
		}
	}
	find := func(configured string, aliases []string) int {
		if configured != "" {
			if i, ok := norm[normHeader(configured)]; ok {
				return i
			}
			return -1
		}
		for _, a := range aliases {
			if i, ok := norm[normHeader(a)]; ok {
				return i
			}
		}
		return -1
	}
	idx[0] = find(m.DiscountRate, fieldAliases.discount)
	idx[1] = find(m.SalesAmount, fieldAliases.sales)
	idx[2] = find(m.Category, fieldAliases.category)

	var missing []string
	names := [3]string{"discountRate", "salesAmount", "category"}
	configured := [3]string{m.DiscountRate, m.SalesAmount, m.Category}
	for i, j := range idx {
		if j < 0 {
			label := names[i]
			if configured[i] != "" {
				label = fmt.Sprintf("%s (%q)", names[i], configured[i])
			}
			missing = append(missing, label)
		}
	}
	if len(missing) > 0 {
		return idx, resolved, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	resolved = FieldMap{
		DiscountRate: strings.TrimSpace(header[idx[0]]),
		SalesAmount:  strings.TrimSpace(header[idx[1]]),
		Category:     strings.TrimSpace(header[idx[2]]),
	}
	return idx, resolved, nil
}

func normHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, "\ufeff")))
}
