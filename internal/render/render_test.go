package render

import (
	"bytes"
	"context"
	"errors"
	"image"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/discountlens/internal/analysis"
	"github.com/KaramelBytes/discountlens/internal/dataset"
)

func scenario(t *testing.T) (*dataset.Dataset, *analysis.Report) {
	t.Helper()
	ds := &dataset.Dataset{
		Name:    "scenario.csv",
		Columns: []string{"discountRate", "salesAmount", "category"},
		Head:    [][]string{{"10", "1000", "A"}, {"20", "1500", "A"}},
		Fields:  dataset.FieldMap{DiscountRate: "discountRate", SalesAmount: "salesAmount", Category: "category"},
		Records: []dataset.Record{
			{DiscountRate: 10, SalesAmount: 1000, Category: "A"},
			{DiscountRate: 20, SalesAmount: 1500, Category: "A"},
			{DiscountRate: 30, SalesAmount: 1800, Category: "A"},
			{DiscountRate: 10, SalesAmount: 900, Category: "B"},
			{DiscountRate: 20, SalesAmount: 1600, Category: "B"},
		},
	}
	rep, err := analysis.Analyze(context.Background(), ds, analysis.DefaultOptions())
	require.NoError(t, err)
	return ds, rep
}

func TestWriteText_Scenario(t *testing.T) {
	ds, rep := scenario(t)
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, ds, rep, DefaultStyle()))
	out := buf.String()

	for _, want := range []string{
		"File: scenario.csv",
		"Records: 5 (skipped 0)",
		"Pearson r: 0.9625",
		"→ statistically significant correlation (p < 0.05)",
		"A: 0.9897",
		"(categories with 2 or fewer records are omitted)",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "B: ")

	// sections appear in pipeline order
	order := []string{"=== Dataset", "=== Descriptive", "=== Correlation ===", "=== Mean sales", "=== Correlation by category"}
	last := -1
	for _, s := range order {
		i := strings.Index(out, s)
		require.Greater(t, i, last, "section %q out of order", s)
		last = i
	}

	lines := strings.Split(out, "\n")
	var groupRows []string
	for i, l := range lines {
		if strings.HasPrefix(l, "=== Mean sales") {
			groupRows = lines[i+2 : i+5]
		}
	}
	require.Len(t, groupRows, 3)
	assert.Equal(t, []string{"10%", "950.00", "2"}, strings.Fields(groupRows[0]))
	assert.Equal(t, []string{"20%", "1550.00", "2"}, strings.Fields(groupRows[1]))
	assert.Equal(t, []string{"30%", "1800.00", "1"}, strings.Fields(groupRows[2]))
}

func TestWriteText_Deterministic(t *testing.T) {
	ds, rep := scenario(t)
	var a, b bytes.Buffer
	require.NoError(t, WriteText(&a, ds, rep, KoreanStyle()))
	_, rep2 := scenario(t)
	require.NoError(t, WriteText(&b, ds, rep2, KoreanStyle()))
	assert.Equal(t, a.Bytes(), b.Bytes())
	assert.Contains(t, a.String(), "=== 상관분석 결과 ===")
	assert.Contains(t, a.String(), "통계적으로 유의미한 상관관계가 있습니다")
}

func TestWriteText_NotSignificantAndNoCategories(t *testing.T) {
	ds := &dataset.Dataset{Records: []dataset.Record{
		{DiscountRate: 10, SalesAmount: 100, Category: "A"},
		{DiscountRate: 20, SalesAmount: 90, Category: "B"},
	}}
	rep, err := analysis.Analyze(context.Background(), ds, analysis.DefaultOptions())
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, ds, rep, DefaultStyle()))
	assert.Contains(t, buf.String(), "P-value: 1.000000")
	assert.Contains(t, buf.String(), "no statistically significant correlation (p >= 0.05)")
	assert.Contains(t, buf.String(), "(none)")
}

func TestWriteJSON(t *testing.T) {
	ds := &dataset.Dataset{Name: "one.csv", Records: []dataset.Record{{DiscountRate: 5, SalesAmount: 10, Category: "A"}}}
	std, err := analysis.Summarize(ds.DiscountRates())
	require.NoError(t, err)
	rep := &analysis.Report{Records: 1, Discount: std, Sales: std, Threshold: 0.05}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, ds, rep))
	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "one.csv", got["file"])
	assert.Nil(t, got["discount_rate"].(map[string]any)["std"])
	assert.Equal(t, []any{}, got["categories"])

	ds2, rep2 := scenario(t)
	buf.Reset()
	require.NoError(t, WriteJSON(&buf, ds2, rep2))
	var full struct {
		Pearson struct {
			R float64 `json:"r"`
			N int     `json:"n"`
		} `json:"pearson"`
		Groups []struct {
			Rate  float64 `json:"rate"`
			Count int     `json:"count"`
		} `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &full))
	assert.InDelta(t, 0.9625, full.Pearson.R, 1e-4)
	assert.Equal(t, 5, full.Pearson.N)
	require.Len(t, full.Groups, 3)
	assert.Equal(t, 30.0, full.Groups[2].Rate)
}

func smallStyle() Style {
	st := DefaultStyle()
	st.DPI = 30
	return st
}

func TestRenderCharts_WritesPNG(t *testing.T) {
	ds, rep := scenario(t)
	out := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, RenderCharts(out, ds, rep, smallStyle()))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 450, cfg.Width)
	assert.Equal(t, 360, cfg.Height)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files left behind")
}

func TestRenderCharts_ManyCategoriesCyclePalette(t *testing.T) {
	ds := &dataset.Dataset{}
	for i := 0; i < 15; i++ {
		ds.Records = append(ds.Records, dataset.Record{
			DiscountRate: float64(5 * (i%4 + 1)),
			SalesAmount:  1000 + 40*float64(i),
			Category:     string(rune('a' + i)),
		})
	}
	rep, err := analysis.Analyze(context.Background(), ds, analysis.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, RenderCharts(filepath.Join(t.TempDir(), "c.png"), ds, rep, smallStyle()))
}

func TestRenderCharts_Errors(t *testing.T) {
	ds, rep := scenario(t)
	dir := t.TempDir()

	missingDir := filepath.Join(dir, "no", "such", "dir", "chart.png")
	err := RenderCharts(missingDir, ds, rep, smallStyle())
	var re *RenderError
	require.True(t, errors.As(err, &re), "err = %v", err)
	assert.Equal(t, missingDir, re.Path)
	_, statErr := os.Stat(missingDir)
	assert.True(t, os.IsNotExist(statErr))

	badFont := filepath.Join(dir, "bad.ttf")
	require.NoError(t, os.WriteFile(badFont, []byte("not a font"), 0o644))
	out := filepath.Join(dir, "chart.png")
	err = RenderCharts(out, ds, rep, smallStyle().WithFontFile(badFont))
	require.True(t, errors.As(err, &re), "err = %v", err)
	_, statErr = os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))

	err = RenderCharts(out, &dataset.Dataset{}, &analysis.Report{}, smallStyle())
	require.True(t, errors.As(err, &re))
}

func TestRenderCharts_KeepsPreviousFileOnFailure(t *testing.T) {
	ds, rep := scenario(t)
	out := filepath.Join(t.TempDir(), "chart.png")
	require.NoError(t, os.WriteFile(out, []byte("old"), 0o644))

	st := smallStyle()
	st.CategoryPalette = "NoSuchPalette"
	require.Error(t, RenderCharts(out, ds, rep, st))
	b, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "old", string(b))
}

func TestFitEquation(t *testing.T) {
	assert.Equal(t, "y=45x+550", fitEquation(analysis.Fit{Slope: 45, Intercept: 550}))
	assert.Equal(t, "y=-3x-12", fitEquation(analysis.Fit{Slope: -3, Intercept: -12}))
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "1,549원", formatAmount(1549.6, "원"))
	assert.Equal(t, "1,533", formatAmount(1533.67, ""))
	assert.Equal(t, "950", formatAmount(950, ""))
}

func TestStyleFor(t *testing.T) {
	st, err := StyleFor("ko")
	require.NoError(t, err)
	assert.Equal(t, "할인율", st.Labels.Discount)
	st, err = StyleFor("")
	require.NoError(t, err)
	assert.Equal(t, "Discount rate", st.Labels.Discount)
	_, err = StyleFor("fr")
	assert.Error(t, err)

	custom := DefaultStyle().WithFontFile("/fonts/NanumGothic.ttf")
	assert.Equal(t, "/fonts/NanumGothic.ttf", custom.FontFile)
	assert.Equal(t, DefaultStyle(), DefaultStyle().WithFontFile(""))
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#4ECDC4")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x4e), c.R)
	assert.Equal(t, uint8(0xcd), c.G)
	assert.Equal(t, uint8(0xc4), c.B)
	for _, bad := range []string{"4ECDC4", "#4ECDC", "#GGGGGG"} {
		_, err := ParseHexColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatStat_NaN(t *testing.T) {
	assert.Equal(t, "NaN", formatStat(math.NaN()))
	assert.Equal(t, "1.5000", formatStat(1.5))
}
