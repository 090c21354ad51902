package render

import (
	"fmt"
	"image/color"
	"os"
	"strconv"

	xopentype "golang.org/x/image/font/opentype"
	"gonum.org/v1/plot/font"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
)

// Labels holds every piece of human-readable text the renderers emit.
type Labels struct {
	Discount string
	Sales    string
	Category string
	Percent  string
	Currency string

	DiscountAxis  string
	SalesAxis     string
	MeanSalesAxis string

	ScatterTitle  string
	BarTitle      string
	CategoryTitle string
	BoxTitle      string
	Fit           string

	DatasetSection     string
	DescribeSection    string
	CorrelationSection string
	GroupSection       string
	CategorySection    string

	File           string
	Records        string
	Skipped        string
	Correlation    string
	PearsonR       string
	PValue         string
	Significant    string // formatted with the threshold
	NotSignificant string // formatted with the threshold
	Mean           string
	Count          string
	NoCategories   string
	CategoryNote   string
}

// Style is the presentation configuration shared by the text and chart
// renderers. Styles are plain values: several can coexist in one process.
type Style struct {
	Labels Labels

	// Typeface and Variant select a face from the font cache. When FontFile is
	// set it is parsed and registered under Typeface for this style only.
	Typeface string
	Variant  string
	FontFile string

	TitleSize      float64 // points
	LabelSize      float64
	TickSize       float64
	LegendSize     float64
	AnnotationSize float64

	DPI      int
	WidthIn  float64
	HeightIn float64

	MarkerRadius float64 // points
	PointColor   color.Color
	FitColor     color.Color
	BarColors    []color.Color
	// CategoryPalette names a ColorBrewer qualitative palette.
	CategoryPalette string
	BoxFill         color.Color
	MedianColor     color.Color
}

// DefaultStyle renders English labels with the bundled Liberation Sans font.
func DefaultStyle() Style {
	return Style{
		Labels: Labels{
			Discount:           "Discount rate",
			Sales:              "Sales",
			Category:           "Category",
			Percent:            "%",
			DiscountAxis:       "Discount rate (%)",
			SalesAxis:          "Sales",
			MeanSalesAxis:      "Mean sales",
			ScatterTitle:       "Discount rate vs sales",
			BarTitle:           "Mean sales by discount rate",
			CategoryTitle:      "Discount rate vs sales by category",
			BoxTitle:           "Sales distribution by discount rate",
			Fit:                "Linear fit",
			DatasetSection:     "=== Dataset ===",
			DescribeSection:    "=== Descriptive statistics ===",
			CorrelationSection: "=== Correlation ===",
			GroupSection:       "=== Mean sales by discount rate ===",
			CategorySection:    "=== Correlation by category ===",
			File:               "File",
			Records:            "Records",
			Skipped:            "skipped",
			Correlation:        "Correlation between discount rate and sales",
			PearsonR:           "Pearson r",
			PValue:             "P-value",
			Significant:        "→ statistically significant correlation (p < %g)",
			NotSignificant:     "→ no statistically significant correlation (p >= %g)",
			Mean:               "mean",
			Count:              "count",
			NoCategories:       "(none)",
			CategoryNote:       "categories with 2 or fewer records are omitted",
		},
		Typeface:        "Liberation",
		Variant:         "Sans",
		TitleSize:       14,
		LabelSize:       12,
		TickSize:        10,
		LegendSize:      10,
		AnnotationSize:  9,
		DPI:             300,
		WidthIn:         15,
		HeightIn:        12,
		MarkerRadius:    4,
		PointColor:      withAlpha(color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, 0.6),
		FitColor:        color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff},
		BarColors:       mustHexColors("#FF6B6B", "#4ECDC4", "#45B7D1", "#FFA07A", "#98D8C8"),
		CategoryPalette: "Set3",
		BoxFill:         withAlpha(color.RGBA{R: 0xad, G: 0xd8, B: 0xe6, A: 0xff}, 0.7),
		MedianColor:     color.RGBA{R: 0xff, A: 0xff},
	}
}

// KoreanStyle uses Korean labels. The bundled faces lack Hangul glyphs, so
// charts need WithFontFile pointing at a font such as NanumGothic.
func KoreanStyle() Style {
	s := DefaultStyle()
	s.Labels = Labels{
		Discount:           "할인율",
		Sales:              "매출액",
		Category:           "카테고리",
		Percent:            "%",
		Currency:           "원",
		DiscountAxis:       "할인율 (%)",
		SalesAxis:          "매출액 (원)",
		MeanSalesAxis:      "평균 매출액 (원)",
		ScatterTitle:       "할인율 vs 매출액 산점도",
		BarTitle:           "할인율별 평균 매출액",
		CategoryTitle:      "카테고리별 할인율 vs 매출액",
		BoxTitle:           "할인율별 매출액 분포 (박스플롯)",
		Fit:                "회귀선",
		DatasetSection:     "=== 데이터 정보 ===",
		DescribeSection:    "=== 기초 통계 ===",
		CorrelationSection: "=== 상관분석 결과 ===",
		GroupSection:       "=== 할인율별 평균 매출액 ===",
		CategorySection:    "=== 카테고리별 상관계수 ===",
		File:               "파일",
		Records:            "행 수",
		Skipped:            "제외",
		Correlation:        "할인율과 매출액의 상관계수",
		PearsonR:           "Pearson 상관계수",
		PValue:             "P-value",
		Significant:        "→ 통계적으로 유의미한 상관관계가 있습니다 (p < %g)",
		NotSignificant:     "→ 통계적으로 유의미한 상관관계가 없습니다 (p >= %g)",
		Mean:               "mean",
		Count:              "count",
		NoCategories:       "(없음)",
		CategoryNote:       "관측치가 2개 이하인 카테고리는 제외됩니다",
	}
	return s
}

// WithFontFile returns a copy of s drawing chart text with the TrueType or
// OpenType font at path.
func (s Style) WithFontFile(path string) Style {
	if path == "" {
		return s
	}
	s.FontFile = path
	s.Typeface = "Custom"
	s.Variant = ""
	return s
}

// StyleFor returns the style for a language code ("en" or "ko").
func StyleFor(lang string) (Style, error) {
	switch lang {
	case "", "en":
		return DefaultStyle(), nil
	case "ko":
		return KoreanStyle(), nil
	default:
		return Style{}, fmt.Errorf("unsupported language: %s", lang)
	}
}

func (s Style) font(size float64) font.Font {
	return font.Font{Typeface: font.Typeface(s.Typeface), Variant: font.Variant(s.Variant), Size: vg.Points(size)}
}

// textHandler resolves the font cache for this style. Without a FontFile the
// shared cache with the bundled faces is used.
func (s Style) textHandler() (text.Handler, error) {
	if s.FontFile == "" {
		if s.Typeface != "Liberation" {
			return nil, fmt.Errorf("typeface %q needs a font file", s.Typeface)
		}
		return text.Plain{Fonts: font.DefaultCache}, nil
	}
	b, err := os.ReadFile(s.FontFile)
	if err != nil {
		return nil, fmt.Errorf("read font: %w", err)
	}
	fnt, err := xopentype.Parse(b)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", s.FontFile, err)
	}
	cache := font.NewCache(font.Collection{{
		Font: font.Font{Typeface: font.Typeface(s.Typeface), Variant: font.Variant(s.Variant)},
		Face: fnt,
	}})
	return text.Plain{Fonts: cache}, nil
}

func withAlpha(c color.RGBA, a float64) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: uint8(a*255 + 0.5)}
}

// ParseHexColor parses #RRGGBB.
func ParseHexColor(s string) (color.RGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return color.RGBA{}, fmt.Errorf("invalid color %q (want #RRGGBB)", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func mustHexColors(hex ...string) []color.Color {
	out := make([]color.Color, len(hex))
	for i, h := range hex {
		c, err := ParseHexColor(h)
		if err != nil {
			panic(err)
		}
		out[i] = c
	}
	return out
}
