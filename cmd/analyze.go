package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/KaramelBytes/discountlens/internal/analysis"
	cfgpkg "github.com/KaramelBytes/discountlens/internal/config"
	"github.com/KaramelBytes/discountlens/internal/dataset"
	"github.com/KaramelBytes/discountlens/internal/render"
)

var (
	anaOutputImage string
	anaThreshold   float64
	anaFieldDisc   string
	anaFieldSales  string
	anaFieldCat    string
	anaDelimiter   string
	anaSheet       string
	anaHeadRows    int
	anaFormat      string
	anaNoImage     bool
	anaLang        string
	anaFontFile    string
	anaDPI         int
	anaDecimal     string
	anaThousands   string
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze the discount rate / sales relationship of a CSV, TSV or XLSX file",
	Long: `Analyze loads the table, prints descriptive statistics, the Pearson correlation
between discount rate and sales with its p-value, mean sales per discount rate
and per-category correlations, then writes a 2x2 chart image.

The input defaults to input_path from the config (discount_sales_data.csv).`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := newRunner(cmd, args)
		if err != nil {
			return err
		}
		imagePath := r.cfg.OutputImagePath
		if anaNoImage {
			imagePath = ""
		}
		_, err = r.run(cmd.Context(), r.cfg.InputPath, cmd.OutOrStdout(), imagePath)
		return err
	},
}

// runner carries the resolved settings for one or more analysis runs.
type runner struct {
	cfg    *cfgpkg.Global
	style  render.Style
	load   dataset.Options
	format string
	status io.Writer
}

func newRunner(cmd *cobra.Command, args []string) (*runner, error) {
	c, err := effectiveConfig(cmd, args)
	if err != nil {
		return nil, err
	}
	switch anaFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("unsupported --format: %s (use text|json)", anaFormat)
	}
	loadOpt, err := loadOptions(c)
	if err != nil {
		return nil, err
	}
	st, err := render.StyleFor(c.Language)
	if err != nil {
		return nil, err
	}
	st = st.WithFontFile(c.FontFile)
	st.DPI = c.DPI
	st.WidthIn, st.HeightIn = c.ImageWidthIn, c.ImageHeightIn
	r := &runner{cfg: c, style: st, load: loadOpt, format: anaFormat, status: cmd.ErrOrStderr()}
	if c.Language == "ko" && c.FontFile == "" && !anaNoImage {
		warnColor.Fprintln(r.status, "⚠ Warning: no font_file set; Korean chart labels need a Hangul font (e.g. --font NanumGothic.ttf)")
	}
	return r, nil
}

// run loads input, writes the report to report and, unless imagePath is
// empty, renders the charts. The report is written before the chart so a
// rendering failure still leaves the text output.
func (r *runner) run(ctx context.Context, input string, report io.Writer, imagePath string) (*analysis.Report, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("input", input).Float64("threshold", r.cfg.SignificanceThreshold).Msg("analyzing")

	ds, err := dataset.Load(ctx, input, r.load)
	if err != nil {
		return nil, err
	}
	if ds.Skipped > 0 {
		warnColor.Fprintf(r.status, "⚠ Skipped %d invalid row(s) in %s\n", ds.Skipped, ds.Name)
	}
	rep, err := analysis.Analyze(ctx, ds, analysis.Options{Threshold: r.cfg.SignificanceThreshold})
	if err != nil {
		return nil, err
	}

	if r.format == "json" {
		err = render.WriteJSON(report, ds, rep)
	} else {
		err = render.WriteText(report, ds, rep, r.style)
	}
	if err != nil {
		return rep, fmt.Errorf("write report: %w", err)
	}

	if imagePath == "" {
		return rep, nil
	}
	if err := render.RenderCharts(imagePath, ds, rep, r.style); err != nil {
		return rep, err
	}
	okColor.Fprintf(r.status, "✓ Wrote chart to %s\n", imagePath)
	return rep, nil
}

// effectiveConfig layers explicitly set flags and the positional input over
// the loaded configuration.
func effectiveConfig(cmd *cobra.Command, args []string) (*cfgpkg.Global, error) {
	c := *currentConfig()
	if len(args) == 1 {
		c.InputPath = args[0]
	}
	f := cmd.Flags()
	if f.Changed("output-image") {
		c.OutputImagePath = anaOutputImage
	}
	if f.Changed("threshold") {
		c.SignificanceThreshold = anaThreshold
	}
	if f.Changed("field-discount") {
		c.FieldDiscountRate = anaFieldDisc
	}
	if f.Changed("field-sales") {
		c.FieldSalesAmount = anaFieldSales
	}
	if f.Changed("field-category") {
		c.FieldCategory = anaFieldCat
	}
	if f.Changed("delimiter") {
		c.Delimiter = anaDelimiter
	}
	if f.Changed("sheet") {
		c.Sheet = anaSheet
	}
	if f.Changed("head-rows") {
		c.HeadRows = anaHeadRows
	}
	if f.Changed("lang") {
		c.Language = anaLang
	}
	if f.Changed("font") {
		c.FontFile = anaFontFile
	}
	if f.Changed("dpi") {
		c.DPI = anaDPI
	}
	if c.InputPath == "" {
		return nil, fmt.Errorf("no input file given and input_path is not configured")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadOptions(c *cfgpkg.Global) (dataset.Options, error) {
	opt := dataset.DefaultOptions()
	opt.Fields = dataset.FieldMap{
		DiscountRate: c.FieldDiscountRate,
		SalesAmount:  c.FieldSalesAmount,
		Category:     c.FieldCategory,
	}
	opt.Sheet = c.Sheet
	opt.HeadRows = c.HeadRows
	switch c.Delimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case "\t", "tab":
		opt.Delimiter = '\t'
	case ";":
		opt.Delimiter = ';'
	case "|", "pipe":
		opt.Delimiter = '|'
	default:
		return opt, fmt.Errorf("unsupported delimiter: %s", c.Delimiter)
	}
	// Locale separators
	switch strings.ToLower(strings.TrimSpace(anaDecimal)) {
	case ",", "comma":
		opt.DecimalSeparator = ','
	case ".", "dot":
		opt.DecimalSeparator = '.'
	case "":
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", anaDecimal)
	}
	switch strings.ToLower(strings.TrimSpace(anaThousands)) {
	case ",":
		opt.ThousandsSeparator = ','
	case ".":
		opt.ThousandsSeparator = '.'
	case "space", " ":
		opt.ThousandsSeparator = ' '
	case "":
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", anaThousands)
	}
	return opt, nil
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaOutputImage, "output-image", "o", cfgpkg.DefaultOutputImagePath, "path of the PNG chart to write")
	analyzeCmd.Flags().Float64Var(&anaThreshold, "threshold", cfgpkg.DefaultThreshold, "significance threshold for the p-value")
	analyzeCmd.Flags().StringVar(&anaFieldDisc, "field-discount", "", "header of the discount rate column (default: auto-detect)")
	analyzeCmd.Flags().StringVar(&anaFieldSales, "field-sales", "", "header of the sales amount column (default: auto-detect)")
	analyzeCmd.Flags().StringVar(&anaFieldCat, "field-category", "", "header of the category column (default: auto-detect)")
	analyzeCmd.Flags().StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab'")
	analyzeCmd.Flags().StringVar(&anaSheet, "sheet", "", "XLSX: sheet name to analyze (default: first sheet)")
	analyzeCmd.Flags().IntVar(&anaHeadRows, "head-rows", cfgpkg.DefaultHeadRows, "number of leading rows to show")
	analyzeCmd.Flags().StringVar(&anaFormat, "format", "text", "report format: text|json")
	analyzeCmd.Flags().BoolVar(&anaNoImage, "no-image", false, "skip writing the chart image")
	analyzeCmd.Flags().StringVar(&anaLang, "lang", cfgpkg.DefaultLanguage, "report and chart language: en|ko")
	analyzeCmd.Flags().StringVar(&anaFontFile, "font", "", "TTF/OTF font for chart text")
	analyzeCmd.Flags().IntVar(&anaDPI, "dpi", cfgpkg.DefaultDPI, "chart resolution")
	analyzeCmd.Flags().StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	analyzeCmd.Flags().StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}
