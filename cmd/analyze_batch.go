package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/discountlens/internal/config"
	"github.com/KaramelBytes/discountlens/internal/utils"
)

var (
	abOutDir string
	abQuiet  bool
)

const defaultBatchOutDir = "discountlens_reports"

var analyzeBatchCmd = &cobra.Command{
	Use:   "analyze-batch <files...>",
	Short: "Analyze multiple CSV/TSV/XLSX files, writing one report and chart per file",
	Long: `Analyze-batch expands each argument as a glob, runs the analysis on every
matched file in name order and writes <name>.report.txt (or .json) plus
<name>.png into --out-dir. A summary table of r, p-value and verdict per file
is printed at the end.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var files []string
		seen := map[string]struct{}{}
		for _, arg := range args {
			matches, _ := filepath.Glob(arg)
			if len(matches) == 0 {
				// treat as literal path if exists
				if _, err := os.Stat(arg); err == nil {
					matches = []string{arg}
				}
			}
			for _, m := range matches {
				if _, ok := seen[m]; ok {
					continue
				}
				seen[m] = struct{}{}
				files = append(files, m)
			}
		}
		if len(files) == 0 {
			return fmt.Errorf("no input files matched")
		}
		sort.Strings(files)

		r, err := newRunner(cmd, nil)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(abOutDir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
		ext := ".report.txt"
		if r.format == "json" {
			ext = ".report.json"
		}

		var summary bytes.Buffer
		tw := tabwriter.NewWriter(&summary, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "file\trecords\tskipped\tr\tp-value\tsignificant")

		used := map[string]struct{}{}
		total := len(files)
		for i, path := range files {
			if !abQuiet {
				fmt.Fprintf(r.status, "[%d/%d] Processing %s...\n", i+1, total, filepath.Base(path))
			}
			stem := outputBase(path, r.cfg.Sheet)
			base := uniqueBase(abOutDir, stem, ext, used)
			if base != stem && !abQuiet {
				fmt.Fprintf(r.status, "⚠ Detected existing output, writing to %s to avoid overwrite.\n", base+ext)
			}
			imagePath := filepath.Join(abOutDir, base+".png")
			if anaNoImage {
				imagePath = ""
			}

			var report bytes.Buffer
			rep, runErr := r.run(cmd.Context(), path, &report, imagePath)
			if rep != nil {
				reportPath := filepath.Join(abOutDir, base+ext)
				if err := utils.SafeWriteFile(reportPath, report.Bytes()); err != nil {
					return fmt.Errorf("write report for %s: %w", path, err)
				}
				fmt.Fprintf(tw, "%s\t%d\t%d\t%.4f\t%.6f\t%t\n",
					filepath.Base(path), rep.Records, rep.Skipped, rep.Pearson.R, rep.Pearson.PValue, rep.Significant)
			}
			if runErr != nil {
				return fmt.Errorf("%s: %w", path, runErr)
			}
		}
		_ = tw.Flush()
		_, err = cmd.OutOrStdout().Write(summary.Bytes())
		return err
	},
}

// outputBase derives a file-system friendly stem from the input name, with
// the sheet appended for XLSX inputs.
func outputBase(path, sheet string) string {
	base := filepath.Base(path)
	safe := strings.TrimSuffix(base, filepath.Ext(base))
	if sheet == "" || !strings.EqualFold(filepath.Ext(base), ".xlsx") {
		return safe
	}
	s := strings.ToLower(strings.TrimSpace(sheet))
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else if r == ' ' || r == '-' || r == '_' {
			b.WriteRune('-')
		}
	}
	ss := strings.Trim(b.String(), "-")
	if ss == "" {
		ss = "sheet"
	}
	return safe + "__sheet-" + ss
}

// uniqueBase returns base, or base__N for the first N >= 2 whose report file
// neither exists in dir nor was produced earlier in this run.
func uniqueBase(dir, base, ext string, used map[string]struct{}) string {
	taken := func(b string) bool {
		if _, ok := used[b]; ok {
			return true
		}
		_, err := os.Stat(filepath.Join(dir, b+ext))
		return err == nil
	}
	cand := base
	for idx := 2; taken(cand); idx++ {
		cand = base + "__" + strconv.Itoa(idx)
	}
	used[cand] = struct{}{}
	return cand
}

func init() {
	rootCmd.AddCommand(analyzeBatchCmd)
	f := analyzeBatchCmd.Flags()
	f.StringVar(&abOutDir, "out-dir", defaultBatchOutDir, "directory for per-file reports and charts")
	f.BoolVar(&abQuiet, "quiet", false, "suppress progress and non-essential output")
	// Analysis settings share their variables with the analyze command.
	f.Float64Var(&anaThreshold, "threshold", cfgpkg.DefaultThreshold, "significance threshold for the p-value")
	f.StringVar(&anaFieldDisc, "field-discount", "", "header of the discount rate column (default: auto-detect)")
	f.StringVar(&anaFieldSales, "field-sales", "", "header of the sales amount column (default: auto-detect)")
	f.StringVar(&anaFieldCat, "field-category", "", "header of the category column (default: auto-detect)")
	f.StringVar(&anaDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | '|' | 'tab'")
	f.StringVar(&anaSheet, "sheet", "", "XLSX: sheet name to analyze (default: first sheet)")
	f.IntVar(&anaHeadRows, "head-rows", cfgpkg.DefaultHeadRows, "number of leading rows to show")
	f.StringVar(&anaFormat, "format", "text", "report format: text|json")
	f.BoolVar(&anaNoImage, "no-image", false, "skip writing chart images")
	f.StringVar(&anaLang, "lang", cfgpkg.DefaultLanguage, "report and chart language: en|ko")
	f.StringVar(&anaFontFile, "font", "", "TTF/OTF font for chart text")
	f.IntVar(&anaDPI, "dpi", cfgpkg.DefaultDPI, "chart resolution")
	f.StringVar(&anaDecimal, "decimal", "", "decimal separator for numbers: '.'|'comma' (auto-detect if omitted)")
	f.StringVar(&anaThousands, "thousands", "", "thousands separator for numbers: ','|'.'|'space' (auto-detect if omitted)")
}
