package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/KaramelBytes/discountlens/internal/analysis"
	"github.com/KaramelBytes/discountlens/internal/render"
)

const scenarioCSV = "discountRate,salesAmount,category\n" +
	"10,1000,A\n20,1500,A\n30,1800,A\n10,900,B\n20,1600,B\n"

// resetFlags restores every flag to its default so Changed state does not leak
// between invocations.
func resetFlags(fs *pflag.FlagSet) {
	fs.VisitAll(func(fl *pflag.Flag) {
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	})
}

// execute runs the root command with args and returns stdout, stderr and the error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd.PersistentFlags())
	resetFlags(analyzeCmd.Flags())
	resetFlags(analyzeBatchCmd.Flags())
	cfg = nil

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

// runCmd is a helper to execute the root command with args that must succeed.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, stderr, err := execute(t, args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\nstderr: %s", args, err, stderr)
	}
	return out
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	return home
}

func writeInput(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestCLI_AnalyzeScenario(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "sales.csv", scenarioCSV)
	img := filepath.Join(home, "out.png")

	out, stderr, err := execute(t, "analyze", in, "-o", img, "--dpi", "30")
	if err != nil {
		t.Fatalf("analyze: %v\nstderr: %s", err, stderr)
	}
	for _, want := range []string{"Pearson r: 0.9625", "A: 0.9897", "statistically significant correlation"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "B: ") {
		t.Fatalf("category B should be omitted:\n%s", out)
	}
	if !strings.Contains(stderr, "Wrote chart to "+img) {
		t.Fatalf("stderr = %q", stderr)
	}
	if st, err := os.Stat(img); err != nil || st.Size() == 0 {
		t.Fatalf("chart not written: %v", err)
	}
}

func TestCLI_AnalyzeIsDeterministic(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "sales.csv", scenarioCSV)
	a := runCmd(t, "analyze", in, "--no-image", "--lang", "ko")
	b := runCmd(t, "analyze", in, "--no-image", "--lang", "ko")
	if a != b {
		t.Fatalf("reports differ:\n%s\n---\n%s", a, b)
	}
}

func TestCLI_HeaderOnlyFailsWithoutImage(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "empty.csv", "discountRate,salesAmount,category\n")
	img := filepath.Join(home, "out.png")

	_, _, err := execute(t, "analyze", in, "-o", img)
	var ee *analysis.EmptyDatasetError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want *EmptyDatasetError", err)
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Fatalf("image should not exist, stat err = %v", err)
	}
}

func TestCLI_BlankSalesRowIsSkipped(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "gap.csv", "discountRate,salesAmount,category\n"+
		"10,1000,A\n20,,A\n30,1800,A\n10,900,B\n")

	out, stderr, err := execute(t, "analyze", in, "--no-image")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "Records: 3 (skipped 1)") {
		t.Fatalf("report:\n%s", out)
	}
	if !strings.Contains(stderr, "Skipped 1 invalid row(s)") {
		t.Fatalf("stderr = %q", stderr)
	}
}

func TestCLI_JSONFormat(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "sales.csv", scenarioCSV)
	img := filepath.Join(home, "out.png")

	out := runCmd(t, "analyze", in, "--format", "json", "--no-image", "-o", img)
	var rep struct {
		Records    int `json:"records"`
		Categories []struct {
			Category string `json:"category"`
		} `json:"categories"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rep.Records != 5 || len(rep.Categories) != 1 || rep.Categories[0].Category != "A" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Fatalf("--no-image wrote %s", img)
	}
}

func TestCLI_RenderFailureKeepsTextReport(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "sales.csv", scenarioCSV)
	img := filepath.Join(home, "missing", "dir", "out.png")

	out, _, err := execute(t, "analyze", in, "-o", img, "--dpi", "30")
	var re *render.RenderError
	if !errors.As(err, &re) {
		t.Fatalf("err = %v, want *RenderError", err)
	}
	if !strings.Contains(out, "Pearson r: 0.9625") {
		t.Fatalf("text report not written before chart failure:\n%s", out)
	}
}

func TestCLI_FlagsOverrideConfig(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "mapped.csv", "Rabatt,Umsatz,Gruppe\n"+
		"10,1000,A\n20,1500,A\n30,1800,A\n10,900,B\n20,1600,B\n")
	cfgPath := filepath.Join(home, "discountlens.yaml")

	runCmd(t, "--config", cfgPath, "config", "set", "field_discount_rate", "Rabatt")
	runCmd(t, "--config", cfgPath, "config", "set", "field_sales_amount", "Umsatz")
	runCmd(t, "--config", cfgPath, "config", "set", "field_category", "Gruppe")
	runCmd(t, "--config", cfgPath, "config", "set", "significance_threshold", "0.001")

	show := runCmd(t, "--config", cfgPath, "config", "show")
	if !strings.Contains(show, "field_sales_amount: Umsatz") || !strings.Contains(show, "significance_threshold: 0.001") {
		t.Fatalf("config show:\n%s", show)
	}

	out := runCmd(t, "--config", cfgPath, "analyze", in, "--no-image")
	if !strings.Contains(out, "no statistically significant correlation (p >= 0.001)") {
		t.Fatalf("config threshold not applied:\n%s", out)
	}
	out = runCmd(t, "--config", cfgPath, "analyze", in, "--no-image", "--threshold", "0.05")
	if !strings.Contains(out, "statistically significant correlation (p < 0.05)") {
		t.Fatalf("flag threshold not applied:\n%s", out)
	}
}

func TestCLI_DecimalCommaOnSemicolonFile(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "eu.csv", "discountRate;salesAmount;category\n"+
		"10;1,000;A\n20;1,500;A\n30;1,800;A\n10;0,900;B\n20;1,600;B\n")

	meanAt10 := func(args ...string) float64 {
		t.Helper()
		out := runCmd(t, append([]string{"analyze", in, "--no-image", "--format", "json", "--delimiter", ";"}, args...)...)
		var rep struct {
			Skipped int `json:"skipped"`
			Groups  []struct {
				Rate      float64 `json:"rate"`
				MeanSales float64 `json:"mean_sales"`
			} `json:"groups"`
		}
		if err := json.Unmarshal([]byte(out), &rep); err != nil {
			t.Fatalf("decode: %v\n%s", err, out)
		}
		if rep.Skipped != 0 || len(rep.Groups) != 3 || rep.Groups[0].Rate != 10 {
			t.Fatalf("unexpected report: %+v", rep)
		}
		return rep.Groups[0].MeanSales
	}

	// "1,000" reads as a grouped thousand unless the decimal mark is pinned
	if got := meanAt10(); got != 950 {
		t.Fatalf("auto-detected mean = %v, want 950", got)
	}
	if got := meanAt10("--decimal", "comma"); got < 0.9499 || got > 0.9501 {
		t.Fatalf("--decimal comma mean = %v, want 0.95", got)
	}
	if got := meanAt10("--thousands", "."); got < 0.9499 || got > 0.9501 {
		t.Fatalf("--thousands . mean = %v, want 0.95", got)
	}
}

func TestCLI_InvalidInputs(t *testing.T) {
	home := isolate(t)
	in := writeInput(t, home, "sales.csv", scenarioCSV)
	cases := [][]string{
		{"analyze", in, "--format", "xml"},
		{"analyze", in, "--threshold", "1.5"},
		{"analyze", in, "--lang", "fr"},
		{"analyze", in, "--delimiter", "#"},
		{"analyze", in, "--decimal", "x"},
		{"analyze", in, "--thousands", "x"},
		{"analyze", filepath.Join(home, "absent.csv")},
		{"config", "set", "no_such_key", "1"},
	}
	for _, args := range cases {
		if _, _, err := execute(t, args...); err == nil {
			t.Fatalf("%v: expected error", args)
		}
	}
}
