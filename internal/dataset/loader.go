package dataset

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Options controls how a dataset file is read.
type Options struct {
	// Fields maps the required fields to column headers; empty entries use aliases.
	Fields FieldMap
	// Delimiter for CSV. If 0, '\t' for .tsv files and ',' otherwise.
	Delimiter rune
	// Sheet selects the XLSX worksheet; empty means the first sheet.
	Sheet string
	// HeadRows is how many raw rows to keep for display.
	HeadRows int
	// Numeric parsing locale. If DecimalSeparator is 0, auto-detect per value.
	DecimalSeparator   rune
	ThousandsSeparator rune
}

// DefaultOptions returns reasonable defaults for loading a dataset.
func DefaultOptions() Options {
	return Options{HeadRows: 5}
}

// Load reads path into a Dataset, choosing the reader by file extension.
func Load(ctx context.Context, path string, opt Options) (*Dataset, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return LoadXLSX(ctx, path, opt)
	}
	return LoadCSV(ctx, path, opt)
}

// LoadCSV parses a delimited text file with a header row.
func LoadCSV(ctx context.Context, path string, opt Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path)
	}
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.Comma = delim

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &DataLoadError{Path: path, Err: errors.New("file is empty (no header row)")}
		}
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("read header: %w", err)}
	}
	b, err := newBuilder(filepath.Base(path), header, opt)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	line := 1
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &DataLoadError{Path: path, Err: fmt.Errorf("read row %d: %w", line+1, err)}
		}
		line++
		b.add(ctx, line, rec)
	}
	ds := b.done()
	zerolog.Ctx(ctx).Debug().Str("file", ds.Name).Int("records", ds.Len()).Int("skipped", ds.Skipped).Msg("csv loaded")
	return ds, nil
}

// LoadXLSX reads the selected worksheet of an Excel workbook.
func LoadXLSX(ctx context.Context, path string, opt Options) (*Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	defer f.Close()

	sheet := opt.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, &DataLoadError{Path: path, Err: errors.New("workbook has no sheets")}
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("sheet %q not found; available: %s", sheet, strings.Join(f.GetSheetList(), ", "))}
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("read sheet %q: %w", sheet, err)}
	}
	if len(rows) == 0 {
		return nil, &DataLoadError{Path: path, Err: fmt.Errorf("sheet %q is empty (no header row)", sheet)}
	}
	b, err := newBuilder(filepath.Base(path), rows[0], opt)
	if err != nil {
		return nil, &DataLoadError{Path: path, Err: err}
	}
	for i, row := range rows[1:] {
		b.add(ctx, i+2, row)
	}
	ds := b.done()
	zerolog.Ctx(ctx).Debug().Str("file", ds.Name).Str("sheet", sheet).Int("records", ds.Len()).Int("skipped", ds.Skipped).Msg("xlsx loaded")
	return ds, nil
}

// builder turns raw rows into records, shared by the CSV and XLSX readers.
type builder struct {
	ds   *Dataset
	idx  [3]int
	ncol int
	opt  Options
}

func newBuilder(name string, header []string, opt Options) (*builder, error) {
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = strings.TrimSpace(h)
	}
	if len(cols) > 0 {
		cols[0] = strings.TrimPrefix(cols[0], "\ufeff")
	}
	idx, fields, err := opt.Fields.resolve(cols)
	if err != nil {
		return nil, err
	}
	return &builder{
		ds:   &Dataset{Name: name, Columns: cols, Fields: fields},
		idx:  idx,
		ncol: len(cols),
		opt:  opt,
	}, nil
}

func (b *builder) add(ctx context.Context, line int, rec []string) {
	if len(rec) == 0 {
		// no cells at all, e.g. an unused XLSX row between data rows
		return
	}
	if len(rec) < b.ncol {
		// pad
		tmp := make([]string, b.ncol)
		copy(tmp, rec)
		rec = tmp
	}
	rate, okRate := parseNumeric(rec[b.idx[0]], b.opt)
	sales, okSales := parseNumeric(rec[b.idx[1]], b.opt)
	cat := strings.TrimSpace(rec[b.idx[2]])
	if !okRate || !okSales || cat == "" || rate < 0 || sales < 0 {
		b.ds.Skipped++
		zerolog.Ctx(ctx).Debug().Int("line", line).Strs("row", rec).Msg("row skipped")
		return
	}
	if len(b.ds.Head) < b.opt.HeadRows {
		row := make([]string, b.ncol)
		copy(row, rec)
		b.ds.Head = append(b.ds.Head, row)
	}
	b.ds.Records = append(b.ds.Records, Record{DiscountRate: rate, SalesAmount: sales, Category: cat})
}

func (b *builder) done() *Dataset { return b.ds }

func sniffDelimiter(path string) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

// parseNumeric accepts integers and decimals with an optional trailing '%'
// and optional thousands separators.
func parseNumeric(s string, opt Options) (float64, bool) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSuffix(raw, "%")
	raw = strings.ReplaceAll(raw, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	dec := opt.DecimalSeparator
	thou := opt.ThousandsSeparator
	switch {
	case dec != 0:
	case thou == '.':
		dec = ','
	case thou == ',':
		dec = '.'
	default:
		cpos := strings.LastIndex(raw, ",")
		dpos := strings.LastIndex(raw, ".")
		switch {
		case cpos >= 0 && dpos >= 0 && cpos > dpos:
			dec = ','
			if thou == 0 {
				thou = '.'
			}
		case cpos >= 0 && dpos < 0 && !looksGrouped(raw, ','):
			dec = ','
		default:
			dec = '.'
		}
	}
	if thou == 0 {
		for _, sep := range []rune{',', '.', ' '} {
			if sep != dec {
				raw = strings.ReplaceAll(raw, string(sep), "")
			}
		}
	} else if thou != dec {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// looksGrouped reports whether s is digits grouped in threes by sep, e.g. 1,000,000.
func looksGrouped(s string, sep rune) bool {
	parts := strings.Split(strings.TrimPrefix(s, "-"), string(sep))
	if len(parts) < 2 || len(parts[0]) == 0 || len(parts[0]) > 3 {
		return false
	}
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
