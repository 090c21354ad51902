package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/KaramelBytes/discountlens/internal/analysis"
	"github.com/KaramelBytes/discountlens/internal/dataset"
	"github.com/KaramelBytes/discountlens/internal/utils"
)

// RenderCharts draws the 2×2 chart grid and writes it to path as a PNG:
//
//	scatter with least-squares line | mean sales per discount rate
//	scatter colored by category     | sales box plot per discount rate
//
// The file is replaced atomically; on error any previous file is left as is.
func RenderCharts(path string, ds *dataset.Dataset, rep *analysis.Report, st Style) error {
	if ds == nil || rep == nil || ds.Len() == 0 {
		return &RenderError{Path: path, Err: errors.New("nothing to plot")}
	}
	img, err := drawCharts(ds, rep, st)
	if err != nil {
		return &RenderError{Path: path, Err: err}
	}
	err = utils.SafeWriteFunc(path, func(w io.Writer) error {
		_, err := vgimg.PngCanvas{Canvas: img}.WriteTo(w)
		return err
	})
	if err != nil {
		return &RenderError{Path: path, Err: err}
	}
	return nil
}

func drawCharts(ds *dataset.Dataset, rep *analysis.Report, st Style) (*vgimg.Canvas, error) {
	if st.DPI <= 0 || st.WidthIn <= 0 || st.HeightIn <= 0 {
		return nil, fmt.Errorf("invalid image geometry: %dx%v×%v", st.DPI, st.WidthIn, st.HeightIn)
	}
	h, err := st.textHandler()
	if err != nil {
		return nil, err
	}
	c := &charter{st: st, handler: h}

	builders := [2][2]func(*dataset.Dataset, *analysis.Report) (*plot.Plot, error){
		{c.scatterFit, c.meanBars},
		{c.categoryScatter, c.salesBoxes},
	}
	plots := make([][]*plot.Plot, 2)
	for j := range builders {
		plots[j] = make([]*plot.Plot, 2)
		for i, build := range builders[j] {
			if plots[j][i], err = build(ds, rep); err != nil {
				return nil, err
			}
		}
	}

	img := vgimg.NewWith(
		vgimg.UseWH(vg.Length(st.WidthIn)*vg.Inch, vg.Length(st.HeightIn)*vg.Inch),
		vgimg.UseDPI(st.DPI),
		vgimg.UseBackgroundColor(color.White),
	)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows: 2, Cols: 2,
		PadX: vg.Points(24), PadY: vg.Points(24),
		PadTop: vg.Points(12), PadBottom: vg.Points(12),
		PadLeft: vg.Points(12), PadRight: vg.Points(12),
	}
	canvases := plot.Align(plots, tiles, dc)
	for j := range plots {
		for i := range plots[j] {
			plots[j][i].Draw(canvases[j][i])
		}
	}
	return img, nil
}

type charter struct {
	st      Style
	handler text.Handler
}

// newPlot creates a plot whose text uses the style's fonts.
func (c *charter) newPlot(title, xLabel, yLabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel
	c.textStyle(&p.Title.TextStyle, c.st.TitleSize)
	c.textStyle(&p.X.Label.TextStyle, c.st.LabelSize)
	c.textStyle(&p.Y.Label.TextStyle, c.st.LabelSize)
	c.textStyle(&p.X.Tick.Label, c.st.TickSize)
	c.textStyle(&p.Y.Tick.Label, c.st.TickSize)
	c.textStyle(&p.Legend.TextStyle, c.st.LegendSize)
	p.Title.Padding = vg.Points(6)
	return p
}

func (c *charter) textStyle(ts *text.Style, size float64) {
	ts.Font = c.st.font(size)
	ts.Handler = c.handler
}

func grid(vertical bool) *plotter.Grid {
	g := plotter.NewGrid()
	g.Horizontal.Color = color.Gray{Y: 0xd9}
	if vertical {
		g.Vertical.Color = color.Gray{Y: 0xd9}
	} else {
		g.Vertical.Color = nil
	}
	return g
}

func points(recs []dataset.Record) plotter.XYs {
	pts := make(plotter.XYs, len(recs))
	for i, r := range recs {
		pts[i].X = r.DiscountRate
		pts[i].Y = r.SalesAmount
	}
	return pts
}

func (c *charter) scatterFit(ds *dataset.Dataset, rep *analysis.Report) (*plot.Plot, error) {
	l := c.st.Labels
	p := c.newPlot(fmt.Sprintf("%s\nr = %.4f", l.ScatterTitle, rep.Pearson.R), l.DiscountAxis, l.SalesAxis)

	sc, err := plotter.NewScatter(points(ds.Records))
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	sc.GlyphStyle.Shape = draw.CircleGlyph{}
	sc.GlyphStyle.Radius = vg.Points(c.st.MarkerRadius)
	sc.GlyphStyle.Color = c.st.PointColor

	lo, hi := rep.Discount.Min, rep.Discount.Max
	line, err := plotter.NewLine(plotter.XYs{{X: lo, Y: rep.Fit.At(lo)}, {X: hi, Y: rep.Fit.At(hi)}})
	if err != nil {
		return nil, fmt.Errorf("fit line: %w", err)
	}
	line.LineStyle.Color = c.st.FitColor
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(4)}

	p.Add(grid(true), sc, line)
	p.Legend.Add(fmt.Sprintf("%s (%s)", l.Fit, fitEquation(rep.Fit)), line)
	p.Legend.Top = true
	return p, nil
}

// fitEquation renders y=ax+b with the intercept's sign folded in.
func fitEquation(f analysis.Fit) string {
	sign := "+"
	b := f.Intercept
	if b < 0 {
		sign, b = "-", -b
	}
	return fmt.Sprintf("y=%.0fx%s%.0f", f.Slope, sign, b)
}

func (c *charter) meanBars(_ *dataset.Dataset, rep *analysis.Report) (*plot.Plot, error) {
	l := c.st.Labels
	p := c.newPlot(l.BarTitle, l.Discount, l.MeanSalesAxis)

	n := len(rep.Groups)
	width := vg.Points(math.Min(60, 300/float64(n)))
	names := make([]string, n)
	xys := make(plotter.XYs, n)
	annotations := make([]string, n)
	top := 0.0
	p.Add(grid(false))
	for i, g := range rep.Groups {
		bar, err := plotter.NewBarChart(plotter.Values{g.MeanSales}, width)
		if err != nil {
			return nil, fmt.Errorf("bar %v: %w", g.Rate, err)
		}
		bar.XMin = float64(i)
		if len(c.st.BarColors) > 0 {
			bar.Color = c.st.BarColors[i%len(c.st.BarColors)]
		}
		bar.LineStyle.Color = color.Black
		bar.LineStyle.Width = vg.Points(1.5)
		p.Add(bar)

		names[i] = formatRate(g.Rate, l.Percent)
		xys[i] = plotter.XY{X: float64(i), Y: g.MeanSales}
		annotations[i] = formatAmount(g.MeanSales, l.Currency)
		top = math.Max(top, g.MeanSales)
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: annotations})
	if err != nil {
		return nil, fmt.Errorf("bar labels: %w", err)
	}
	for i := range labels.TextStyle {
		c.textStyle(&labels.TextStyle[i], c.st.AnnotationSize)
		labels.TextStyle[i].XAlign = text.XCenter
		labels.TextStyle[i].YAlign = text.YBottom
	}
	labels.Offset = vg.Point{Y: vg.Points(2)}
	p.Add(labels)
	p.NominalX(names...)
	p.Y.Min = 0
	// headroom for the value labels
	p.Y.Max = math.Max(p.Y.Max, top*1.12)
	return p, nil
}

func (c *charter) categoryScatter(ds *dataset.Dataset, _ *analysis.Report) (*plot.Plot, error) {
	l := c.st.Labels
	p := c.newPlot(l.CategoryTitle, l.DiscountAxis, l.SalesAxis)
	p.Add(grid(true))

	cats := analysis.Categories(ds.Records)
	colors, err := c.categoryColors(len(cats))
	if err != nil {
		return nil, err
	}
	byCat := map[string][]dataset.Record{}
	for _, r := range ds.Records {
		byCat[r.Category] = append(byCat[r.Category], r)
	}
	for i, cat := range cats {
		sc, err := plotter.NewScatter(points(byCat[cat]))
		if err != nil {
			return nil, fmt.Errorf("scatter %s: %w", cat, err)
		}
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(c.st.MarkerRadius * 0.9)
		sc.GlyphStyle.Color = colors[i]
		p.Add(sc)
		p.Legend.Add(cat, sc)
	}
	p.Legend.Top = true
	return p, nil
}

// categoryColors picks n colors from the style's qualitative palette,
// cycling when there are more categories than palette entries.
func (c *charter) categoryColors(n int) ([]color.Color, error) {
	const paletteMin, paletteMax = 3, 12
	k := n
	if k < paletteMin {
		k = paletteMin
	}
	if k > paletteMax {
		k = paletteMax
	}
	pal, err := brewer.GetPalette(brewer.TypeQualitative, c.st.CategoryPalette, k)
	if err != nil {
		// some qualitative palettes stop at 8 or 9 colors
		if pal, err = brewer.GetPalette(brewer.TypeQualitative, c.st.CategoryPalette, paletteMin); err != nil {
			return nil, fmt.Errorf("category palette %q: %w", c.st.CategoryPalette, err)
		}
	}
	base := pal.Colors()
	out := make([]color.Color, n)
	for i := range out {
		src := base[i%len(base)]
		r, g, b, _ := src.RGBA()
		out[i] = color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: 0xb3}
	}
	return out, nil
}

func (c *charter) salesBoxes(_ *dataset.Dataset, rep *analysis.Report) (*plot.Plot, error) {
	l := c.st.Labels
	p := c.newPlot(l.BoxTitle, l.Discount, l.SalesAxis)
	p.Add(grid(false))

	n := len(rep.Groups)
	width := vg.Points(math.Min(50, 250/float64(n)))
	names := make([]string, n)
	for i, g := range rep.Groups {
		box, err := plotter.NewBoxPlot(width, float64(i), plotter.Values(g.Sales))
		if err != nil {
			return nil, fmt.Errorf("box %v: %w", g.Rate, err)
		}
		box.FillColor = c.st.BoxFill
		box.MedianStyle.Color = c.st.MedianColor
		box.MedianStyle.Width = vg.Points(2)
		p.Add(box)
		names[i] = formatRate(g.Rate, l.Percent)
	}
	p.NominalX(names...)
	return p, nil
}
