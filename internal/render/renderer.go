// Package render draws column distributions of one or more tables into a single PNG.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"sort"

	"divdataset/domain/dataset"
	"divdataset/internal/config"
	"divdataset/internal/errors"

	"golang.org/x/sync/semaphore"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

const (
	// MaxCategories caps the bars drawn for a categorical column
	MaxCategories = 20
	// HistogramBins is the bin count for numeric columns
	HistogramBins = 30
	// MaxPanels is the most tables drawn into one figure
	MaxPanels = 4

	tileWidth  = 6 * vg.Inch
	tileHeight = 5 * vg.Inch
)

// Panel is one titled table to draw
type Panel struct {
	Title string
	Table *dataset.Table
}

// Renderer draws distribution figures, bounding how many render at once
type Renderer struct {
	sem *semaphore.Weighted
	dpi int
}

// NewRenderer creates a renderer from the render configuration
func NewRenderer(cfg config.RenderConfig) *Renderer {
	slots := cfg.MaxConcurrent
	if slots < 1 {
		slots = 1
	}
	dpi := cfg.DPI
	if dpi <= 0 {
		dpi = 80
	}
	return &Renderer{
		sem: semaphore.NewWeighted(int64(slots)),
		dpi: dpi,
	}
}

// Render draws the column for up to MaxPanels tables and returns a base64-encoded PNG.
// Categorical columns become bar charts of the most frequent values, numeric columns
// become histograms. Every failure, including a backend panic, is a RenderError.
func (r *Renderer) Render(ctx context.Context, column string, panels []Panel) (encoded string, err error) {
	if len(panels) == 0 {
		return "", errors.RenderError("nothing to render", nil)
	}
	if len(panels) > MaxPanels {
		panels = panels[:MaxPanels]
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		return "", errors.RenderError("render slot unavailable", err)
	}
	defer r.sem.Release(1)

	defer func() {
		if rec := recover(); rec != nil {
			encoded = ""
			err = errors.RenderError("plotting backend failed", fmt.Errorf("%v", rec))
		}
	}()

	plots := make([]*plot.Plot, len(panels))
	for i, panel := range panels {
		p, err := columnPlot(column, panel)
		if err != nil {
			return "", errors.RenderError(fmt.Sprintf("failed to plot %q for %s", column, panel.Title), err)
		}
		plots[i] = p
	}

	rows, cols := layout(len(plots))
	grid := make([][]*plot.Plot, rows)
	for j := range grid {
		grid[j] = plots[j*cols : (j+1)*cols]
	}

	img := vgimg.NewWith(
		vgimg.UseWH(tileWidth*vg.Length(cols), tileHeight*vg.Length(rows)),
		vgimg.UseDPI(r.dpi),
	)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      rows,
		Cols:      cols,
		PadX:      vg.Millimeter * 4,
		PadY:      vg.Millimeter * 4,
		PadTop:    vg.Millimeter * 2,
		PadBottom: vg.Millimeter * 2,
		PadLeft:   vg.Millimeter * 2,
		PadRight:  vg.Millimeter * 2,
	}
	canvases := plot.Align(grid, tiles, dc)
	for j := range grid {
		for i := range grid[j] {
			grid[j][i].Draw(canvases[j][i])
		}
	}

	var buf bytes.Buffer
	if _, err := (vgimg.PngCanvas{Canvas: img}).WriteTo(&buf); err != nil {
		return "", errors.RenderError("failed to encode png", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// layout places up to three panels side by side and four in a 2x2 grid
func layout(n int) (rows, cols int) {
	if n == 4 {
		return 2, 2
	}
	return 1, n
}

func columnPlot(column string, panel Panel) (*plot.Plot, error) {
	t := panel.Table
	col := t.ColumnIndex(column)
	if col < 0 {
		return nil, fmt.Errorf("column %q not found", column)
	}

	p := plot.New()
	p.Title.Text = panel.Title
	p.X.Label.Text = column
	p.Y.Label.Text = "Frequency"

	if t.Attributes[col].IsNumeric() {
		values := t.NumericColumn(col)
		if len(values) == 0 {
			return p, nil
		}
		hist, err := plotter.NewHist(plotter.Values(values), bins(values))
		if err != nil {
			return nil, err
		}
		p.Add(hist)
		return p, nil
	}

	counts := TopCounts(t, col, MaxCategories)
	if counts.Truncated {
		p.Title.Text = fmt.Sprintf("%s - Top %d", panel.Title, MaxCategories)
	}
	if len(counts.Values) == 0 {
		return p, nil
	}
	bars, err := plotter.NewBarChart(plotter.Values(counts.Values), vg.Points(12))
	if err != nil {
		return nil, err
	}
	p.Add(bars)
	p.NominalX(counts.Labels...)
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return p, nil
}

// bins keeps a constant column from producing zero-width bins
func bins(values []float64) int {
	first := values[0]
	for _, v := range values[1:] {
		if v != first {
			return HistogramBins
		}
	}
	return 1
}

// Counts are value frequencies in descending order
type Counts struct {
	Labels    []string
	Values    []float64
	Truncated bool
}

// TopCounts returns the limit most frequent non-missing values of a column, most frequent
// first and ties by label
func TopCounts(t *dataset.Table, col, limit int) Counts {
	freq := make(map[string]int)
	for i, row := range t.Rows {
		if !row[col].Missing {
			freq[t.CellKey(i, col)]++
		}
	}

	labels := make([]string, 0, len(freq))
	for k := range freq {
		labels = append(labels, k)
	}
	sort.Slice(labels, func(i, j int) bool {
		if freq[labels[i]] != freq[labels[j]] {
			return freq[labels[i]] > freq[labels[j]]
		}
		return labels[i] < labels[j]
	})

	counts := Counts{}
	if len(labels) > limit {
		labels = labels[:limit]
		counts.Truncated = true
	}
	counts.Labels = labels
	counts.Values = make([]float64, len(labels))
	for i, l := range labels {
		counts.Values[i] = float64(freq[l])
	}
	return counts
}
