package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/coregx/gxpdf/creator"

	"sheetcharts/internal/chart"
)

const (
	pdfLeft   = 80.0
	pdfRight  = 40.0
	pdfTop    = 110.0
	pdfBottom = 120.0
)

// PDF draws ds as a kind chart titled title into a new document at path.
// Pie charts are drawn as proportional bars with a percentage legend.
func PDF(ctx context.Context, path string, ds chart.Dataset, kind chart.Kind, title string) error {
	if err := validate(ds, kind); err != nil {
		return err
	}

	c := creator.New()
	c.SetTitle(title)
	page, err := c.NewPage()
	if err != nil {
		return fmt.Errorf("new pdf page: %w", err)
	}

	d := &pdfDrawer{page: page}
	d.text(title, pdfLeft, page.Height()-60, creator.HelveticaBold, 18, creator.Black)

	if kind == chart.Pie {
		d.pie(ds)
	} else {
		d.cartesian(ds, kind)
	}
	if d.err != nil {
		return fmt.Errorf("draw pdf chart: %w", d.err)
	}

	if err := c.WriteToFileContext(ctx, path); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

// PDFBytes renders the chart through a temporary file and returns its bytes.
func PDFBytes(ctx context.Context, ds chart.Dataset, kind chart.Kind, title string) ([]byte, error) {
	dir, err := os.MkdirTemp("", "sheetcharts-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "chart.pdf")
	if err := PDF(ctx, path, ds, kind, title); err != nil {
		return nil, err
	}
	return os.ReadFile(path)
}

// pdfDrawer keeps the first drawing error so call sites stay linear.
type pdfDrawer struct {
	page *creator.Page
	err  error
}

func (d *pdfDrawer) text(s string, x, y float64, f creator.FontName, size float64, col creator.Color) {
	if d.err != nil || s == "" {
		return
	}
	d.err = d.page.AddTextColor(s, x, y, f, size, col)
}

func (d *pdfDrawer) line(x1, y1, x2, y2, width float64, col creator.Color) {
	if d.err != nil {
		return
	}
	d.err = d.page.DrawLine(x1, y1, x2, y2, &creator.LineOptions{Color: col, Width: width})
}

func (d *pdfDrawer) rect(x, y, w, h float64, col creator.Color) {
	if d.err != nil {
		return
	}
	if h < 0 {
		y, h = y+h, -h
	}
	if w <= 0 || h <= 0 {
		return
	}
	d.err = d.page.DrawRectFilled(x, y, w, h, col)
}

func (d *pdfDrawer) circle(cx, cy, r float64, col creator.Color) {
	if d.err != nil {
		return
	}
	d.err = d.page.DrawCircle(cx, cy, r, &creator.CircleOptions{FillColor: &col})
}

func (d *pdfDrawer) cartesian(ds chart.Dataset, kind chart.Kind) {
	values := plotValues(ds)
	lo, hi := valueRange(values)

	left, right := pdfLeft, d.page.Width()-pdfRight
	bottom, top := pdfBottom, d.page.Height()-pdfTop
	yFor := func(v float64) float64 { return bottom + (v-lo)/(hi-lo)*(top-bottom) }

	for _, t := range ticks(lo, hi, 5) {
		y := yFor(t)
		d.line(left, y, right, y, 0.5, creator.LightGray)
		d.text(formatValue(t), left-50, y-3, creator.Helvetica, 8, creator.DarkGray)
	}
	d.line(left, bottom, left, top, 1, creator.Black)
	d.line(left, yFor(0), right, yFor(0), 1, creator.Black)

	n := len(values)
	slot := (right - left) / float64(n)
	xFor := func(i int) float64 { return left + slot*float64(i) + slot/2 }
	col := pdfColor(0)

	step := 1
	if maxLabels := int((right - left) / 40); n > maxLabels && maxLabels > 0 {
		step = (n + maxLabels - 1) / maxLabels
	}
	for i := 0; i < n; i += step {
		d.text(truncate(labelAt(ds, i), 8), xFor(i)-12, bottom-16, creator.Helvetica, 7, creator.DarkGray)
	}

	switch kind {
	case chart.Bar:
		barW := math.Max(slot*0.7, 0.5)
		for i, v := range values {
			d.rect(xFor(i)-barW/2, yFor(0), barW, yFor(v)-yFor(0), col)
		}
	case chart.Line:
		for i := 1; i < n; i++ {
			d.line(xFor(i-1), yFor(values[i-1]), xFor(i), yFor(values[i]), 2, col)
		}
		for i, v := range values {
			d.circle(xFor(i), yFor(v), 2.5, col)
		}
	case chart.Scatter:
		for i, v := range values {
			d.circle(xFor(i), yFor(v), 3, col)
		}
	}
}

func (d *pdfDrawer) pie(ds chart.Dataset) {
	shares := slices(plotValues(ds))
	left, right := pdfLeft, d.page.Width()-pdfRight
	width := right - left
	y := d.page.Height() - pdfTop - 30

	// One stacked bar split by share.
	x := left
	for i, s := range shares {
		d.rect(x, y, s*width, 30, pdfColor(i))
		x += s * width
	}

	ly := y - 40
	for i, s := range shares {
		if ly < 40 {
			break
		}
		d.rect(left, ly, 10, 10, pdfColor(i))
		d.text(truncate(legendLabel(labelAt(ds, i), s), 70), left+18, ly+1, creator.Helvetica, 10, creator.Black)
		ly -= 18
	}
}

func pdfColor(i int) creator.Color {
	h := parseHex(chart.ColorAt(i))
	return creator.Color{R: float64(h.R) / 255, G: float64(h.G) / 255, B: float64(h.B) / 255}
}
