package report

import (
	"fmt"
	"io"
	"math"
	"time"

	"DamOpt/internal/calc/dam"

	"github.com/phpdave11/gofpdf"
)

// maxCurvePoints bounds the loss polyline; longer histories are strided.
const maxCurvePoints = 1000

// PDF writes a two-page report: tables and the force diagram, then the loss
// curve. Only core fonts are used, so all text is plain ASCII.
type PDF struct{}

func (PDF) Format() string { return "pdf" }

func (PDF) ContentType() string { return "application/pdf" }

func (PDF) Available() Availability {
	return Availability{Format: "pdf", OK: true}
}

type box struct {
	x, y, w, h float64
}

func (PDF) Render(w io.Writer, res dam.Result) error {
	now := time.Now()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(Title, false)
	pdf.SetAuthor("damopt", false)
	pdf.SetCreationDate(now)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-18)
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, 5, "Generated by the gravity dam section optimizer", "", 1, "C", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Created %s  -  page %d", now.Format("02/01/2006 15:04:05"), pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 15)
	pdf.CellFormat(0, 10, Title, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 5, fmt.Sprintf("Run %s  seed %d  status %s  epochs %d", res.RunID, res.SeedUsed, res.Status, res.Epochs), "", 1, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(3)

	section(pdf, "Design input")
	table(pdf, InputRows(res, true))
	pdf.Ln(3)
	section(pdf, "Results")
	table(pdf, OutputRows(res, true))
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 10)
	for i, line := range Verdicts(res) {
		ok := res.StabilityOK
		if i == 1 {
			ok = res.NoTensionOK
		}
		if ok {
			pdf.SetTextColor(0, 120, 0)
		} else {
			pdf.SetTextColor(180, 0, 0)
		}
		pdf.CellFormat(0, 6, line, "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(2)

	section(pdf, "Section and loads")
	_, pageH := pdf.GetPageSize()
	left, _, _, bottom := pdf.GetMargins()
	top := pdf.GetY() + 2
	if fig, err := dam.Diagram(res.Site(), res.Params); err != nil {
		// diverged runs can carry a shape that has no section to draw
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(0, 6, "The section cannot be drawn: "+err.Error(), "", "L", false)
	} else {
		drawFigure(pdf, fig, box{x: left, y: top, w: 180, h: math.Min(85, pageH-bottom-top-20)})
	}

	pdf.AddPage()
	section(pdf, "Training loss")
	drawLossCurve(pdf, res.LossHistory, box{x: left + 12, y: pdf.GetY() + 4, w: 165, h: 110})

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}

func section(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
}

func table(pdf *gofpdf.Fpdf, rows []Row) {
	pdf.SetFont("Helvetica", "", 10)
	for _, r := range rows {
		pdf.CellFormat(90, 7, r.Label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(90, 7, r.Value, "1", 1, "L", false, 0, "")
	}
}

// drawFigure draws the section outline, the headwater line and one arrow
// per load, scaled to fit b.
func drawFigure(pdf *gofpdf.Fpdf, fig dam.Figure, b box) {
	xmin, xmax := 0.0, fig.Arms.B
	for _, f := range fig.Forces {
		xmin = math.Min(xmin, f.At.X)
		xmax = math.Max(xmax, f.At.X)
	}
	pad := 0.25 * fig.Arms.B
	xmin -= pad
	xmax += pad
	ymin, ymax := -0.08*fig.H, 1.08*fig.H
	s := math.Min(b.w/(xmax-xmin), b.h/(ymax-ymin))
	px := func(x float64) float64 { return b.x + (x-xmin)*s }
	py := func(y float64) float64 { return b.y + b.h - (y-ymin)*s }

	// ground
	pdf.SetDrawColor(120, 120, 120)
	pdf.SetLineWidth(0.2)
	pdf.Line(px(xmin), py(0), px(xmax), py(0))

	// headwater at full height on the upstream side
	crest := fig.Outline[2]
	pdf.SetDrawColor(30, 90, 200)
	pdf.SetDashPattern([]float64{1.5, 1}, 0)
	pdf.Line(px(xmin), py(fig.H), px(crest.X), py(fig.H))
	pdf.SetDashPattern([]float64{}, 0)

	pts := make([]gofpdf.PointType, 0, len(fig.Outline))
	for _, p := range fig.Outline {
		pts = append(pts, gofpdf.PointType{X: px(p.X), Y: py(p.Y)})
	}
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetFillColor(215, 215, 215)
	pdf.SetLineWidth(0.4)
	pdf.Polygon(pts, "DF")

	var peak float64
	for _, f := range fig.Forces {
		peak = math.Max(peak, math.Abs(f.Magnitude))
	}
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetDrawColor(200, 30, 30)
	pdf.SetFillColor(200, 30, 30)
	pdf.SetLineWidth(0.35)
	for _, f := range fig.Forces {
		length := 6.0
		if peak > 0 {
			length += 10 * math.Abs(f.Magnitude) / peak
		}
		tipX, tipY := px(f.At.X), py(f.At.Y)
		// page y grows downward
		dx, dy := f.Dir.X, -f.Dir.Y
		tailX, tailY := tipX-dx*length, tipY-dy*length
		arrow(pdf, tailX, tailY, tipX, tipY)
		pdf.Text(tailX+1, tailY-1, fmt.Sprintf("%s=%.0f", f.Name, f.Magnitude))
	}
	pdf.SetDrawColor(0, 0, 0)

	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(b.x, b.y+b.h+4, fmt.Sprintf("H = %.2f m   B = %.2f m   n = %.4f   m = %.4f   xi = %.4f",
		fig.H, fig.Arms.B, fig.Params.N, fig.Params.M, fig.Params.Xi))
}

func arrow(pdf *gofpdf.Fpdf, x1, y1, x2, y2 float64) {
	pdf.Line(x1, y1, x2, y2)
	ang := math.Atan2(y2-y1, x2-x1)
	const head, spread = 2.0, 0.45
	pdf.Polygon([]gofpdf.PointType{
		{X: x2, Y: y2},
		{X: x2 - head*math.Cos(ang-spread), Y: y2 - head*math.Sin(ang-spread)},
		{X: x2 - head*math.Cos(ang+spread), Y: y2 - head*math.Sin(ang+spread)},
	}, "F")
}

// drawLossCurve plots log10(loss) against epoch.
func drawLossCurve(pdf *gofpdf.Fpdf, history []float64, b box) {
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Rect(b.x, b.y, b.w, b.h, "D")
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(b.x+b.w/2-5, b.y+b.h+8, "Epoch")
	pdf.Text(b.x-12, b.y-2, "log10(loss)")

	if len(history) == 0 {
		pdf.Text(b.x+4, b.y+8, "No epochs were run.")
		return
	}

	logs := make([]float64, len(history))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range history {
		logs[i] = math.Log10(math.Max(v, 1e-12))
		lo = math.Min(lo, logs[i])
		hi = math.Max(hi, logs[i])
	}
	lo, hi = math.Floor(lo), math.Ceil(hi)
	if hi == lo {
		hi = lo + 1
	}
	last := float64(max(len(history)-1, 1))
	px := func(i int) float64 { return b.x + float64(i)/last*b.w }
	py := func(v float64) float64 { return b.y + b.h - (v-lo)/(hi-lo)*b.h }

	pdf.SetDrawColor(200, 200, 200)
	for d := lo; d <= hi; d++ {
		y := py(d)
		pdf.Line(b.x, y, b.x+b.w, y)
		pdf.Text(b.x-7, y+1, fmt.Sprintf("%.0f", d))
	}
	pdf.Text(b.x-1, b.y+b.h+4, "0")
	pdf.Text(b.x+b.w-6, b.y+b.h+4, fmt.Sprintf("%d", len(history)-1))

	stride := max(1, len(history)/maxCurvePoints)
	pdf.SetDrawColor(30, 90, 200)
	pdf.SetLineWidth(0.35)
	prev := 0
	for i := stride; i < len(history); i += stride {
		pdf.Line(px(prev), py(logs[prev]), px(i), py(logs[i]))
		prev = i
	}
	if end := len(history) - 1; prev != end {
		pdf.Line(px(prev), py(logs[prev]), px(end), py(logs[end]))
	}
	pdf.SetDrawColor(0, 0, 0)
}
