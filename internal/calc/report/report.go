// Package report renders an optimization result as PDF or Excel.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"DamOpt/internal/calc/dam"
)

const Title = "Gravity Dam Cross-Section Optimization Report"

// Availability says whether a format can be produced in this build.
type Availability struct {
	Format string `json:"format"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Renderer writes one report format. Renderers hold no per-result state; the
// result is always passed in.
type Renderer interface {
	Format() string
	ContentType() string
	Available() Availability
	Render(w io.Writer, res dam.Result) error
}

var renderers = []Renderer{PDF{}, Excel{}}

// Capabilities lists every known format with its availability.
func Capabilities() []Availability {
	out := make([]Availability, 0, len(renderers))
	for _, r := range renderers {
		out = append(out, r.Available())
	}
	return out
}

// Lookup finds the renderer for a format such as "pdf" or "xlsx".
func Lookup(format string) (Renderer, error) {
	format = strings.TrimPrefix(strings.ToLower(format), ".")
	i := slices.IndexFunc(renderers, func(r Renderer) bool { return r.Format() == format })
	if i < 0 {
		return nil, fmt.Errorf("report: unknown format %q", format)
	}
	r := renderers[i]
	if a := r.Available(); !a.OK {
		return nil, fmt.Errorf("report: %s unavailable: %s", format, a.Reason)
	}
	return r, nil
}

// Row is one labelled value of the summary tables.
type Row struct {
	Label string
	Value string
}

// label has a plain ASCII form for the PDF core fonts.
type label struct {
	text, ascii string
}

func (l label) pick(ascii bool) string {
	if ascii {
		return l.ascii
	}
	return l.text
}

func rows(ascii bool, pairs ...label) []Row {
	out := make([]Row, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Row{Label: pairs[i].pick(ascii), Value: pairs[i+1].pick(ascii)})
	}
	return out
}

func same(s string) label {
	return label{s, s}
}

func unit(v string, u, uascii string) label {
	return label{v + " " + u, v + " " + uascii}
}

// InputRows are the design constants of res.
func InputRows(res dam.Result, ascii bool) []Row {
	return rows(ascii,
		same("Dam height (H)"), same(fmt.Sprintf("%.2f m", res.H)),
		label{"Concrete unit weight (γ_bt)", "Concrete unit weight (gamma_bt)"}, unit(fmt.Sprintf("%.2f", res.GammaBT), "T/m³", "T/m3"),
		label{"Water unit weight (γ_n)", "Water unit weight (gamma_n)"}, unit(fmt.Sprintf("%.2f", res.GammaN), "T/m³", "T/m3"),
		same("Friction coefficient (f)"), same(fmt.Sprintf("%.2f", res.F)),
		same("Cohesion (C)"), unit(fmt.Sprintf("%.2f", res.C), "T/m²", "T/m2"),
		same("Required stability factor (Kc)"), same(fmt.Sprintf("%.2f", res.Kc)),
		label{"Uplift coefficient (α1)", "Uplift coefficient (a1)"}, same(fmt.Sprintf("%.2f", res.A1)),
	)
}

// OutputRows are the optimized shape and its mechanics.
func OutputRows(res dam.Result, ascii bool) []Row {
	return rows(ascii,
		same("Upstream slope factor (n)"), same(fmt.Sprintf("%.4f", res.N)),
		same("Downstream slope factor (m)"), same(fmt.Sprintf("%.4f", res.M)),
		label{"Parameter ξ", "Parameter xi"}, same(fmt.Sprintf("%.4f", res.Xi)),
		same("Section area (A)"), unit(fmt.Sprintf("%.4f", res.A), "m²", "m2"),
		same("Stability factor (K)"), same(fmt.Sprintf("%.4f", res.K)),
		label{"Upstream edge stress (σ)", "Upstream edge stress (sigma)"}, unit(fmt.Sprintf("%.4f", res.Sigma), "T/m²", "T/m2"),
		same("Computation time"), same(fmt.Sprintf("%.2f s", res.ComputationTime)),
	)
}

// Verdicts are the two feasibility lines.
func Verdicts(res dam.Result) []string {
	stab := fmt.Sprintf("Stability: K = %.4f %s Kc = %.2f (%s)", res.K, cmpSign(res.K >= res.Kc, ">=", "<"), res.Kc, okText(res.StabilityOK))
	tension := fmt.Sprintf("No tension: sigma = %.4f %s 0 (%s)", res.Sigma, cmpSign(res.Sigma <= 0, "<=", ">"), okText(res.NoTensionOK))
	return []string{stab, tension}
}

func cmpSign(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}

func okText(ok bool) string {
	if ok {
		return "satisfied"
	}
	return "NOT satisfied"
}
