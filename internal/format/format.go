// Package format renders results as terminal or Markdown tables.
package format

import (
	"fmt"
	"time"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/calc/report"
	"DamOpt/internal/repo"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type Mode int

const (
	ASCII Mode = iota
	Markdown
)

// ParseMode maps "md"/"markdown" to Markdown and anything else to ASCII.
func ParseMode(s string) Mode {
	switch s {
	case "md", "markdown":
		return Markdown
	default:
		return ASCII
	}
}

// Table is a thin wrapper over a go-pretty writer.
type Table struct {
	w    table.Writer
	mode Mode
}

func NewTable(m Mode) *Table {
	w := table.NewWriter()
	if m == ASCII {
		w.SetStyle(table.StyleLight)
	}
	return &Table{w: w, mode: m}
}

func (t *Table) Header(cols ...any) {
	t.w.AppendHeader(table.Row(cols))
}

func (t *Table) Row(vals ...any) {
	t.w.AppendRow(table.Row(vals))
}

// AlignRight right-aligns the given 1-based columns.
func (t *Table) AlignRight(cols ...int) {
	cfgs := make([]table.ColumnConfig, 0, len(cols))
	for _, c := range cols {
		cfgs = append(cfgs, table.ColumnConfig{Number: c, Align: text.AlignRight})
	}
	t.w.SetColumnConfigs(cfgs)
}

func (t *Table) String() string {
	if t.mode == Markdown {
		return t.w.RenderMarkdown()
	}
	return t.w.Render()
}

// Result is the two-column summary of one run followed by its verdicts.
func Result(res dam.Result, m Mode) string {
	t := NewTable(m)
	t.Header("Parameter", "Value")
	for _, r := range report.InputRows(res, false) {
		t.Row(r.Label, r.Value)
	}
	for _, r := range report.OutputRows(res, false) {
		t.Row(r.Label, r.Value)
	}
	t.Row("Final loss", fmt.Sprintf("%.6g", res.FinalLoss))
	t.Row("Status", string(res.Status))
	t.Row("Seed", res.SeedUsed)
	out := t.String()
	for _, v := range report.Verdicts(res) {
		out += "\n" + v
	}
	return out
}

// History lists stored runs with their age relative to now.
func History(records []repo.Record, now time.Time, m Mode) string {
	t := NewTable(m)
	t.Header("ID", "Saved", "H", "n", "m", "xi", "A", "K", "sigma", "OK")
	t.AlignRight(1, 3, 4, 5, 6, 7, 8, 9)
	for _, r := range records {
		ok := "no"
		if r.Feasible() {
			ok = "yes"
		}
		t.Row(r.ID, humanize.RelTime(r.Timestamp, now, "ago", "from now"),
			fmt.Sprintf("%.2f", r.H),
			fmt.Sprintf("%.4f", r.N), fmt.Sprintf("%.4f", r.M), fmt.Sprintf("%.4f", r.Xi),
			humanize.FormatFloat("#,###.##", r.A),
			fmt.Sprintf("%.4f", r.K), fmt.Sprintf("%.4f", r.Sigma), ok)
	}
	return t.String()
}
