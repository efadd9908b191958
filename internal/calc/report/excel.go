package report

import (
	"fmt"
	"io"

	"DamOpt/internal/calc/dam"

	"github.com/xuri/excelize/v2"
)

const (
	resultsSheet = "Results"
	lossSheet    = "Loss"
	chartSheet   = "Chart"
)

// Excel writes a workbook with a summary sheet, the loss history and a
// log-scale loss chart.
type Excel struct{}

func (Excel) Format() string { return "xlsx" }

func (Excel) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (Excel) Available() Availability {
	return Availability{Format: "xlsx", OK: true}
}

func (Excel) Render(w io.Writer, res dam.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), resultsSheet); err != nil {
		return err
	}
	if err := writeSummary(f, res); err != nil {
		return fmt.Errorf("results sheet: %w", err)
	}
	if _, err := f.NewSheet(lossSheet); err != nil {
		return err
	}
	if err := writeLoss(f, res.LossHistory); err != nil {
		return fmt.Errorf("loss sheet: %w", err)
	}
	if len(res.LossHistory) > 0 {
		if err := addLossChart(f, len(res.LossHistory)); err != nil {
			return fmt.Errorf("chart sheet: %w", err)
		}
	}
	f.SetActiveSheet(0)
	_, err := f.WriteTo(w)
	return err
}

func writeSummary(f *excelize.File, res dam.Result) error {
	if err := f.SetColWidth(resultsSheet, "A", "A", 34); err != nil {
		return err
	}
	if err := f.SetColWidth(resultsSheet, "B", "B", 22); err != nil {
		return err
	}
	all := append(InputRows(res, false), OutputRows(res, false)...)
	if err := f.SetSheetRow(resultsSheet, "A1", &[]any{"Parameter", "Value"}); err != nil {
		return err
	}
	for i, r := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(resultsSheet, cell, &[]any{r.Label, r.Value}); err != nil {
			return err
		}
	}
	for i, v := range Verdicts(res) {
		cell, err := excelize.CoordinatesToCellName(1, len(all)+3+i)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(resultsSheet, cell, v); err != nil {
			return err
		}
	}
	return nil
}

func writeLoss(f *excelize.File, history []float64) error {
	if err := f.SetSheetRow(lossSheet, "A1", &[]any{"Epoch", "Loss"}); err != nil {
		return err
	}
	for i, v := range history {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(lossSheet, cell, &[]any{i, v}); err != nil {
			return err
		}
	}
	return nil
}

func addLossChart(f *excelize.File, n int) error {
	if _, err := f.NewSheet(chartSheet); err != nil {
		return err
	}
	last := n + 1
	return f.AddChart(chartSheet, "B2", &excelize.Chart{
		Type: excelize.Line,
		Series: []excelize.ChartSeries{{
			Name:       "Loss",
			Categories: fmt.Sprintf("%s!$A$2:$A$%d", lossSheet, last),
			Values:     fmt.Sprintf("%s!$B$2:$B$%d", lossSheet, last),
			Line:       excelize.ChartLine{Width: 1.5},
		}},
		Title: []excelize.RichTextRun{{Text: "Training loss"}},
		XAxis: excelize.ChartAxis{Title: []excelize.RichTextRun{{Text: "Epoch"}}},
		YAxis: excelize.ChartAxis{
			LogBase: 10,
			Title:   []excelize.RichTextRun{{Text: "Loss"}},
		},
		Dimension: excelize.ChartDimension{Width: 720, Height: 432},
	})
}
