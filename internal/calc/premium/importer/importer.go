// Package importer reads design inputs from an Excel workbook.
package importer

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"DamOpt/internal/calc/dam"

	"github.com/xuri/excelize/v2"
)

// Columns are matched by header name, case-insensitively. Any column may be
// omitted; missing values take the reference constants. Only H is required.
var Columns = []string{"H", "gamma_bt", "gamma_n", "f", "C", "Kc", "a1", "alpha", "k_factor", "epochs", "seed"}

var ErrNoHeight = errors.New("importer: sheet has no H column")

// RowError describes a skipped row.
type RowError struct {
	Row   int    `json:"row"` // 1-based, as shown in Excel
	Error string `json:"error"`
}

type Sheet struct {
	Inputs []dam.Input
	Rows   []int // source row of each input
	Errors []RowError
}

// Parse reads the first sheet of an xlsx stream.
func Parse(r io.Reader) (Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Sheet{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return Sheet{}, err
	}
	if len(rows) < 2 {
		return Sheet{}, errors.New("importer: empty sheet")
	}

	index := make(map[string]int)
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index["h"]; !ok {
		return Sheet{}, ErrNoHeight
	}

	var out Sheet
	for i := 1; i < len(rows); i++ {
		if blank(rows[i]) {
			continue
		}
		in, err := parseRow(rows[i], index)
		if err != nil {
			out.Errors = append(out.Errors, RowError{Row: i + 1, Error: err.Error()})
			continue
		}
		out.Inputs = append(out.Inputs, in)
		out.Rows = append(out.Rows, i+1)
	}
	return out, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, index map[string]int) (dam.Input, error) {
	in := dam.DefaultInput(0)
	cell := func(name string) (string, bool) {
		i, ok := index[strings.ToLower(name)]
		if !ok || i >= len(row) {
			return "", false
		}
		v := strings.TrimSpace(row[i])
		return v, v != ""
	}
	floats := map[string]*float64{
		"H":        &in.H,
		"gamma_bt": &in.GammaBT,
		"gamma_n":  &in.GammaN,
		"f":        &in.F,
		"C":        &in.C,
		"Kc":       &in.Kc,
		"a1":       &in.A1,
		"alpha":    &in.Alpha,
		"k_factor": &in.KFactor,
	}
	for name, dst := range floats {
		v, ok := cell(name)
		if !ok {
			if name == "H" {
				return in, errors.New("H is empty")
			}
			continue
		}
		x, err := toFloat(v)
		if err != nil {
			return in, fmt.Errorf("%s: %w", name, err)
		}
		*dst = x
	}
	if v, ok := cell("epochs"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return in, fmt.Errorf("epochs: %w", err)
		}
		in.Epochs = n
	}
	if v, ok := cell("seed"); ok {
		s, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return in, fmt.Errorf("seed: %w", err)
		}
		in.Seed = &s
	}
	if err := in.Validate(); err != nil {
		return in, err
	}
	return in, nil
}

// toFloat accepts a decimal comma as well as a point.
func toFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
