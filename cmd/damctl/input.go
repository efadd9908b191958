package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"DamOpt/internal/calc/dam"

	"gopkg.in/yaml.v3"
)

// loadInput reads one design from YAML. Keys use the JSON field names
// (H, gamma_bt, Kc, ...); missing keys keep the reference constants.
func loadInput(path string) (dam.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dam.Input{}, err
	}
	in := dam.DefaultInput(0)
	if err := yaml.Unmarshal(data, &in); err != nil {
		return dam.Input{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return in, nil
}

// loadInputs reads a YAML stream of designs, either as one sequence or as
// several documents separated by ---.
func loadInputs(path string) ([]dam.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seq []yaml.Node
	if err := yaml.Unmarshal(data, &seq); err == nil && len(seq) > 0 {
		out := make([]dam.Input, 0, len(seq))
		for i := range seq {
			in := dam.DefaultInput(0)
			if err := seq[i].Decode(&in); err != nil {
				return nil, fmt.Errorf("%s item %d: %w", path, i, err)
			}
			out = append(out, in)
		}
		return out, nil
	}

	var out []dam.Input
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		in := dam.DefaultInput(0)
		err := dec.Decode(&in)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		out = append(out, in)
	}
	return out, nil
}
