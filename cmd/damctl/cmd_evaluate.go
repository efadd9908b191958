package main

import (
	"fmt"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/format"

	"github.com/spf13/cobra"
)

type evaluateFlags struct {
	input string
	h     float64
	p     dam.Params
}

func newEvaluateCmd(g *globalFlags) *cobra.Command {
	e := &evaluateFlags{}
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Compute the mechanics of a given section shape",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			in := dam.DefaultInput(0)
			if e.input != "" {
				var err error
				if in, err = loadInput(e.input); err != nil {
					return err
				}
			}
			if cmd.Flags().Changed("height") || e.input == "" {
				in.H = e.h
			}
			if err := in.Site().Validate(); err != nil {
				return err
			}
			st, err := dam.Evaluate(in.Site(), e.p)
			if err != nil {
				return err
			}
			terms := in.Objective().Terms(st)
			if g.asJSON() {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"physics": st, "loss": terms})
			}

			t := format.NewTable(g.mode())
			t.Header("Quantity", "Value")
			t.AlignRight(2)
			for _, row := range []struct {
				name string
				v    float64
			}{
				{"B (m)", st.B},
				{"G (T)", st.G},
				{"W1 (T)", st.W1},
				{"W2 (T)", st.W2},
				{"Wt (T)", st.Wt},
				{"P (T)", st.P},
				{"M0 (T.m)", st.M0},
				{"sigma (T/m2)", st.Sigma},
				{"K", st.K},
				{"A (m2)", st.A},
				{"loss", terms.Total},
			} {
				t.Row(row.name, fmt.Sprintf("%.4f", row.v))
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&e.input, "input", "", "YAML file with the site constants")
	f.Float64Var(&e.h, "height", 60, "Dam height H in metres")
	f.Float64Var(&e.p.N, "n", 0, "Upstream slope factor")
	f.Float64Var(&e.p.M, "m", 0.8, "Downstream slope factor")
	f.Float64Var(&e.p.Xi, "xi", 0.5, "Fraction of H above the upstream batter")
	return cmd
}
