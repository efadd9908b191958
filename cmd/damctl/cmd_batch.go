package main

import (
	"errors"
	"fmt"
	"os"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/calc/premium/batch"
	"DamOpt/internal/calc/premium/importer"
	"DamOpt/internal/config"
	"DamOpt/internal/format"

	"github.com/spf13/cobra"
)

func newBatchCmd(g *globalFlags, cfg config.Config) *cobra.Command {
	var xlsxPath, yamlPath string
	var save bool
	workers := cfg.Workers
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Optimize many designs concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var inputs []dam.Input
			switch {
			case xlsxPath != "":
				f, err := os.Open(xlsxPath)
				if err != nil {
					return err
				}
				sheet, err := importer.Parse(f)
				f.Close()
				if err != nil {
					return err
				}
				for _, e := range sheet.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "row %d skipped: %s\n", e.Row, e.Error)
				}
				inputs = sheet.Inputs
			case yamlPath != "":
				var err error
				if inputs, err = loadInputs(yamlPath); err != nil {
					return err
				}
			default:
				return errors.New("pass --xlsx or --input")
			}

			runner := &batch.Runner{Options: dam.DefaultOptions(), Workers: workers, Timeout: cfg.RunTimeout}
			if save {
				st, err := g.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer st.Close()
				runner.Store = st
			}
			items, err := runner.Run(cmd.Context(), inputs)
			if err != nil {
				return err
			}
			if g.asJSON() {
				return writeJSON(cmd.OutOrStdout(), items)
			}

			t := format.NewTable(g.mode())
			t.Header("#", "H", "n", "m", "xi", "A", "K", "sigma", "Saved", "Error")
			for _, it := range items {
				if it.Result == nil {
					t.Row(it.Index+1, "", "", "", "", "", "", "", "", it.Error)
					continue
				}
				r := it.Result
				saved := ""
				if it.ID > 0 {
					saved = fmt.Sprintf("#%d", it.ID)
				}
				t.Row(it.Index+1, fmt.Sprintf("%.2f", r.H), fmt.Sprintf("%.4f", r.N), fmt.Sprintf("%.4f", r.M),
					fmt.Sprintf("%.4f", r.Xi), fmt.Sprintf("%.2f", r.A), fmt.Sprintf("%.4f", r.K),
					fmt.Sprintf("%.4f", r.Sigma), saved, "")
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&xlsxPath, "xlsx", "", "Workbook with one design per row (header row names the columns)")
	f.StringVar(&yamlPath, "input", "", "YAML list of designs")
	f.BoolVar(&save, "save", false, "Store every successful result")
	f.IntVar(&workers, "workers", workers, "Concurrent runs")
	return cmd
}
