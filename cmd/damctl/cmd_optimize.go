package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"DamOpt/internal/calc/dam"
	"DamOpt/internal/calc/report"
	"DamOpt/internal/config"
	"DamOpt/internal/format"

	"github.com/spf13/cobra"
)

type optimizeFlags struct {
	input   string
	height  float64
	epochs  int
	seed    uint64
	kc      float64
	alpha   float64
	hidden  int
	lr      float64
	timeout time.Duration
	save    bool
	pdf     string
	xlsx    string
}

func newOptimizeCmd(g *globalFlags, cfg config.Config) *cobra.Command {
	o := &optimizeFlags{}
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Run one optimization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOptimize(cmd, g, o)
		},
	}
	def := dam.DefaultInput(0)
	opts := dam.DefaultOptions()
	f := cmd.Flags()
	f.StringVar(&o.input, "input", "", "YAML file with the design input")
	f.Float64Var(&o.height, "height", 0, "Dam height H in metres")
	f.IntVar(&o.epochs, "epochs", def.Epochs, "Iteration budget")
	f.Uint64Var(&o.seed, "seed", 0, "Random seed (drawn when unset)")
	f.Float64Var(&o.kc, "kc", def.Kc, "Required stability factor")
	f.Float64Var(&o.alpha, "alpha", def.Alpha, "Area penalty weight")
	f.IntVar(&o.hidden, "hidden", opts.Hidden, "Hidden layer width")
	f.Float64Var(&o.lr, "lr", opts.LearningRate, "Learning rate")
	f.DurationVar(&o.timeout, "timeout", cfg.RunTimeout, "Abort the run after this long (0 = no limit)")
	f.BoolVar(&o.save, "save", false, "Store the result")
	f.StringVar(&o.pdf, "pdf", "", "Write a PDF report to this path")
	f.StringVar(&o.xlsx, "xlsx", "", "Write an Excel report to this path")
	return cmd
}

func runOptimize(cmd *cobra.Command, g *globalFlags, o *optimizeFlags) error {
	in := dam.DefaultInput(0)
	if o.input != "" {
		var err error
		if in, err = loadInput(o.input); err != nil {
			return err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("height") {
		in.H = o.height
	}
	if flags.Changed("epochs") || o.input == "" {
		in.Epochs = o.epochs
	}
	if flags.Changed("seed") {
		seed := o.seed
		in.Seed = &seed
	}
	if flags.Changed("kc") {
		in.Kc = o.kc
	}
	if flags.Changed("alpha") {
		in.Alpha = o.alpha
	}

	opts := dam.DefaultOptions()
	opts.Hidden = o.hidden
	opts.LearningRate = o.lr

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	res, runErr := dam.Optimize(ctx, in, opts)
	if runErr != nil && !errors.Is(runErr, dam.ErrCanceled) && !errors.Is(runErr, dam.ErrNumericDivergence) {
		return runErr
	}
	// partial results are still shown so the user can see how far it got
	if err := printResult(cmd, g, res); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if o.save {
		st, err := g.openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close()
		id, err := st.Insert(cmd.Context(), res)
		if err != nil {
			return fmt.Errorf("save result: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved as #%d\n", id)
	}
	return writeReports(cmd, res, o.pdf, o.xlsx)
}

func printResult(cmd *cobra.Command, g *globalFlags, res dam.Result) error {
	if g.asJSON() {
		return writeJSON(cmd.OutOrStdout(), res)
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.Result(res, g.mode()))
	return nil
}

// writeReports renders res to each non-empty path.
func writeReports(cmd *cobra.Command, res dam.Result, pdfPath, xlsxPath string) error {
	for _, target := range []struct{ format, path string }{{"pdf", pdfPath}, {"xlsx", xlsxPath}} {
		if target.path == "" {
			continue
		}
		r, err := report.Lookup(target.format)
		if err != nil {
			return err
		}
		f, err := os.Create(target.path)
		if err != nil {
			return err
		}
		if err := r.Render(f, res); err != nil {
			f.Close()
			return fmt.Errorf("render %s: %w", target.format, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", target.path)
	}
	return nil
}
