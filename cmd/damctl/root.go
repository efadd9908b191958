package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"DamOpt/internal/config"
	"DamOpt/internal/format"
	"DamOpt/internal/logging"
	"DamOpt/internal/repo"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	store    string
	dsn      string
	logLevel string
	output   string
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	cfg, err := config.Load()
	if err != nil {
		// fall back to built-in defaults; flags can still override
		cfg = config.Config{Store: "sqlite", SQLitePath: "data/dam_results.db", LogLevel: "info", Workers: 4}
	}

	root := &cobra.Command{
		Use:   "damctl",
		Short: "Optimize gravity dam cross-sections",
		Long: "damctl searches for the smallest two-slope gravity dam section that meets\n" +
			"the sliding stability and no-tension conditions, and manages saved runs.",
		SilenceUsage: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logging.Init(logging.ParseLevel(g.logLevel), "text", cmd.ErrOrStderr())
		},
		Version: version,
	}

	f := root.PersistentFlags()
	f.StringVar(&g.store, "store", cfg.Store, "Result store: memory, sqlite or postgres")
	f.StringVar(&g.dsn, "dsn", cfg.DSN(), "SQLite path or Postgres connection string")
	f.StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	f.StringVarP(&g.output, "output", "o", "table", "Output: table, md or json")

	root.AddCommand(
		newOptimizeCmd(g, cfg),
		newEvaluateCmd(g),
		newHistoryCmd(g),
		newReportCmd(g),
		newBatchCmd(g, cfg),
	)
	return root
}

func (g *globalFlags) openStore(ctx context.Context) (repo.Store, error) {
	st, err := repo.NewStore(g.store, g.dsn)
	if err != nil {
		return nil, err
	}
	if err := st.Init(ctx); err != nil {
		return nil, fmt.Errorf("open %s store: %w", g.store, err)
	}
	return st, nil
}

func (g *globalFlags) mode() format.Mode {
	return format.ParseMode(g.output)
}

func (g *globalFlags) asJSON() bool {
	return g.output == "json"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
