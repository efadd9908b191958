package main

import (
	"fmt"
	"strconv"
	"time"

	"DamOpt/internal/format"
	"DamOpt/internal/repo"

	"github.com/spf13/cobra"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse saved runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List saved runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printRecords(cmd, g, repo.Filter{})
		},
	}

	var h, minK float64
	search := &cobra.Command{
		Use:   "search",
		Short: "Filter saved runs by height and minimum K",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var f repo.Filter
			if cmd.Flags().Changed("h") {
				f.H = &h
			}
			if cmd.Flags().Changed("min-k") {
				f.MinK = &minK
			}
			return printRecords(cmd, g, f)
		},
	}
	search.Flags().Float64Var(&h, "h", 0, fmt.Sprintf("Dam height (matched within %g m)", repo.HTolerance))
	search.Flags().Float64Var(&minK, "min-k", 0, "Minimum stability factor")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := lookupRecord(cmd, g, args[0])
			if err != nil {
				return err
			}
			if g.asJSON() {
				return writeJSON(cmd.OutOrStdout(), rec)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Run #%d saved %s\n", rec.ID, rec.Timestamp.Local().Format(time.DateTime))
			fmt.Fprintln(cmd.OutOrStdout(), format.Result(rec.Result, g.mode()))
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			st, err := g.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()
			ok, err := st.Delete(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run #%d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
			return nil
		},
	}

	cmd.AddCommand(list, search, show, del)
	return cmd
}

func printRecords(cmd *cobra.Command, g *globalFlags, f repo.Filter) error {
	st, err := g.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	records, err := st.Search(cmd.Context(), f)
	if err != nil {
		return err
	}
	if g.asJSON() {
		return writeJSON(cmd.OutOrStdout(), records)
	}
	if len(records) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No saved runs.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), format.History(records, time.Now(), g.mode()))
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid run id %q", s)
	}
	return id, nil
}

func lookupRecord(cmd *cobra.Command, g *globalFlags, arg string) (repo.Record, error) {
	id, err := parseID(arg)
	if err != nil {
		return repo.Record{}, err
	}
	st, err := g.openStore(cmd.Context())
	if err != nil {
		return repo.Record{}, err
	}
	defer st.Close()
	rec, ok, err := st.Get(cmd.Context(), id)
	if err != nil {
		return repo.Record{}, err
	}
	if !ok {
		return repo.Record{}, fmt.Errorf("run #%d not found", id)
	}
	return rec, nil
}
