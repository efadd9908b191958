package main

import (
	"errors"
	"fmt"

	"DamOpt/internal/calc/report"

	"github.com/spf13/cobra"
)

func newReportCmd(g *globalFlags) *cobra.Command {
	var id, pdfPath, xlsxPath string
	var caps bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a saved run as PDF or Excel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if caps {
				if g.asJSON() {
					return writeJSON(cmd.OutOrStdout(), report.Capabilities())
				}
				for _, c := range report.Capabilities() {
					state := "available"
					if !c.OK {
						state = "unavailable: " + c.Reason
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%-5s %s\n", c.Format, state)
				}
				return nil
			}
			if id == "" {
				return errors.New("--id is required")
			}
			if pdfPath == "" && xlsxPath == "" {
				return errors.New("nothing to write: pass --pdf and/or --xlsx")
			}
			rec, err := lookupRecord(cmd, g, id)
			if err != nil {
				return err
			}
			return writeReports(cmd, rec.Result, pdfPath, xlsxPath)
		},
	}
	f := cmd.Flags()
	f.StringVar(&id, "id", "", "Saved run id")
	f.StringVar(&pdfPath, "pdf", "", "PDF output path")
	f.StringVar(&xlsxPath, "xlsx", "", "Excel output path")
	f.BoolVar(&caps, "capabilities", false, "List the report formats this build can produce")
	return cmd
}
