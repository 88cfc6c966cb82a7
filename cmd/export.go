package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/export"
)

var (
	exportPoolID   string
	exportOut      string
	exportMinScore int
	exportStatus   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a pool's candidates and contacts to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		totals, err := export.PoolToXLSX(ctx, st, export.Options{
			PoolID:   exportPoolID,
			Status:   exportStatus,
			MinScore: exportMinScore,
		}, exportOut)
		if err != nil {
			return err
		}

		cmd.Printf("wrote %s: %d companies, %d contacts\n", exportOut, totals.Companies, totals.Contacts)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPoolID, "pool", "default", "candidate pool to export")
	exportCmd.Flags().StringVar(&exportOut, "out", "leads.xlsx", "output file path")
	exportCmd.Flags().IntVar(&exportMinScore, "min-score", 0, "minimum quality score")
	exportCmd.Flags().StringVar(&exportStatus, "status", "", "candidate status filter")
	rootCmd.AddCommand(exportCmd)
}
