package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/store"
	sfpkg "github.com/sells-group/leadgen-cli/pkg/salesforce"
)

var (
	pushPoolID   string
	pushMinScore int
	pushDryRun   bool
)

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push a pool's qualified candidates to Salesforce as Leads",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		candidates, err := st.ListLeadCandidates(ctx, store.CandidateFilter{PoolID: pushPoolID})
		if err != nil {
			return err
		}

		var records []map[string]any
		for _, candidate := range candidates {
			if candidate.Score < pushMinScore {
				continue
			}
			contacts, err := st.ListContacts(ctx, candidate.ID)
			if err != nil {
				return err
			}
			for _, contact := range contacts {
				records = append(records, sfpkg.LeadRecord(
					candidate.CompanyName, candidate.HomepageURL, candidate.Industry,
					candidate.Description, contact.FullName, contact.Title,
					contact.Email, contact.Phone,
				))
			}
		}

		if len(records) == 0 {
			cmd.Println("nothing to push")
			return nil
		}
		if pushDryRun {
			cmd.Printf("dry run: %d leads would be pushed\n", len(records))
			return nil
		}

		client, err := initSalesforce()
		if err != nil {
			return err
		}

		results, err := client.InsertCollection(ctx, "Lead", records)
		if err != nil {
			return err
		}

		pushed, failed := 0, 0
		for _, r := range results {
			if r.Success {
				pushed++
			} else {
				failed++
				zap.L().Warn("lead insert failed", zap.Strings("errors", r.Errors))
			}
		}
		cmd.Printf("pushed %d leads (%d failed)\n", pushed, failed)
		return nil
	},
}

func init() {
	pushCmd.Flags().StringVar(&pushPoolID, "pool", "default", "candidate pool to push")
	pushCmd.Flags().IntVar(&pushMinScore, "min-score", 70, "minimum quality score")
	pushCmd.Flags().BoolVar(&pushDryRun, "dry-run", false, "count leads without pushing")
	rootCmd.AddCommand(pushCmd)
}
