package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/people"
)

var (
	peoplePoolID        string
	peopleMaxCandidates int
	peoplePagesPerSite  int
)

var peopleCmd = &cobra.Command{
	Use:   "people",
	Short: "Run the people-enrichment pass over a pool",
	Long:  "Sweeps the team/about/contact pages of already-discovered companies and appends heuristically detected person names as low-confidence contacts. No LLM involved.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mgr := newBrowserManager()
		defer mgr.Close()

		maxCandidates := peopleMaxCandidates
		if maxCandidates <= 0 {
			maxCandidates = cfg.People.MaxCandidates
		}
		pagesPerCompany := peoplePagesPerSite
		if pagesPerCompany <= 0 {
			pagesPerCompany = cfg.People.PagesPerCompany
		}

		pass := people.NewPass(st, &people.BrowserFetcher{Mgr: mgr}, people.Config{
			MaxCandidates:   maxCandidates,
			PagesPerCompany: pagesPerCompany,
		})
		totals, err := pass.Run(ctx, peoplePoolID)
		if err != nil {
			return err
		}

		cmd.Printf("companies visited: %d\npages visited:     %d\npeople found:      %d\ncontacts created:  %d\ncontacts updated:  %d\n",
			totals.Companies, totals.PagesVisited, totals.PeopleDiscovered, totals.ContactsCreated, totals.ContactsUpdated)
		return nil
	},
}

func init() {
	peopleCmd.Flags().StringVar(&peoplePoolID, "pool", "default", "candidate pool to enrich")
	peopleCmd.Flags().IntVar(&peopleMaxCandidates, "max-candidates", 0, "companies per pass (default from config)")
	peopleCmd.Flags().IntVar(&peoplePagesPerSite, "pages", 0, "pages per company (default from config)")
	rootCmd.AddCommand(peopleCmd)
}
