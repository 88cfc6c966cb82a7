package main

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/leadgen-cli/internal/agent"
	"github.com/sells-group/leadgen-cli/internal/model"
)

var (
	runPoolID       string
	runUserID       string
	runMaxCompanies int
	runICPFile      string
	runIndustries   []string
	runGeographies  []string
	runTitles       []string
	runNotes        string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a lead-generation run",
	Long:  "Starts the agent loop for one job: web search, site crawling, contact extraction, and persistence into the pool. The job can be paused, resumed or stopped with the jobs subcommands while it runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		icp, err := loadICP()
		if err != nil {
			return err
		}

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		mgr := newBrowserManager()
		defer mgr.Close()

		jobID := uuid.NewString()
		zap.L().Info("starting lead-generation job",
			zap.String("job_id", jobID),
			zap.String("pool_id", runPoolID),
			zap.Int("max_companies", runMaxCompanies),
		)
		cmd.Printf("job %s\n", jobID)

		totals, err := agent.RunAgenticLeadGeneration(ctx, newAgentDeps(st, mgr), jobID, runUserID, icp, runPoolID, runMaxCompanies)
		if err != nil {
			return err
		}

		cmd.Printf("companies saved: %d\ncontacts saved:  %d\niterations:      %d\n",
			totals.CompaniesSaved, totals.ContactsSaved, totals.Iterations)
		return nil
	},
}

// loadICP builds the targeting profile from a JSON file or from flags.
func loadICP() (model.ICPConfig, error) {
	var icp model.ICPConfig
	if runICPFile != "" {
		data, err := os.ReadFile(runICPFile)
		if err != nil {
			return icp, eris.Wrap(err, "read ICP file")
		}
		if err := json.Unmarshal(data, &icp); err != nil {
			return icp, eris.Wrap(err, "parse ICP file")
		}
	}
	if len(runIndustries) > 0 {
		icp.Industries = runIndustries
	}
	if len(runGeographies) > 0 {
		icp.Geographies = runGeographies
	}
	if len(runTitles) > 0 {
		icp.TargetTitles = runTitles
	}
	if runNotes != "" {
		icp.Notes = runNotes
	}
	if len(icp.Industries) == 0 && strings.TrimSpace(icp.Notes) == "" {
		return icp, eris.New("an ICP is required: pass --icp, or at least --industry or --notes")
	}
	return icp, nil
}

func init() {
	runCmd.Flags().StringVar(&runPoolID, "pool", "default", "candidate pool to fill")
	runCmd.Flags().StringVar(&runUserID, "user", "cli", "user id recorded on the job")
	runCmd.Flags().IntVar(&runMaxCompanies, "max-companies", 10, "target number of companies to save")
	runCmd.Flags().StringVar(&runICPFile, "icp", "", "path to an ICP JSON file")
	runCmd.Flags().StringSliceVar(&runIndustries, "industry", nil, "target industry (repeatable)")
	runCmd.Flags().StringSliceVar(&runGeographies, "geo", nil, "target geography (repeatable)")
	runCmd.Flags().StringSliceVar(&runTitles, "title", nil, "target job title (repeatable)")
	runCmd.Flags().StringVar(&runNotes, "notes", "", "free-text targeting notes")
	rootCmd.AddCommand(runCmd)
}
