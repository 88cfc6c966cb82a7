package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/leadgen-cli/internal/model"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Inspect and control lead-generation jobs",
}

var jobsStatusCmd = &cobra.Command{
	Use:   "status <job-id>",
	Short: "Show a job's status, counters and recent log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		job, err := st.GetJob(ctx, args[0])
		if err != nil {
			return err
		}

		cmd.Printf("job:        %s\n", job.ID)
		cmd.Printf("pool:       %s\n", job.PoolID)
		cmd.Printf("status:     %s\n", job.Status)
		cmd.Printf("progress:   %d%%\n", job.Counters.Progress)
		cmd.Printf("companies:  %d\n", job.Counters.CompaniesSaved)
		cmd.Printf("contacts:   %d\n", job.Counters.ContactsSaved)
		cmd.Printf("iterations: %d\n", job.Counters.Iterations)

		logs := job.Logs
		if len(logs) > 10 {
			logs = logs[len(logs)-10:]
		}
		for _, entry := range logs {
			level := entry.Level
			if level == "" {
				level = "INFO"
			}
			cmd.Printf("%s [%s] %s\n", entry.TS.Format("15:04:05"), level, entry.Msg)
		}
		return nil
	},
}

func newJobStatusCmd(use, short string, status model.JobStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <job-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := initMigratedStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.UpdateJobStatus(ctx, args[0], status); err != nil {
				return err
			}
			cmd.Printf("job %s -> %s\n", args[0], status)
			return nil
		},
	}
}

func init() {
	jobsCmd.AddCommand(jobsStatusCmd)
	jobsCmd.AddCommand(newJobStatusCmd("pause", "Pause a running job at its next iteration boundary", model.JobStatusPaused))
	jobsCmd.AddCommand(newJobStatusCmd("resume", "Resume a paused job", model.JobStatusRunning))
	jobsCmd.AddCommand(newJobStatusCmd("stop", "Stop a job; it returns its accumulated totals", model.JobStatusStopped))
	rootCmd.AddCommand(jobsCmd)
}
