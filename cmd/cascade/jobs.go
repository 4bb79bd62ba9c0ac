package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/services/cascade"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs <dataset_id> <status> [job_id...]",
	Short: "Set jobs' status and cascade it to their tasks",
	Long: `Bulk-sets the status of jobs. Unless --no-propagate is given, their tasks are
then set to reset (when the jobs become processing) or suspended (otherwise).
Known job statuses: ` + statusHelp(models.JobStatuses()) + `.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runJobs,
}

var (
	jobsIDsFile     string
	jobsTaskStatus  []string
	jobsNoPropagate bool
)

func init() {
	jobsCmd.Flags().StringVar(&jobsIDsFile, "ids-file", "", "YAML or JSON file listing job ids")
	jobsCmd.Flags().StringSliceVar(&jobsTaskStatus, "task-status", nil, "Only cascade to tasks in these statuses (default all)")
	jobsCmd.Flags().BoolVar(&jobsNoPropagate, "no-propagate", false, "Change only the jobs")
}

func runJobs(cmd *cobra.Command, args []string) error {
	status, err := models.ParseStatus(args[1])
	if err != nil {
		return err
	}
	jobIDs, err := resolveIDs(args[2:], jobsIDsFile)
	if err != nil {
		return err
	}
	taskFilters, err := parseStatusFlags(jobsTaskStatus)
	if err != nil {
		return err
	}

	err = application.Service.SetJobsStatus(cmd.Context(), config.Passkey, cascade.JobsStatusRequest{
		DatasetID:         args[0],
		JobIDs:            jobIDs,
		Status:            status,
		TaskStatusFilters: taskFilters,
		SkipPropagation:   jobsNoPropagate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d jobs set to %s\n", len(jobIDs), status)
	return nil
}
