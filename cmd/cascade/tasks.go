package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/cascade/internal/models"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks <dataset_id> <status> [task_id...]",
	Short: "Set tasks' status, optionally updating their jobs",
	Long: `Bulk-sets the status of tasks. With --with-jobs each task is handled one at a
time and its job is set too: processing when the task becomes idle, waiting,
queued, processing or reset, and the task's status otherwise.
Known task statuses: ` + statusHelp(models.TaskStatuses()) + `.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runTasks,
}

var (
	tasksIDsFile  string
	tasksWithJobs bool
)

func init() {
	tasksCmd.Flags().StringVar(&tasksIDsFile, "ids-file", "", "YAML or JSON file listing task ids")
	tasksCmd.Flags().BoolVar(&tasksWithJobs, "with-jobs", false, "Also set each task's job")
}

func runTasks(cmd *cobra.Command, args []string) error {
	status, err := models.ParseStatus(args[1])
	if err != nil {
		return err
	}
	taskIDs, err := resolveIDs(args[2:], tasksIDsFile)
	if err != nil {
		return err
	}

	if tasksWithJobs {
		err = application.Service.SetTasksAndJobsStatus(cmd.Context(), config.Passkey, args[0], taskIDs, status)
	} else {
		err = application.Service.SetTasksStatus(cmd.Context(), config.Passkey, args[0], taskIDs, status)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d tasks set to %s\n", len(taskIDs), status)
	return nil
}
