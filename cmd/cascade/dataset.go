package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/services/cascade"
)

var datasetCmd = &cobra.Command{
	Use:   "dataset <dataset_id> <status>",
	Short: "Set a dataset's status and cascade it to its jobs and tasks",
	Long: `Sets the status of a dataset. Unless --no-propagate is given, its jobs are
set first (suspended when the dataset is suspended, processing otherwise) and
then its tasks (suspended or reset). Known dataset statuses: ` + statusHelp(models.DatasetStatuses()) + `.`,
	Args: cobra.ExactArgs(2),
	RunE: runDataset,
}

var (
	datasetJobStatus   []string
	datasetTaskStatus  []string
	datasetNoPropagate bool
)

func init() {
	datasetCmd.Flags().StringSliceVar(&datasetJobStatus, "job-status", nil, "Only cascade to jobs in these statuses (default all)")
	datasetCmd.Flags().StringSliceVar(&datasetTaskStatus, "task-status", nil, "Only cascade to tasks in these statuses (default all)")
	datasetCmd.Flags().BoolVar(&datasetNoPropagate, "no-propagate", false, "Change only the dataset")
}

func runDataset(cmd *cobra.Command, args []string) error {
	status, err := models.ParseStatus(args[1])
	if err != nil {
		return err
	}
	jobFilters, err := parseStatusFlags(datasetJobStatus)
	if err != nil {
		return err
	}
	taskFilters, err := parseStatusFlags(datasetTaskStatus)
	if err != nil {
		return err
	}

	err = application.Service.SetDatasetStatus(cmd.Context(), config.Passkey, cascade.DatasetStatusRequest{
		DatasetID:         args[0],
		Status:            status,
		JobStatusFilters:  jobFilters,
		TaskStatusFilters: taskFilters,
		SkipPropagation:   datasetNoPropagate,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Dataset %s set to %s\n", args[0], status)
	return nil
}
