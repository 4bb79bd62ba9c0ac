package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs <dataset_id> [task_id...]",
	Short: "Delete task logs",
	Long:  `Deletes the logs of the given tasks, or of every task in the dataset with --all.`,
	Args:  cobra.MinimumNArgs(1),
	RunE:  runLogs,
}

var (
	logsIDsFile string
	logsAll     bool
)

func init() {
	logsCmd.Flags().StringVar(&logsIDsFile, "ids-file", "", "YAML or JSON file listing task ids")
	logsCmd.Flags().BoolVar(&logsAll, "all", false, "Delete the logs of every task in the dataset")
}

func runLogs(cmd *cobra.Command, args []string) error {
	datasetID := args[0]

	if logsAll {
		if len(args) > 1 || logsIDsFile != "" {
			return errors.New("--all can't be combined with task ids")
		}
		if err := application.Service.DeleteDatasetLogs(cmd.Context(), config.Passkey, datasetID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logs of dataset %s deleted\n", datasetID)
		return nil
	}

	taskIDs, err := resolveIDs(args[1:], logsIDsFile)
	if err != nil {
		return err
	}
	if err := application.Service.DeleteTaskLogs(cmd.Context(), config.Passkey, datasetID, taskIDs); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logs of %d tasks deleted\n", len(taskIDs))
	return nil
}
