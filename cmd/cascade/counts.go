package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/ternarybob/cascade/internal/models"
)

var countsCmd = &cobra.Command{
	Use:   "counts <dataset_id>",
	Short: "Show how many jobs and tasks are in each status",
	Args:  cobra.ExactArgs(1),
	RunE:  runCounts,
}

func runCounts(cmd *cobra.Command, args []string) error {
	jobs, err := application.Service.JobStatusCounts(cmd.Context(), config.Passkey, args[0])
	if err != nil {
		return err
	}
	tasks, err := application.Service.TaskStatusCounts(cmd.Context(), config.Passkey, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	printCounts(out, "Jobs", jobs)
	printCounts(out, "Tasks", tasks)
	return nil
}

func printCounts(w io.Writer, title string, counts models.StatusCounts) {
	fmt.Fprintf(w, "%s (%d)\n", title, counts.Total())
	for _, status := range slices.Sorted(maps.Keys(counts)) {
		fmt.Fprintf(w, "  %-12s %d\n", status, counts[status])
	}
}
