package cascade

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ternarybob/cascade/internal/observability"
)

// DeleteDatasetLogs deletes the logs of every task in the dataset.
func (s *Service) DeleteDatasetLogs(ctx context.Context, passkey, datasetID string) error {
	const op = "delete_dataset_logs"
	opLogger, err := s.operation(op, datasetID, passkey)
	if err != nil {
		return err
	}

	s.reporter.Report("Dataset %s: looking up tasks", datasetID)
	taskIDs, err := s.readTaskIDs(ctx, datasetID, "", nil, passkey)
	if err != nil {
		return s.fail(opLogger, op, fmt.Errorf("dataset %s: read tasks: %w", datasetID, err))
	}

	if err := s.deleteLogs(ctx, passkey, datasetID, taskIDs); err != nil {
		return s.fail(opLogger, op, err)
	}
	opLogger.Info().Str("dataset_id", datasetID).Int("tasks", len(taskIDs)).Msg("Dataset logs deleted")
	return nil
}

// DeleteTaskLogs deletes the logs of the given tasks.
func (s *Service) DeleteTaskLogs(ctx context.Context, passkey, datasetID string, taskIDs []string) error {
	const op = "delete_task_logs"
	opLogger, err := s.operation(op, datasetID, passkey)
	if err != nil {
		return err
	}

	if err := s.deleteLogs(ctx, passkey, datasetID, taskIDs); err != nil {
		return s.fail(opLogger, op, err)
	}
	opLogger.Info().Str("dataset_id", datasetID).Int("tasks", len(taskIDs)).Msg("Task logs deleted")
	return nil
}

// deleteLogs deletes logs one task at a time; the first failure stops it.
func (s *Service) deleteLogs(ctx context.Context, passkey, datasetID string, taskIDs []string) error {
	ctx, span := observability.StartSpan(ctx, "cascade.DeleteLogs",
		attribute.String("dataset_id", datasetID),
		attribute.Int("tasks", len(taskIDs)),
	)
	defer span.End()

	s.reporter.Reset()
	s.reporter.Report("Deleting logs for %d tasks", len(taskIDs))
	for i, taskID := range taskIDs {
		if err := s.remote.Delete(ctx, taskLogsPath(datasetID, taskID), passkey); err != nil {
			return fmt.Errorf("task %s (%d of %d): delete logs: %w", taskID, i+1, len(taskIDs), err)
		}
		s.reporter.Advance("Deleted logs for task", 1, len(taskIDs), s.logProgress)
	}
	return nil
}
