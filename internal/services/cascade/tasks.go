package cascade

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/observability"
	"github.com/ternarybob/cascade/internal/query"
)

// SetTasksStatus bulk-sets tasks to status. Tasks have no children, so
// nothing is propagated. Setting a status is idempotent on the service.
func (s *Service) SetTasksStatus(ctx context.Context, passkey, datasetID string, taskIDs []string, status models.Status) error {
	const op = "set_tasks_status"
	opLogger, err := s.operation(op, datasetID, passkey, status)
	if err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, "cascade.SetTasksStatus",
		attribute.String("dataset_id", datasetID),
		attribute.String("status", status.String()),
		attribute.Int("tasks", len(taskIDs)),
	)
	defer span.End()

	s.reporter.Report("Setting %d tasks to %s", len(taskIDs), status)
	if err := s.bulkSet(ctx, datasetID, models.EntityTask, taskIDs, status, passkey); err != nil {
		return s.fail(opLogger, op, fmt.Errorf("tasks: %w", err))
	}

	opLogger.Info().
		Str("dataset_id", datasetID).
		Int("tasks", len(taskIDs)).
		Str("status", status.String()).
		Msg("Tasks status set")
	s.reporter.Report("Set %d tasks to %s", len(taskIDs), status)
	return nil
}

// SetTasksAndJobsStatus sets each task and its job, one task at a time in
// order. The job of a task is discovered by reading the task; the job gets
// processing when the task becomes idle, waiting, queued, processing or
// reset, and the task's own status otherwise. The task write and the job
// write for one task run concurrently and both finish before the next task.
// The first failure stops the loop; tasks already handled stay changed.
func (s *Service) SetTasksAndJobsStatus(ctx context.Context, passkey, datasetID string, taskIDs []string, status models.Status) error {
	const op = "set_tasks_and_jobs_status"
	opLogger, err := s.operation(op, datasetID, passkey, status)
	if err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, "cascade.SetTasksAndJobsStatus",
		attribute.String("dataset_id", datasetID),
		attribute.String("status", status.String()),
		attribute.Int("tasks", len(taskIDs)),
	)
	defer span.End()

	jobTarget := models.TaskParentTarget(status)
	s.reporter.Reset()

	for i, taskID := range taskIDs {
		var task models.Task
		q := query.New().Keys(models.EntityJob.IDKey())
		if err := s.remote.ReadRecord(ctx, taskPath(datasetID, taskID), q.Values(), passkey, &task); err != nil {
			return s.fail(opLogger, op, fmt.Errorf("task %s (%d of %d): read: %w", taskID, i+1, len(taskIDs), err))
		}
		if task.JobID == "" {
			return s.fail(opLogger, op, fmt.Errorf("task %s (%d of %d): record has no job_id", taskID, i+1, len(taskIDs)))
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			_, err := s.remote.Write(gctx, taskStatusPath(datasetID, taskID), statusBody{Status: status}, passkey)
			return err
		})
		g.Go(func() error {
			_, err := s.remote.Write(gctx, jobStatusPath(datasetID, task.JobID), statusBody{Status: jobTarget}, passkey)
			return err
		})
		if err := g.Wait(); err != nil {
			return s.fail(opLogger, op, fmt.Errorf("task %s (%d of %d): write: %w", taskID, i+1, len(taskIDs), err))
		}

		s.reporter.Advance("Updated task and job", 1, len(taskIDs), s.logProgress)
	}

	opLogger.Info().
		Str("dataset_id", datasetID).
		Int("tasks", len(taskIDs)).
		Str("task_status", status.String()).
		Str("job_status", jobTarget.String()).
		Msg("Tasks and jobs status set")
	return nil
}
