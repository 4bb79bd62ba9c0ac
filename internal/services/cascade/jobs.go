package cascade

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/observability"
)

// JobsStatusRequest describes a status change for a set of jobs.
type JobsStatusRequest struct {
	DatasetID string
	JobIDs    []string
	Status    models.Status

	// TaskStatusFilters limits which tasks of the jobs are cascaded to (empty = all)
	TaskStatusFilters []models.Status

	// SkipPropagation changes only the jobs
	SkipPropagation bool
}

// SetJobsStatus bulk-sets the jobs and, unless propagation is skipped, then
// sets their tasks (reset when the jobs become processing, suspended
// otherwise). Tasks are looked up per job, a bounded number at a time.
//
// A failure writing the jobs stops before any task is touched. A failure
// during task propagation returns a *PropagationError: the job change has
// already been applied and is not rolled back.
func (s *Service) SetJobsStatus(ctx context.Context, passkey string, req JobsStatusRequest) error {
	const op = "set_jobs_status"
	opLogger, err := s.operation(op, req.DatasetID, passkey, req.Status)
	if err != nil {
		return err
	}
	if err := s.applyJobs(ctx, opLogger, passkey, req); err != nil {
		return s.fail(opLogger, op, err)
	}
	return nil
}

func (s *Service) applyJobs(ctx context.Context, opLogger arbor.ILogger, passkey string, req JobsStatusRequest) error {
	ctx, span := observability.StartSpan(ctx, "cascade.SetJobsStatus",
		attribute.String("dataset_id", req.DatasetID),
		attribute.String("status", req.Status.String()),
		attribute.Int("jobs", len(req.JobIDs)),
		attribute.Bool("propagate", !req.SkipPropagation),
	)
	defer span.End()

	s.reporter.Report("Setting %d jobs to %s", len(req.JobIDs), req.Status)
	if err := s.bulkSet(ctx, req.DatasetID, models.EntityJob, req.JobIDs, req.Status, passkey); err != nil {
		return fmt.Errorf("jobs: %w", err)
	}
	opLogger.Info().
		Str("dataset_id", req.DatasetID).
		Int("jobs", len(req.JobIDs)).
		Str("status", req.Status.String()).
		Msg("Jobs status set")

	if req.SkipPropagation {
		return nil
	}

	committed := fmt.Sprintf("%d jobs set to %s", len(req.JobIDs), req.Status)
	taskTarget := models.JobChildTarget(req.Status)

	taskIDs, err := s.executor.FanOut(ctx, "tasks of jobs", req.JobIDs, func(ctx context.Context, jobID string) ([]string, error) {
		return s.readTaskIDs(ctx, req.DatasetID, jobID, req.TaskStatusFilters, passkey)
	})
	if err != nil {
		return &PropagationError{Committed: committed, Err: fmt.Errorf("read tasks: %w", err)}
	}
	taskIDs = unique(taskIDs)

	if len(taskIDs) > 0 {
		if err := s.bulkSet(ctx, req.DatasetID, models.EntityTask, taskIDs, taskTarget, passkey); err != nil {
			return &PropagationError{Committed: committed, Err: fmt.Errorf("tasks: %w", err)}
		}
	}

	opLogger.Info().
		Str("dataset_id", req.DatasetID).
		Int("tasks", len(taskIDs)).
		Str("status", taskTarget.String()).
		Msg("Job tasks updated")
	s.reporter.Report("Set %d jobs to %s and %d tasks to %s", len(req.JobIDs), req.Status, len(taskIDs), taskTarget)
	return nil
}

// unique drops repeated ids, keeping the first occurrence.
func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
