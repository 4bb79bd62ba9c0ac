package cascade

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/observability"
)

// DatasetStatusRequest describes a dataset-level status change.
type DatasetStatusRequest struct {
	DatasetID string
	Status    models.Status

	// JobStatusFilters limits which jobs are cascaded to (empty = all jobs)
	JobStatusFilters []models.Status

	// TaskStatusFilters limits which tasks are cascaded to (empty = all tasks)
	TaskStatusFilters []models.Status

	// SkipPropagation changes only the dataset itself
	SkipPropagation bool
}

// SetDatasetStatus sets a dataset's status and, unless propagation is
// skipped, first pushes the derived status to its jobs and tasks:
//
//  1. read the dataset's jobs matching JobStatusFilters and bulk-set them
//     (suspended for a suspended dataset, processing otherwise)
//  2. read the dataset's tasks matching TaskStatusFilters and bulk-set them
//     (suspended for a suspended dataset, reset otherwise)
//  3. write the dataset's own status
//
// Task propagation happens once at the dataset level, so the job step runs
// without its own task propagation. The dataset write is only attempted
// when every requested propagation step succeeded.
func (s *Service) SetDatasetStatus(ctx context.Context, passkey string, req DatasetStatusRequest) error {
	const op = "set_dataset_status"
	opLogger, err := s.operation(op, req.DatasetID, passkey, req.Status)
	if err != nil {
		return err
	}

	ctx, span := observability.StartSpan(ctx, "cascade.SetDatasetStatus",
		attribute.String("dataset_id", req.DatasetID),
		attribute.String("status", req.Status.String()),
		attribute.Bool("propagate", !req.SkipPropagation),
	)
	defer span.End()

	if !req.SkipPropagation {
		jobTarget, taskTarget := models.DatasetChildTargets(req.Status)

		s.reporter.Report("Dataset %s: looking up jobs", req.DatasetID)
		jobIDs, err := s.readJobIDs(ctx, req.DatasetID, req.JobStatusFilters, passkey)
		if err != nil {
			return s.fail(opLogger, op, fmt.Errorf("dataset %s: read jobs: %w", req.DatasetID, err))
		}

		committed := ""
		if len(jobIDs) > 0 {
			err := s.applyJobs(ctx, opLogger, passkey, JobsStatusRequest{
				DatasetID:       req.DatasetID,
				JobIDs:          jobIDs,
				Status:          jobTarget,
				SkipPropagation: true,
			})
			if err != nil {
				return s.fail(opLogger, op, fmt.Errorf("dataset %s: %w", req.DatasetID, err))
			}
			committed = fmt.Sprintf("%d jobs set to %s", len(jobIDs), jobTarget)
		}

		s.reporter.Report("Dataset %s: looking up tasks", req.DatasetID)
		taskIDs, err := s.readTaskIDs(ctx, req.DatasetID, "", req.TaskStatusFilters, passkey)
		if err == nil && len(taskIDs) > 0 {
			err = s.bulkSet(ctx, req.DatasetID, models.EntityTask, taskIDs, taskTarget, passkey)
		}
		if err != nil {
			err = fmt.Errorf("dataset %s: tasks: %w", req.DatasetID, err)
			if committed != "" {
				err = &PropagationError{Committed: committed, Err: err}
			}
			return s.fail(opLogger, op, err)
		}

		opLogger.Info().
			Str("dataset_id", req.DatasetID).
			Int("jobs", len(jobIDs)).
			Str("job_status", jobTarget.String()).
			Int("tasks", len(taskIDs)).
			Str("task_status", taskTarget.String()).
			Msg("Dataset children updated")
	}

	if _, err := s.remote.Write(ctx, datasetStatusPath(req.DatasetID), statusBody{Status: req.Status}, passkey); err != nil {
		return s.fail(opLogger, op, fmt.Errorf("dataset %s: write status: %w", req.DatasetID, err))
	}

	s.reporter.Report("Dataset %s set to %s", req.DatasetID, req.Status)
	opLogger.Info().
		Str("dataset_id", req.DatasetID).
		Str("status", req.Status.String()).
		Msg("Dataset status set")
	return nil
}
