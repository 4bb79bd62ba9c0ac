// Package cascade changes the status of datasets, jobs and tasks on the
// remote service and pushes the derived status down the hierarchy.
//
// Operations are read-then-write sequences without local locking; running
// two cascades against the same dataset at once can interleave on the
// server. A failed step stops the operation and leaves earlier steps applied.
package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/cascade/internal/batch"
	"github.com/ternarybob/cascade/internal/interfaces"
	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/query"
	"github.com/ternarybob/cascade/internal/restclient"
	"github.com/ternarybob/cascade/internal/services/progress"
)

// DefaultLogProgressEvery is how many log deletions pass between progress reports.
const DefaultLogProgressEvery = 10

// ErrMissingPasskey is returned before any request when no passkey is supplied.
var ErrMissingPasskey = &restclient.PreconditionError{Op: "cascade", Reason: "passkey can't be empty"}

// PropagationError reports that a parent write was committed but pushing the
// derived status to its children failed. The parent change is not rolled back.
type PropagationError struct {
	Committed string // what was already applied, e.g. "12 jobs set to suspended"
	Err       error
}

func (e *PropagationError) Error() string {
	return fmt.Sprintf("propagation failed after %s: %v", e.Committed, e.Err)
}

func (e *PropagationError) Unwrap() error {
	return e.Err
}

// Service runs cascade operations against a RemoteService.
type Service struct {
	remote      interfaces.RemoteService
	executor    *batch.Executor
	reporter    *progress.Reporter
	logger      arbor.ILogger
	logProgress int
	batchOpts   []batch.Option
}

// Option configures the Service.
type Option func(*Service)

// WithSink attaches a NotificationSink for progress messages.
func WithSink(sink interfaces.NotificationSink) Option {
	return func(s *Service) {
		s.reporter = progress.NewReporter(sink)
	}
}

// WithChunkSize sets the maximum ids per bulk request.
func WithChunkSize(size int) Option {
	return func(s *Service) {
		s.batchOpts = append(s.batchOpts, batch.WithChunkSize(size))
	}
}

// WithFanOutWidth sets the maximum concurrent per-job task lookups.
func WithFanOutWidth(width int) Option {
	return func(s *Service) {
		s.batchOpts = append(s.batchOpts, batch.WithFanOutWidth(width))
	}
}

// WithLogProgressEvery sets how often log deletion progress is reported.
func WithLogProgressEvery(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.logProgress = n
		}
	}
}

// NewService creates a cascade Service.
func NewService(remote interfaces.RemoteService, logger arbor.ILogger, opts ...Option) *Service {
	s := &Service{
		remote:      remote,
		reporter:    progress.NewReporter(nil),
		logger:      logger,
		logProgress: DefaultLogProgressEvery,
	}
	for _, opt := range opts {
		opt(s)
	}

	batchOpts := append([]batch.Option{batch.WithObserver(s.reporter)}, s.batchOpts...)
	s.executor = batch.NewExecutor(logger, batchOpts...)
	return s
}

// operation checks the arguments every operation shares and prepares the
// per-call logger. Failures are *restclient.PreconditionError and happen
// before any request.
func (s *Service) operation(name, datasetID, passkey string, targets ...models.Status) (arbor.ILogger, error) {
	if passkey == "" {
		return nil, ErrMissingPasskey
	}
	if datasetID == "" {
		return nil, &restclient.PreconditionError{Op: name, Reason: "dataset id can't be empty"}
	}
	for _, target := range targets {
		if _, err := models.ParseStatus(string(target)); err != nil {
			return nil, &restclient.PreconditionError{Op: name, Reason: err.Error()}
		}
	}
	opLogger := s.logger.WithCorrelationId(uuid.New().String())
	opLogger.Info().
		Str("operation", name).
		Str("dataset_id", datasetID).
		Msg("Cascade operation started")
	return opLogger, nil
}

// fail reports err to the sink and returns it unchanged.
func (s *Service) fail(opLogger arbor.ILogger, name string, err error) error {
	opLogger.Error().Err(err).Str("operation", name).Msg("Cascade operation failed")
	s.reporter.ReportError("Error: %s", restclient.Message(err))
	return err
}

// Paths on the remote service

func datasetPath(datasetID string) string {
	return "/datasets/" + datasetID
}

func datasetStatusPath(datasetID string) string {
	return datasetPath(datasetID) + "/status"
}

func jobsPath(datasetID string) string {
	return datasetPath(datasetID) + "/jobs"
}

func jobStatusPath(datasetID, jobID string) string {
	return jobsPath(datasetID) + "/" + jobID + "/status"
}

func tasksPath(datasetID string) string {
	return datasetPath(datasetID) + "/tasks"
}

func taskPath(datasetID, taskID string) string {
	return tasksPath(datasetID) + "/" + taskID
}

func taskStatusPath(datasetID, taskID string) string {
	return taskPath(datasetID, taskID) + "/status"
}

func taskLogsPath(datasetID, taskID string) string {
	return taskPath(datasetID, taskID) + "/logs"
}

func bulkStatusPath(datasetID string, kind models.EntityKind, status models.Status) string {
	return fmt.Sprintf("%s/%s_actions/bulk_status/%s", datasetPath(datasetID), kind, status)
}

func countsPath(datasetID string, kind models.EntityKind) string {
	return fmt.Sprintf("%s/%s_counts/status", datasetPath(datasetID), kind)
}

// statusBody is the body of every single-resource status write
type statusBody struct {
	Status models.Status `json:"status"`
}

// readIDs reads a collection and returns its ids, sorted.
func (s *Service) readIDs(ctx context.Context, path string, q *query.Builder, passkey string) ([]string, error) {
	records, err := s.remote.Read(ctx, path, q.Values(), passkey)
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(records)), nil
}

// readJobIDs returns the ids of a dataset's jobs in any of statuses.
func (s *Service) readJobIDs(ctx context.Context, datasetID string, statuses []models.Status, passkey string) ([]string, error) {
	q := query.New().Statuses(statuses).Keys(models.EntityJob.IDKey())
	return s.readIDs(ctx, jobsPath(datasetID), q, passkey)
}

// readTaskIDs returns the ids of a dataset's tasks in any of statuses,
// optionally scoped to one job.
func (s *Service) readTaskIDs(ctx context.Context, datasetID, jobID string, statuses []models.Status, passkey string) ([]string, error) {
	q := query.New().Statuses(statuses).Job(jobID).Keys(models.EntityTask.IDKey())
	return s.readIDs(ctx, tasksPath(datasetID), q, passkey)
}

// bulkSet sets ids of one kind to status, one chunk at a time.
func (s *Service) bulkSet(ctx context.Context, datasetID string, kind models.EntityKind, ids []string, status models.Status, passkey string) error {
	path := bulkStatusPath(datasetID, kind, status)
	label := fmt.Sprintf("%s to %s", kind.BulkKey(), status)
	return s.executor.WriteChunked(ctx, label, ids, func(ctx context.Context, chunk []string) error {
		return s.remote.BulkWrite(ctx, path, map[string][]string{kind.BulkKey(): chunk}, passkey)
	})
}

// readCounts decodes a {status: n} counts endpoint.
func (s *Service) readCounts(ctx context.Context, datasetID string, kind models.EntityKind, passkey string) (models.StatusCounts, error) {
	if passkey == "" {
		return nil, ErrMissingPasskey
	}
	if datasetID == "" {
		return nil, &restclient.PreconditionError{Op: string(kind) + "_counts", Reason: "dataset id can't be empty"}
	}
	raw := map[string]json.Number{}
	if err := s.remote.ReadRecord(ctx, countsPath(datasetID, kind), nil, passkey, &raw); err != nil {
		return nil, err
	}
	counts := make(models.StatusCounts, len(raw))
	for status, n := range raw {
		v, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("bad %s count for %s: %w", kind, status, err)
		}
		counts[models.Status(status)] = int(v)
	}
	return counts, nil
}

// TaskStatusCounts returns the number of the dataset's tasks per status.
func (s *Service) TaskStatusCounts(ctx context.Context, passkey, datasetID string) (models.StatusCounts, error) {
	return s.readCounts(ctx, datasetID, models.EntityTask, passkey)
}

// JobStatusCounts returns the number of the dataset's jobs per status.
func (s *Service) JobStatusCounts(ctx context.Context, passkey, datasetID string) (models.StatusCounts, error) {
	return s.readCounts(ctx, datasetID, models.EntityJob, passkey)
}
