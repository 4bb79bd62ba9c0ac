package cascade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/restclient"
)

const testPasskey = "secret"

type recordingSink struct {
	mu       sync.Mutex
	messages []string
	errors   []string
}

func (s *recordingSink) Report(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, message)
}

func (s *recordingSink) ReportError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, message)
}

func (s *recordingSink) Clear() {}

func (s *recordingSink) withPrefix(prefix string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, m := range s.messages {
		if strings.HasPrefix(m, prefix) {
			out = append(out, m)
		}
	}
	return out
}

func newTestService(remote *fakeRemote, opts ...Option) *Service {
	return NewService(remote, arbor.NewNoOpLogger(), opts...)
}

// seedDataset42 builds the dataset used by the end-to-end scenarios:
// j1 idle, j2 waiting, j3 complete, each with two tasks.
func seedDataset42() *fakeRemote {
	remote := newFakeRemote("42")
	remote.addJob("j1", "idle", "idle", "idle")
	remote.addJob("j2", "waiting", "queued", "complete")
	remote.addJob("j3", "complete", "complete", "errors")
	return remote
}

func TestSetDatasetStatus_SuspendCascade(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	err := svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{
		DatasetID:        "42",
		Status:           models.StatusSuspended,
		JobStatusFilters: []models.Status{models.StatusIdle, models.StatusWaiting},
	})
	require.NoError(t, err)

	calls := remote.allCalls()
	require.Len(t, calls, 5)

	assert.Equal(t, "GET", calls[0].Method)
	assert.Equal(t, "/datasets/42/jobs", calls[0].Path)
	assert.Equal(t, "idle|waiting", calls[0].Query.Get("status"))

	assert.Equal(t, "POST", calls[1].Method)
	assert.Equal(t, "/datasets/42/job_actions/bulk_status/suspended", calls[1].Path)
	assert.Equal(t, []string{"j1", "j2"}, calls[1].IDs)

	assert.Equal(t, "/datasets/42/tasks", calls[2].Path)
	assert.Empty(t, calls[2].Query.Get("status"))
	assert.Empty(t, calls[2].Query.Get("job_id"))

	assert.Equal(t, "/datasets/42/task_actions/bulk_status/suspended", calls[3].Path)
	assert.Len(t, calls[3].IDs, 6)

	assert.Equal(t, "PUT", calls[4].Method)
	assert.Equal(t, "/datasets/42/status", calls[4].Path)
	assert.Equal(t, "suspended", calls[4].Status)

	assert.Equal(t, "suspended", remote.jobStatus("j1"))
	assert.Equal(t, "complete", remote.jobStatus("j3"))
	assert.Equal(t, "suspended", remote.taskStatus("j3-t1"))
	assert.Equal(t, "suspended", remote.datasetStatus)
}

func TestSetDatasetStatus_ChildTargets(t *testing.T) {
	tests := []struct {
		name     string
		status   models.Status
		wantJob  string
		wantTask string
		wantSet  string
	}{
		{"suspended", models.StatusSuspended, "suspended", "suspended", "suspended"},
		{"processing", models.StatusProcessing, "processing", "reset", "processing"},
		{"complete", models.StatusComplete, "processing", "reset", "complete"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := seedDataset42()
			svc := newTestService(remote)

			err := svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{
				DatasetID: "42",
				Status:    tt.status,
			})
			require.NoError(t, err)

			for _, jobID := range []string{"j1", "j2", "j3"} {
				assert.Equal(t, tt.wantJob, remote.jobStatus(jobID), jobID)
			}
			assert.Equal(t, tt.wantTask, remote.taskStatus("j1-t0"))
			assert.Equal(t, tt.wantSet, remote.datasetStatus)
		})
	}
}

func TestSetDatasetStatus_NoJobsSkipsJobWrite(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	err := svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{
		DatasetID:        "42",
		Status:           models.StatusSuspended,
		JobStatusFilters: []models.Status{models.StatusFailed},
	})
	require.NoError(t, err)

	assert.Empty(t, remote.callsMatching("POST", "/datasets/42/job_actions"))
	assert.Len(t, remote.callsMatching("POST", "/datasets/42/task_actions"), 1)
	assert.Equal(t, "suspended", remote.datasetStatus)
}

func TestSetDatasetStatus_SkipPropagation(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	err := svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{
		DatasetID:       "42",
		Status:          models.StatusSuspended,
		SkipPropagation: true,
	})
	require.NoError(t, err)

	calls := remote.allCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/datasets/42/status", calls[0].Path)
	assert.Equal(t, "idle", remote.jobStatus("j1"))
}

func TestSetDatasetStatus_PropagationFailureLeavesDataset(t *testing.T) {
	remote := seedDataset42()
	remote.failOn = func(c remoteCall) error {
		if strings.Contains(c.Path, "task_actions") {
			return &restclient.APIError{StatusCode: 500, Message: "server error", Endpoint: c.Path}
		}
		return nil
	}
	sink := &recordingSink{}
	svc := newTestService(remote, WithSink(sink))

	err := svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{
		DatasetID: "42",
		Status:    models.StatusSuspended,
	})
	require.Error(t, err)

	var propErr *PropagationError
	require.True(t, errors.As(err, &propErr))
	assert.Contains(t, propErr.Committed, "3 jobs set to suspended")
	assert.True(t, restclient.IsRemote(err))

	assert.Empty(t, remote.callsMatching("PUT", "/datasets/42/status"))
	assert.Equal(t, "processing", remote.datasetStatus)
	assert.Equal(t, "suspended", remote.jobStatus("j1"))
	assert.Contains(t, sink.errors, "Error: server error")
}

func TestSetDatasetStatus_JobReadFailure(t *testing.T) {
	remote := seedDataset42()
	remote.failOn = func(c remoteCall) error {
		if c.Path == "/datasets/42/jobs" {
			return &restclient.APIError{StatusCode: 404, Message: "method not found", Endpoint: c.Path}
		}
		return nil
	}
	svc := newTestService(remote)

	err := svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{
		DatasetID: "42",
		Status:    models.StatusSuspended,
	})
	require.Error(t, err)

	var propErr *PropagationError
	assert.False(t, errors.As(err, &propErr))
	assert.Len(t, remote.allCalls(), 1)
}

func TestSetDatasetStatus_Idempotent(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)
	req := DatasetStatusRequest{DatasetID: "42", Status: models.StatusSuspended}

	require.NoError(t, svc.SetDatasetStatus(context.Background(), testPasskey, req))
	first := snapshot(remote)
	require.NoError(t, svc.SetDatasetStatus(context.Background(), testPasskey, req))

	assert.Equal(t, first, snapshot(remote))
}

func TestSetTasksStatus_Idempotent(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote, WithChunkSize(4))
	ids := []string{"j1-t0", "j2-t1", "j3-t0", "j3-t1", "j2-t0"}

	require.NoError(t, svc.SetTasksStatus(context.Background(), testPasskey, "42", ids, models.StatusSuspended))
	first := snapshot(remote)
	require.NoError(t, svc.SetTasksStatus(context.Background(), testPasskey, "42", ids, models.StatusSuspended))

	assert.Equal(t, first, snapshot(remote))
	assert.Equal(t, "suspended", first["task/j3-t1"])
	assert.Equal(t, "idle", first["task/j1-t1"])
	assert.Len(t, remote.callsMatching("POST", ""), 4)
}

func TestOperations_SameOutcomeWithoutSink(t *testing.T) {
	failTaskWrites := func(c remoteCall) error {
		if c.Method == "POST" && strings.Contains(c.Path, "task_actions") {
			return &restclient.APIError{StatusCode: 500, Message: "server error", Endpoint: c.Path}
		}
		return nil
	}
	failTaskPuts := func(c remoteCall) error {
		if c.Method == "PUT" && strings.Contains(c.Path, "/tasks/") {
			return &restclient.APIError{StatusCode: 400, Message: "bad status", Endpoint: c.Path}
		}
		return nil
	}

	tests := []struct {
		name   string
		failOn func(c remoteCall) error
		run    func(svc *Service) error
	}{
		{
			name: "dataset cascade",
			run: func(svc *Service) error {
				return svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{DatasetID: "42", Status: models.StatusSuspended})
			},
		},
		{
			name:   "dataset cascade failing on tasks",
			failOn: failTaskWrites,
			run: func(svc *Service) error {
				return svc.SetDatasetStatus(context.Background(), testPasskey, DatasetStatusRequest{DatasetID: "42", Status: models.StatusProcessing})
			},
		},
		{
			name: "jobs",
			run: func(svc *Service) error {
				return svc.SetJobsStatus(context.Background(), testPasskey, JobsStatusRequest{DatasetID: "42", JobIDs: []string{"j1", "j3"}, Status: models.StatusProcessing})
			},
		},
		{
			name:   "jobs failing on tasks",
			failOn: failTaskWrites,
			run: func(svc *Service) error {
				return svc.SetJobsStatus(context.Background(), testPasskey, JobsStatusRequest{DatasetID: "42", JobIDs: []string{"j2"}, Status: models.StatusSuspended})
			},
		},
		{
			name: "tasks",
			run: func(svc *Service) error {
				return svc.SetTasksStatus(context.Background(), testPasskey, "42", []string{"j1-t0", "j2-t0"}, models.StatusReset)
			},
		},
		{
			name:   "tasks and jobs failing",
			failOn: failTaskPuts,
			run: func(svc *Service) error {
				return svc.SetTasksAndJobsStatus(context.Background(), testPasskey, "42", []string{"j1-t0", "j1-t1"}, models.StatusIdle)
			},
		},
		{
			name: "dataset logs",
			run: func(svc *Service) error {
				return svc.DeleteDatasetLogs(context.Background(), testPasskey, "42")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withSink := seedDataset42()
			withSink.failOn = tt.failOn
			sink := &recordingSink{}
			errWithSink := tt.run(newTestService(withSink, WithSink(sink)))

			withoutSink := seedDataset42()
			withoutSink.failOn = tt.failOn
			errWithoutSink := tt.run(newTestService(withoutSink))

			if errWithSink == nil {
				assert.NoError(t, errWithoutSink)
				assert.NotEmpty(t, sink.messages)
			} else {
				require.Error(t, errWithoutSink)
				assert.Equal(t, errWithSink.Error(), errWithoutSink.Error())
				assert.Equal(t, restclient.IsRemote(errWithSink), restclient.IsRemote(errWithoutSink))
				assert.NotEmpty(t, sink.errors)
			}
			assert.ElementsMatch(t, withSink.allCalls(), withoutSink.allCalls())
			assert.Equal(t, snapshot(withSink), snapshot(withoutSink))
		})
	}
}

func snapshot(remote *fakeRemote) map[string]string {
	remote.mu.Lock()
	defer remote.mu.Unlock()
	out := map[string]string{"dataset": remote.datasetStatus}
	for id, s := range remote.jobs {
		out["job/"+id] = s
	}
	for id, t := range remote.tasks {
		out["task/"+id] = string(t.Status)
	}
	return out
}

func TestSetJobsStatus_PropagatesPerJob(t *testing.T) {
	tests := []struct {
		name     string
		status   models.Status
		wantTask string
	}{
		{"processing resets tasks", models.StatusProcessing, "reset"},
		{"suspended suspends tasks", models.StatusSuspended, "suspended"},
		{"complete suspends tasks", models.StatusComplete, "suspended"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := seedDataset42()
			svc := newTestService(remote)

			err := svc.SetJobsStatus(context.Background(), testPasskey, JobsStatusRequest{
				DatasetID: "42",
				JobIDs:    []string{"j1", "j2"},
				Status:    tt.status,
			})
			require.NoError(t, err)

			assert.Equal(t, string(tt.status), remote.jobStatus("j1"))
			assert.Equal(t, tt.wantTask, remote.taskStatus("j1-t0"))
			assert.Equal(t, tt.wantTask, remote.taskStatus("j2-t1"))
			assert.Equal(t, "complete", remote.taskStatus("j3-t0"))

			reads := remote.callsMatching("GET", "/datasets/42/tasks")
			require.Len(t, reads, 2)
			jobs := []string{reads[0].Query.Get("job_id"), reads[1].Query.Get("job_id")}
			assert.ElementsMatch(t, []string{"j1", "j2"}, jobs)
		})
	}
}

func TestSetJobsStatus_TaskFilter(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	err := svc.SetJobsStatus(context.Background(), testPasskey, JobsStatusRequest{
		DatasetID:         "42",
		JobIDs:            []string{"j2"},
		Status:            models.StatusSuspended,
		TaskStatusFilters: []models.Status{models.StatusQueued},
	})
	require.NoError(t, err)

	assert.Equal(t, "suspended", remote.taskStatus("j2-t0"))
	assert.Equal(t, "complete", remote.taskStatus("j2-t1"))
}

func TestSetJobsStatus_SkipPropagation(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	err := svc.SetJobsStatus(context.Background(), testPasskey, JobsStatusRequest{
		DatasetID:       "42",
		JobIDs:          []string{"j1"},
		Status:          models.StatusSuspended,
		SkipPropagation: true,
	})
	require.NoError(t, err)

	assert.Len(t, remote.allCalls(), 1)
	assert.Equal(t, "idle", remote.taskStatus("j1-t0"))
}

func TestSetJobsStatus_FanOutReadFailure(t *testing.T) {
	remote := seedDataset42()
	remote.failOn = func(c remoteCall) error {
		if c.Method == "GET" && c.Query.Get("job_id") == "j2" {
			return &restclient.TransportError{Endpoint: c.Path, Err: context.DeadlineExceeded}
		}
		return nil
	}
	svc := newTestService(remote)

	err := svc.SetJobsStatus(context.Background(), testPasskey, JobsStatusRequest{
		DatasetID: "42",
		JobIDs:    []string{"j1", "j2"},
		Status:    models.StatusSuspended,
	})
	require.Error(t, err)

	var propErr *PropagationError
	require.True(t, errors.As(err, &propErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Empty(t, remote.callsMatching("POST", "/datasets/42/task_actions"))
	assert.Equal(t, "suspended", remote.jobStatus("j1"))
}

func TestSetJobsStatus_ManyJobsFanOutWidth(t *testing.T) {
	remote := newFakeRemote("7")
	var jobIDs []string
	for i := 0; i < 23; i++ {
		id := fmt.Sprintf("job%02d", i)
		remote.addJob(id, "idle", "idle")
		jobIDs = append(jobIDs, id)
	}
	svc := newTestService(remote, WithFanOutWidth(4), WithChunkSize(5))

	err := svc.SetJobsStatus(context.Background(), testPasskey, JobsStatusRequest{
		DatasetID: "7",
		JobIDs:    jobIDs,
		Status:    models.StatusProcessing,
	})
	require.NoError(t, err)

	assert.Len(t, remote.callsMatching("GET", "/datasets/7/tasks"), 23)
	assert.Len(t, remote.callsMatching("POST", "/datasets/7/job_actions"), 5)

	taskWrites := remote.callsMatching("POST", "/datasets/7/task_actions")
	require.Len(t, taskWrites, 5)
	var written []string
	for _, c := range taskWrites {
		written = append(written, c.IDs...)
	}
	assert.Len(t, written, 23)
	assert.Equal(t, "job00-t0", written[0])
	assert.Equal(t, "job22-t0", written[22])
}

func TestSetTasksStatus_Chunked(t *testing.T) {
	remote := seedDataset42()
	sink := &recordingSink{}
	svc := newTestService(remote, WithChunkSize(4), WithSink(sink))

	ids := []string{"j1-t0", "j1-t1", "j2-t0", "j2-t1", "j3-t0", "j3-t1"}
	err := svc.SetTasksStatus(context.Background(), testPasskey, "42", ids, models.StatusReset)
	require.NoError(t, err)

	writes := remote.callsMatching("POST", "/datasets/42/task_actions/bulk_status/reset")
	require.Len(t, writes, 2)
	assert.Equal(t, ids[:4], writes[0].IDs)
	assert.Equal(t, ids[4:], writes[1].IDs)

	assert.Equal(t, "idle", remote.jobStatus("j1"))
	assert.Len(t, sink.withPrefix("Setting tasks to reset: sending"), 2)
}

func TestSetTasksStatus_ChunkFailureStops(t *testing.T) {
	remote := seedDataset42()
	remote.failOn = func(c remoteCall) error {
		if c.Method == "POST" && len(c.IDs) > 0 && c.IDs[0] == "j2-t0" {
			return &restclient.APIError{StatusCode: 400, Message: "bad status", Endpoint: c.Path}
		}
		return nil
	}
	svc := newTestService(remote, WithChunkSize(2))

	ids := []string{"j1-t0", "j1-t1", "j2-t0", "j2-t1", "j3-t0", "j3-t1"}
	err := svc.SetTasksStatus(context.Background(), testPasskey, "42", ids, models.StatusReset)
	require.Error(t, err)
	assert.Equal(t, "bad status", restclient.Message(err))

	assert.Len(t, remote.callsMatching("POST", ""), 2)
	assert.Equal(t, "reset", remote.taskStatus("j1-t0"))
	assert.Equal(t, "complete", remote.taskStatus("j3-t0"))
}

func TestSetTasksAndJobsStatus_JobTargets(t *testing.T) {
	tests := []struct {
		status  models.Status
		wantJob string
	}{
		{models.StatusSuspended, "suspended"},
		{models.StatusReset, "processing"},
		{models.StatusIdle, "processing"},
		{models.StatusComplete, "complete"},
		{models.StatusFailed, "failed"},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			remote := seedDataset42()
			svc := newTestService(remote)

			err := svc.SetTasksAndJobsStatus(context.Background(), testPasskey, "42", []string{"j1-t0", "j2-t1"}, tt.status)
			require.NoError(t, err)

			assert.Equal(t, string(tt.status), remote.taskStatus("j1-t0"))
			assert.Equal(t, string(tt.status), remote.taskStatus("j2-t1"))
			assert.Equal(t, tt.wantJob, remote.jobStatus("j1"))
			assert.Equal(t, tt.wantJob, remote.jobStatus("j2"))
			assert.Equal(t, "complete", remote.jobStatus("j3"))
		})
	}
}

func TestSetTasksAndJobsStatus_OneTaskAtATime(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	ids := []string{"j1-t0", "j2-t0", "j3-t0"}
	require.NoError(t, svc.SetTasksAndJobsStatus(context.Background(), testPasskey, "42", ids, models.StatusSuspended))

	calls := remote.allCalls()
	require.Len(t, calls, 9)
	for i, taskID := range ids {
		read := calls[i*3]
		assert.Equal(t, "/datasets/42/tasks/"+taskID, read.Path)
		assert.Equal(t, "job_id", read.Query.Get("keys"))

		paths := []string{calls[i*3+1].Path, calls[i*3+2].Path}
		jobID := strings.SplitN(taskID, "-", 2)[0]
		assert.ElementsMatch(t, []string{
			"/datasets/42/tasks/" + taskID + "/status",
			"/datasets/42/jobs/" + jobID + "/status",
		}, paths)
	}
}

func TestSetTasksAndJobsStatus_StopsOnFirstFailure(t *testing.T) {
	remote := seedDataset42()
	remote.failOn = func(c remoteCall) error {
		if c.Method == "PUT" && c.Path == "/datasets/42/jobs/j2/status" {
			return &restclient.APIError{StatusCode: 500, Message: "server error", Endpoint: c.Path}
		}
		return nil
	}
	svc := newTestService(remote)

	err := svc.SetTasksAndJobsStatus(context.Background(), testPasskey, "42", []string{"j1-t0", "j2-t0", "j3-t0"}, models.StatusSuspended)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "j2-t0 (2 of 3)")

	assert.Equal(t, "suspended", remote.jobStatus("j1"))
	assert.Empty(t, remote.callsMatching("GET", "/datasets/42/tasks/j3-t0"))
	assert.Equal(t, "complete", remote.taskStatus("j3-t0"))
}

func TestSetTasksAndJobsStatus_UnknownTask(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	err := svc.SetTasksAndJobsStatus(context.Background(), testPasskey, "42", []string{"nope"}, models.StatusSuspended)
	require.Error(t, err)
	assert.Equal(t, "method not found", restclient.Message(err))
	assert.Empty(t, remote.callsMatching("PUT", ""))
}

func TestDeleteDatasetLogs_ReportsEveryTen(t *testing.T) {
	remote := newFakeRemote("9")
	for i := 0; i < 5; i++ {
		remote.addJob(fmt.Sprintf("j%d", i), "complete", "complete", "complete", "complete", "complete", "complete")
	}
	sink := &recordingSink{}
	svc := newTestService(remote, WithSink(sink))

	require.NoError(t, svc.DeleteDatasetLogs(context.Background(), testPasskey, "9"))

	assert.Len(t, remote.callsMatching("DELETE", "/datasets/9/tasks/"), 25)
	assert.Equal(t, []string{
		"Deleted logs for task 10/25",
		"Deleted logs for task 20/25",
		"Deleted logs for task 25/25",
	}, sink.withPrefix("Deleted logs"))
}

func TestDeleteTaskLogs_StopsOnFirstFailure(t *testing.T) {
	remote := seedDataset42()
	remote.failOn = func(c remoteCall) error {
		if c.Path == "/datasets/42/tasks/b/logs" {
			return &restclient.APIError{StatusCode: 404, Message: "method not found", Endpoint: c.Path}
		}
		return nil
	}
	svc := newTestService(remote, WithLogProgressEvery(1))

	err := svc.DeleteTaskLogs(context.Background(), testPasskey, "42", []string{"a", "b", "c"})
	require.Error(t, err)

	deletes := remote.callsMatching("DELETE", "")
	require.Len(t, deletes, 2)
	assert.Equal(t, "/datasets/42/tasks/a/logs", deletes[0].Path)
}

func TestOperations_RequirePasskey(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)
	ctx := context.Background()

	ops := map[string]func() error{
		"dataset": func() error {
			return svc.SetDatasetStatus(ctx, "", DatasetStatusRequest{DatasetID: "42", Status: models.StatusSuspended})
		},
		"jobs": func() error {
			return svc.SetJobsStatus(ctx, "", JobsStatusRequest{DatasetID: "42", JobIDs: []string{"j1"}, Status: models.StatusSuspended})
		},
		"tasks": func() error {
			return svc.SetTasksStatus(ctx, "", "42", []string{"j1-t0"}, models.StatusSuspended)
		},
		"tasks and jobs": func() error {
			return svc.SetTasksAndJobsStatus(ctx, "", "42", []string{"j1-t0"}, models.StatusSuspended)
		},
		"dataset logs": func() error { return svc.DeleteDatasetLogs(ctx, "", "42") },
		"task logs":    func() error { return svc.DeleteTaskLogs(ctx, "", "42", []string{"j1-t0"}) },
		"counts": func() error {
			_, err := svc.TaskStatusCounts(ctx, "", "42")
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			assert.ErrorIs(t, err, ErrMissingPasskey)
			assert.True(t, restclient.IsPrecondition(err))
			assert.False(t, restclient.IsRemote(err))
		})
	}
	assert.Empty(t, remote.allCalls())
}

func TestOperations_InvalidArguments(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)
	ctx := context.Background()

	ops := map[string]func() error{
		"dataset without id": func() error {
			return svc.SetDatasetStatus(ctx, testPasskey, DatasetStatusRequest{Status: models.StatusSuspended})
		},
		"dataset without status": func() error {
			return svc.SetDatasetStatus(ctx, testPasskey, DatasetStatusRequest{DatasetID: "42"})
		},
		"jobs with bad status": func() error {
			return svc.SetJobsStatus(ctx, testPasskey, JobsStatusRequest{DatasetID: "42", JobIDs: []string{"j1"}, Status: "on hold"})
		},
		"tasks without status": func() error {
			return svc.SetTasksStatus(ctx, testPasskey, "42", []string{"j1-t0"}, "")
		},
		"tasks and jobs with path status": func() error {
			return svc.SetTasksAndJobsStatus(ctx, testPasskey, "42", []string{"j1-t0"}, "reset/../x")
		},
		"task logs without dataset": func() error { return svc.DeleteTaskLogs(ctx, testPasskey, "", []string{"j1-t0"}) },
		"counts without dataset": func() error {
			_, err := svc.JobStatusCounts(ctx, testPasskey, "")
			return err
		},
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			err := op()
			require.Error(t, err)
			assert.True(t, restclient.IsPrecondition(err))
		})
	}
	assert.Empty(t, remote.allCalls())
}

func TestStatusCounts(t *testing.T) {
	remote := seedDataset42()
	svc := newTestService(remote)

	tasks, err := svc.TaskStatusCounts(context.Background(), testPasskey, "42")
	require.NoError(t, err)
	assert.Equal(t, 2, tasks[models.StatusComplete])
	assert.Equal(t, 2, tasks[models.StatusIdle])
	assert.Equal(t, 6, tasks.Total())

	jobs, err := svc.JobStatusCounts(context.Background(), testPasskey, "42")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCounts{"idle": 1, "waiting": 1, "complete": 1}, jobs)
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, unique([]string{"a", "b", "a", "c", "b"}))
	assert.Empty(t, unique(nil))
}
