package cascade

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/ternarybob/cascade/internal/models"
	"github.com/ternarybob/cascade/internal/restclient"
)

// remoteCall records one request made to the fake service
type remoteCall struct {
	Method string
	Path   string
	Query  url.Values
	IDs    []string // bulk ids
	Status string   // status body
}

// fakeRemote is an in-memory job/task service for one dataset
type fakeRemote struct {
	mu            sync.Mutex
	datasetID     string
	datasetStatus string
	jobs          map[string]string
	tasks         map[string]models.Task
	calls         []remoteCall

	// failOn returns an error to inject for a call, or nil
	failOn func(c remoteCall) error
}

func newFakeRemote(datasetID string) *fakeRemote {
	return &fakeRemote{
		datasetID:     datasetID,
		datasetStatus: "processing",
		jobs:          map[string]string{},
		tasks:         map[string]models.Task{},
	}
}

func (f *fakeRemote) addJob(jobID, status string, taskStatuses ...string) {
	f.jobs[jobID] = status
	for i, ts := range taskStatuses {
		taskID := fmt.Sprintf("%s-t%d", jobID, i)
		f.tasks[taskID] = models.Task{ID: taskID, DatasetID: f.datasetID, JobID: jobID, Status: models.Status(ts)}
	}
}

func (f *fakeRemote) record(c remoteCall) error {
	f.mu.Lock()
	f.calls = append(f.calls, c)
	fail := f.failOn
	f.mu.Unlock()
	if fail != nil {
		return fail(c)
	}
	return nil
}

func (f *fakeRemote) callsMatching(method, pathPrefix string) []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []remoteCall
	for _, c := range f.calls {
		if c.Method == method && strings.HasPrefix(c.Path, pathPrefix) {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeRemote) allCalls() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]remoteCall(nil), f.calls...)
}

func (f *fakeRemote) taskStatus(taskID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.tasks[taskID].Status)
}

func (f *fakeRemote) jobStatus(jobID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs[jobID]
}

func matches(filter string, status string) bool {
	if filter == "" {
		return true
	}
	for _, s := range strings.Split(filter, "|") {
		if s == status {
			return true
		}
	}
	return false
}

func (f *fakeRemote) Read(ctx context.Context, path string, query url.Values, passkey string) (map[string]json.RawMessage, error) {
	if passkey == "" {
		return nil, &restclient.PreconditionError{Op: "GET " + path, Reason: "passkey can't be empty"}
	}
	if err := f.record(remoteCall{Method: "GET", Path: path, Query: query}); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[string]json.RawMessage{}
	switch path {
	case "/datasets/" + f.datasetID + "/jobs":
		for id, status := range f.jobs {
			if matches(query.Get("status"), status) {
				out[id] = json.RawMessage(fmt.Sprintf(`{"job_id":%q}`, id))
			}
		}
	case "/datasets/" + f.datasetID + "/tasks":
		for id, task := range f.tasks {
			if jobID := query.Get("job_id"); jobID != "" && task.JobID != jobID {
				continue
			}
			if matches(query.Get("status"), string(task.Status)) {
				out[id] = json.RawMessage(fmt.Sprintf(`{"task_id":%q}`, id))
			}
		}
	default:
		return nil, &restclient.APIError{StatusCode: 404, Message: "method not found", Endpoint: path}
	}
	return out, nil
}

func (f *fakeRemote) ReadRecord(ctx context.Context, path string, query url.Values, passkey string, out interface{}) error {
	if err := f.record(remoteCall{Method: "GET", Path: path, Query: query}); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	prefix := "/datasets/" + f.datasetID
	var payload interface{}
	switch {
	case path == prefix+"/task_counts/status":
		counts := map[string]int{}
		for _, t := range f.tasks {
			counts[string(t.Status)]++
		}
		payload = counts
	case path == prefix+"/job_counts/status":
		counts := map[string]int{}
		for _, s := range f.jobs {
			counts[s]++
		}
		payload = counts
	case strings.HasPrefix(path, prefix+"/tasks/"):
		task, ok := f.tasks[strings.TrimPrefix(path, prefix+"/tasks/")]
		if !ok {
			return &restclient.APIError{StatusCode: 404, Message: "method not found", Endpoint: path}
		}
		payload = task
	default:
		return &restclient.APIError{StatusCode: 404, Message: "method not found", Endpoint: path}
	}

	data, _ := json.Marshal(payload)
	return json.Unmarshal(data, out)
}

func (f *fakeRemote) Write(ctx context.Context, path string, body interface{}, passkey string) (json.RawMessage, error) {
	sb, ok := body.(statusBody)
	if !ok {
		return nil, fmt.Errorf("unexpected body %T", body)
	}
	if err := f.record(remoteCall{Method: "PUT", Path: path, Status: string(sb.Status)}); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[2] == "status":
		f.datasetStatus = string(sb.Status)
	case len(parts) == 5 && parts[2] == "jobs":
		f.jobs[parts[3]] = string(sb.Status)
	case len(parts) == 5 && parts[2] == "tasks":
		t := f.tasks[parts[3]]
		t.Status = sb.Status
		f.tasks[parts[3]] = t
	default:
		return nil, &restclient.APIError{StatusCode: 404, Message: "method not found", Endpoint: path}
	}
	return json.RawMessage(`{}`), nil
}

func (f *fakeRemote) BulkWrite(ctx context.Context, path string, body interface{}, passkey string) error {
	ids := body.(map[string][]string)
	parts := strings.Split(strings.Trim(path, "/"), "/")
	status := parts[len(parts)-1]
	kind := parts[2]

	var list []string
	for _, v := range ids {
		list = v
	}
	if err := f.record(remoteCall{Method: "POST", Path: path, IDs: list, Status: status}); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	switch kind {
	case "job_actions":
		for _, id := range ids["jobs"] {
			f.jobs[id] = status
		}
	case "task_actions":
		for _, id := range ids["tasks"] {
			t := f.tasks[id]
			t.Status = models.Status(status)
			f.tasks[id] = t
		}
	}
	return nil
}

func (f *fakeRemote) Delete(ctx context.Context, path string, passkey string) error {
	return f.record(remoteCall{Method: "DELETE", Path: path})
}
