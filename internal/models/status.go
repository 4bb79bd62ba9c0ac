// -----------------------------------------------------------------------
// Status - lifecycle labels shared by datasets, jobs and tasks
// -----------------------------------------------------------------------

package models

import (
	"fmt"
	"regexp"
)

// Status is the lifecycle label of a dataset, job or task.
// The vocabulary is open: the remote service decides which labels and
// transitions are legal, so values outside the known sets below are
// passed through untouched.
type Status string

// Known status labels across all entity kinds
const (
	StatusIdle       Status = "idle"
	StatusWaiting    Status = "waiting"
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusReset      Status = "reset"
	StatusSuspended  Status = "suspended"
	StatusTruncated  Status = "truncated"
	StatusErrors     Status = "errors"
	StatusFailed     Status = "failed"
	StatusComplete   Status = "complete"
)

// statusPattern mirrors the route pattern of the bulk_status endpoints (\w+)
var statusPattern = regexp.MustCompile(`^\w+$`)

// ParseStatus validates that s can be used as a status label in a request path.
func ParseStatus(s string) (Status, error) {
	if !statusPattern.MatchString(s) {
		return "", fmt.Errorf("invalid status %q: must be a non-empty word", s)
	}
	return Status(s), nil
}

// ParseStatuses validates a list of labels, preserving order and duplicates.
func ParseStatuses(values []string) ([]Status, error) {
	statuses := make([]Status, 0, len(values))
	for _, v := range values {
		s, err := ParseStatus(v)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, s)
	}
	return statuses, nil
}

// String returns the string representation of the Status
func (s Status) String() string {
	return string(s)
}

// DatasetStatuses returns the labels the service documents for datasets.
func DatasetStatuses() []Status {
	return []Status{StatusProcessing, StatusSuspended, StatusErrors, StatusComplete, StatusTruncated}
}

// JobStatuses returns the labels the service documents for jobs.
func JobStatuses() []Status {
	return []Status{StatusProcessing, StatusSuspended, StatusErrors, StatusComplete}
}

// TaskStatuses returns the labels the service documents for tasks.
// StatusReset is an action label: the service moves reset tasks back to idle.
func TaskStatuses() []Status {
	return []Status{
		StatusIdle,
		StatusWaiting,
		StatusQueued,
		StatusProcessing,
		StatusReset,
		StatusSuspended,
		StatusFailed,
		StatusComplete,
	}
}

// DatasetChildTargets returns the job and task statuses pushed to the
// children of a dataset whose status changes to target.
//
//	suspended -> jobs suspended, tasks suspended
//	anything  -> jobs processing, tasks reset
func DatasetChildTargets(target Status) (job Status, task Status) {
	if target == StatusSuspended {
		return StatusSuspended, StatusSuspended
	}
	return StatusProcessing, StatusReset
}

// JobChildTarget returns the task status pushed to the tasks of a job
// whose status changes to target.
//
//	processing -> reset
//	anything   -> suspended
func JobChildTarget(target Status) Status {
	if target == StatusProcessing {
		return StatusReset
	}
	return StatusSuspended
}

// TaskParentTarget returns the job status written alongside a task whose
// status changes to target. Any "active" task status reactivates the job;
// every other status is mirrored onto the job.
func TaskParentTarget(target Status) Status {
	switch target {
	case StatusIdle, StatusWaiting, StatusQueued, StatusProcessing, StatusReset:
		return StatusProcessing
	}
	return target
}
