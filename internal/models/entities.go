package models

// Dataset is the root of the dataset -> job -> task hierarchy.
// Identifiers are assigned by the remote service.
type Dataset struct {
	ID     string `json:"dataset_id"`
	Status Status `json:"status"`
}

// Job belongs to exactly one dataset.
type Job struct {
	ID        string `json:"job_id"`
	DatasetID string `json:"dataset_id"`
	Status    Status `json:"status,omitempty"`
}

// Task belongs to exactly one job and, through it, one dataset.
type Task struct {
	ID        string `json:"task_id"`
	DatasetID string `json:"dataset_id"`
	JobID     string `json:"job_id"`
	Status    Status `json:"status,omitempty"`
}

// EntityKind names the level of the hierarchy an id refers to.
type EntityKind string

const (
	EntityDataset EntityKind = "dataset"
	EntityJob     EntityKind = "job"
	EntityTask    EntityKind = "task"
)

// BulkKey returns the body key of a bulk action request for this kind
// ({"jobs": [...]} or {"tasks": [...]}).
func (k EntityKind) BulkKey() string {
	return string(k) + "s"
}

// IDKey returns the record field holding this kind's identifier.
func (k EntityKind) IDKey() string {
	return string(k) + "_id"
}

// StatusCounts maps a status label to the number of entities in it.
type StatusCounts map[Status]int

// Total returns the number of entities across all statuses.
func (c StatusCounts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}
