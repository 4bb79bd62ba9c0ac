// Package query builds the query parameters understood by the job/task
// service's collection endpoints.
package query

import (
	"net/url"
	"strings"

	"github.com/ternarybob/cascade/internal/models"
)

const (
	// ParamStatus holds a | separated list of statuses to match
	ParamStatus = "status"

	// ParamKeys holds a | separated list of record fields to return
	ParamKeys = "keys"

	// ParamJobID scopes a task query to one job
	ParamJobID = "job_id"

	separator = "|"
)

// StatusFilter encodes statuses as the alternation string used by the
// service ("a|b|c"). Order is preserved and duplicates are kept. An empty
// input yields "" which means no status constraint.
func StatusFilter(statuses []models.Status) string {
	if len(statuses) == 0 {
		return ""
	}
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, separator)
}

// Builder accumulates query parameters for a collection read.
type Builder struct {
	values url.Values
}

// New creates an empty Builder.
func New() *Builder {
	return &Builder{values: url.Values{}}
}

// Statuses adds a status constraint. Nothing is added for an empty list.
func (b *Builder) Statuses(statuses []models.Status) *Builder {
	if f := StatusFilter(statuses); f != "" {
		b.values.Set(ParamStatus, f)
	}
	return b
}

// Keys limits the returned record fields.
func (b *Builder) Keys(keys ...string) *Builder {
	if len(keys) > 0 {
		b.values.Set(ParamKeys, strings.Join(keys, separator))
	}
	return b
}

// Job scopes the query to the tasks of one job.
func (b *Builder) Job(jobID string) *Builder {
	if jobID != "" {
		b.values.Set(ParamJobID, jobID)
	}
	return b
}

// Values returns the accumulated parameters.
func (b *Builder) Values() url.Values {
	return b.values
}

// Encode returns the parameters as a URL query string.
// The | separator is left readable rather than percent-encoded.
func (b *Builder) Encode() string {
	return strings.ReplaceAll(b.values.Encode(), "%7C", separator)
}
