// Package progress turns cascade milestones into human-readable messages
// for a NotificationSink.
package progress

import (
	"fmt"
	"sync/atomic"

	"github.com/ternarybob/cascade/internal/batch"
	"github.com/ternarybob/cascade/internal/interfaces"
)

// Reporter is a nil-safe wrapper over a NotificationSink. A Reporter with
// no sink discards everything, so operations behave identically with or
// without a UI attached.
type Reporter struct {
	sink      interfaces.NotificationSink
	completed atomic.Int64
}

// Compile-time assertion
var _ batch.Observer = (*Reporter)(nil)

// NewReporter creates a Reporter. sink may be nil.
func NewReporter(sink interfaces.NotificationSink) *Reporter {
	return &Reporter{sink: sink}
}

// Report emits a progress message.
func (r *Reporter) Report(format string, args ...interface{}) {
	if r == nil || r.sink == nil {
		return
	}
	r.sink.Report(fmt.Sprintf(format, args...))
}

// ReportError emits an error message.
func (r *Reporter) ReportError(format string, args ...interface{}) {
	if r == nil || r.sink == nil {
		return
	}
	r.sink.ReportError(fmt.Sprintf(format, args...))
}

// Clear removes visible messages.
func (r *Reporter) Clear() {
	if r == nil || r.sink == nil {
		return
	}
	r.sink.Clear()
}

// Reset zeroes the in-flight item counter.
func (r *Reporter) Reset() {
	if r == nil {
		return
	}
	r.completed.Store(0)
}

// Completed returns the in-flight item counter.
func (r *Reporter) Completed() int64 {
	if r == nil {
		return 0
	}
	return r.completed.Load()
}

// Advance adds n to the item counter and reports "verb done/total" every
// `every` items and on the last one.
func (r *Reporter) Advance(verb string, n, total, every int) {
	if r == nil {
		return
	}
	done := int(r.completed.Add(int64(n)))
	if every <= 0 {
		every = 1
	}
	if done == total || done%every == 0 {
		r.Report("%s %d/%d", verb, done, total)
	}
}

// ChunkStarted implements batch.Observer.
func (r *Reporter) ChunkStarted(label string, chunk batch.Chunk) {
	r.Report("Setting %s: sending %d-%d of chunk %d/%d",
		label, chunk.Start+1, chunk.Start+len(chunk.IDs), chunk.Index+1, chunk.Total)
}

// ChunkFinished implements batch.Observer.
func (r *Reporter) ChunkFinished(label string, chunk batch.Chunk, err error) {
	if err != nil {
		r.ReportError("Setting %s failed at chunk %d/%d", label, chunk.Index+1, chunk.Total)
		return
	}
	r.Report("Setting %s: chunk %d/%d done", label, chunk.Index+1, chunk.Total)
}

// GroupStarted implements batch.Observer.
func (r *Reporter) GroupStarted(label string, group batch.Chunk) {
	r.Report("Looking up %s: group %d/%d", label, group.Index+1, group.Total)
}

// GroupFinished implements batch.Observer.
func (r *Reporter) GroupFinished(label string, group batch.Chunk, err error) {
	if err != nil {
		r.ReportError("Looking up %s failed in group %d/%d", label, group.Index+1, group.Total)
	}
}
