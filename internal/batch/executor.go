package batch

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"
)

// WriteFunc sends one chunk of ids in a single request.
type WriteFunc func(ctx context.Context, ids []string) error

// ReadFunc fetches the child ids of one parent id.
type ReadFunc func(ctx context.Context, parentID string) ([]string, error)

// Executor runs chunked writes and bounded fan-out reads.
type Executor struct {
	chunkSize int
	width     int
	observer  Observer
	logger    arbor.ILogger
}

// Option configures the Executor.
type Option func(*Executor)

// WithChunkSize sets the maximum ids per bulk request.
func WithChunkSize(size int) Option {
	return func(e *Executor) {
		if size > 0 {
			e.chunkSize = size
		}
	}
}

// WithFanOutWidth sets the maximum number of concurrent reads.
func WithFanOutWidth(width int) Option {
	return func(e *Executor) {
		if width > 0 {
			e.width = width
		}
	}
}

// WithObserver sets the boundary observer.
func WithObserver(observer Observer) Option {
	return func(e *Executor) {
		if observer != nil {
			e.observer = observer
		}
	}
}

// NewExecutor creates an Executor with the default chunk size and fan-out width.
func NewExecutor(logger arbor.ILogger, opts ...Option) *Executor {
	e := &Executor{
		chunkSize: DefaultChunkSize,
		width:     DefaultFanOutWidth,
		observer:  noopObserver{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ChunkSize returns the configured chunk size.
func (e *Executor) ChunkSize() int {
	return e.chunkSize
}

// FanOutWidth returns the configured fan-out width.
func (e *Executor) FanOutWidth() int {
	return e.width
}

// WriteChunked sends ids in chunks, one request at a time and in order.
// The first failing chunk stops the sequence; earlier chunks stay applied
// and later chunks are never sent.
func (e *Executor) WriteChunked(ctx context.Context, label string, ids []string, write WriteFunc) error {
	for chunk := range Chunks(ids, e.chunkSize) {
		e.observer.ChunkStarted(label, chunk)

		err := write(ctx, chunk.IDs)
		e.observer.ChunkFinished(label, chunk, err)
		if err != nil {
			e.logger.Error().
				Err(err).
				Str("label", label).
				Int("chunk", chunk.Index+1).
				Int("chunks", chunk.Total).
				Int("applied", chunk.Start).
				Msg("Bulk write chunk failed - remaining chunks skipped")
			return fmt.Errorf("%s: chunk %d of %d: %w", label, chunk.Index+1, chunk.Total, err)
		}

		e.logger.Debug().
			Str("label", label).
			Int("chunk", chunk.Index+1).
			Int("chunks", chunk.Total).
			Int("size", len(chunk.IDs)).
			Msg("Bulk write chunk applied")
	}
	return nil
}

// FanOut reads the children of every parent, at most width reads at a time.
// Groups run one after another; reads within a group run concurrently.
// Results are concatenated in parent order. On the first failure the
// remaining reads of the group are cancelled, later groups are not started
// and no partial result is returned.
func (e *Executor) FanOut(ctx context.Context, label string, parentIDs []string, read ReadFunc) ([]string, error) {
	var children []string

	for group := range Chunks(parentIDs, e.width) {
		e.observer.GroupStarted(label, group)

		results := make([][]string, len(group.IDs))
		g, gctx := errgroup.WithContext(ctx)
		for i, parentID := range group.IDs {
			g.Go(func() error {
				ids, err := read(gctx, parentID)
				if err != nil {
					return fmt.Errorf("%s: parent %s: %w", label, parentID, err)
				}
				results[i] = ids
				return nil
			})
		}

		err := g.Wait()
		e.observer.GroupFinished(label, group, err)
		if err != nil {
			e.logger.Error().
				Err(err).
				Str("label", label).
				Int("group", group.Index+1).
				Int("groups", group.Total).
				Msg("Fan-out read failed - discarding partial results")
			return nil, err
		}

		for _, ids := range results {
			children = append(children, ids...)
		}
	}

	return children, nil
}
