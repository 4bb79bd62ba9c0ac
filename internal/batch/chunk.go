// Package batch splits id sets into bounded groups for bulk requests.
//
// Two execution models are provided:
//   - WriteChunked issues one request per chunk, strictly in sequence.
//   - FanOut issues one read per id, a fixed number at a time, waiting for
//     every read in a group before the next group starts.
package batch

import "iter"

const (
	// DefaultChunkSize is the maximum number of ids in one bulk action request
	DefaultChunkSize = 50000

	// DefaultFanOutWidth is the maximum number of concurrent reads
	DefaultFanOutWidth = 10
)

// Chunk is a contiguous slice of an id list.
type Chunk struct {
	Index int      // 0-based position of the chunk
	Total int      // number of chunks in the sequence
	Start int      // offset of the first id in the original list
	IDs   []string // ids of this chunk, sharing the original backing array
}

// Chunks yields contiguous chunks of at most size ids, in order.
// A non-positive size is treated as 1. An empty list yields nothing.
func Chunks(ids []string, size int) iter.Seq[Chunk] {
	if size <= 0 {
		size = 1
	}
	total := Count(len(ids), size)
	return func(yield func(Chunk) bool) {
		for i := 0; i < total; i++ {
			start := i * size
			end := min(start+size, len(ids))
			if !yield(Chunk{Index: i, Total: total, Start: start, IDs: ids[start:end:end]}) {
				return
			}
		}
	}
}

// Count returns the number of chunks of size needed for n ids.
func Count(n, size int) int {
	if n <= 0 {
		return 0
	}
	if size <= 0 {
		size = 1
	}
	return (n + size - 1) / size
}
