package batch

// Observer is notified at chunk and group boundaries. Implementations must
// not block; their calls never influence success or failure.
type Observer interface {
	ChunkStarted(label string, chunk Chunk)
	ChunkFinished(label string, chunk Chunk, err error)
	GroupStarted(label string, group Chunk)
	GroupFinished(label string, group Chunk, err error)
}

type noopObserver struct{}

func (noopObserver) ChunkStarted(string, Chunk)         {}
func (noopObserver) ChunkFinished(string, Chunk, error) {}
func (noopObserver) GroupStarted(string, Chunk)         {}
func (noopObserver) GroupFinished(string, Chunk, error) {}
