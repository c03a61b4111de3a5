package delta

import (
	"encoding/json"

	"github.com/deltasync/peersync/internal/model"
)

// DefaultMaxChunkSize is MAX_CHUNK_SIZE from spec.md §4.E: 5 MiB.
const DefaultMaxChunkSize = 5 * 1024 * 1024

// MessageSize returns a message's serialized byte size, the unit chunking
// measures against the byte budget.
func MessageSize(m model.Message) (int, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return 0, err
	}
	return len(b), nil
}

// ChunkMessages walks messages in order and greedily fills chunks under
// maxChunkSize. A single message whose serialized size exceeds the cap gets
// its own chunk rather than being split; chunk order matches input order.
func ChunkMessages(messages []model.Message, maxChunkSize int) ([][]model.Message, error) {
	if len(messages) == 0 {
		return nil, nil
	}

	var chunks [][]model.Message
	var current []model.Message
	currentSize := 0

	for _, m := range messages {
		size, err := MessageSize(m)
		if err != nil {
			return nil, err
		}

		if len(current) > 0 && currentSize+size > maxChunkSize {
			chunks = append(chunks, current)
			current = nil
			currentSize = 0
		}

		current = append(current, m)
		currentSize += size

		if size > maxChunkSize {
			// This message alone exceeds the cap; it gets its own chunk,
			// flushed immediately so it never absorbs neighbours.
			chunks = append(chunks, current)
			current = nil
			currentSize = 0
		}
	}

	if len(current) > 0 {
		chunks = append(chunks, current)
	}
	return chunks, nil
}
