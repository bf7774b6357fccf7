package queue

import (
	"context"
	"time"
)

// MemoryQueue is a buffered-channel Queue for tests and single-process runs.
type MemoryQueue struct {
	items chan []byte
}

func NewMemoryQueue(size int) *MemoryQueue {
	return &MemoryQueue{items: make(chan []byte, size)}
}

func (q *MemoryQueue) Push(ctx context.Context, payload []byte) error {
	select {
	case q.items <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-q.items:
		return item, nil
	case <-timer.C:
		return nil, ErrEmpty
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len reports how many payloads are waiting.
func (q *MemoryQueue) Len() int {
	return len(q.items)
}
