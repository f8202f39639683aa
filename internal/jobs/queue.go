package jobs

import (
	"log/slog"
	"sync"
)

// Queue is the ordered list of pending input paths. The head is processed
// next; new submissions are prepended so a mid-run drop jumps ahead of
// pending work. Duplicate insertion is tolerated and logged, never
// deduplicated. All mutation funnels through the orchestrator.
type Queue struct {
	mu    sync.Mutex
	paths []string
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// PushFront prepends paths as a block, keeping their relative order ahead
// of existing entries.
func (q *Queue) PushFront(paths ...string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, path := range paths {
		for _, existing := range q.paths {
			if existing == path {
				slog.Warn("path already in queue, still added", "path", path)
				break
			}
		}
	}

	q.paths = append(append([]string{}, paths...), q.paths...)
}

// PopFront removes and returns the head path. An empty queue logs an
// anomaly and returns "".
func (q *Queue) PopFront() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.paths) == 0 {
		slog.Error("odd, no more items in queue")
		return ""
	}

	head := q.paths[0]
	q.paths = q.paths[1:]
	return head
}

// Remove deletes the first occurrence of path. Removing an absent path
// logs an anomaly and returns false; it is not fatal.
func (q *Queue) Remove(path string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, existing := range q.paths {
		if existing == path {
			q.paths = append(q.paths[:i], q.paths[i+1:]...)
			return true
		}
	}

	slog.Error("path not in queue", "path", path)
	return false
}

// Len returns the number of pending paths.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.paths)
}

// Clear drops all pending paths.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.paths = nil
}

// Snapshot returns a copy of the pending paths for display.
func (q *Queue) Snapshot() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string{}, q.paths...)
}
