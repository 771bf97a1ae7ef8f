package intent

import (
	"context"
	"log/slog"
	"sync"

	"github.com/quangtm/stashsync/internal/metrics"
)

// Entry is one queued import request. Key is the dedup identity (a
// normalized URL); Payload is whatever the processor needs.
type Entry struct {
	Key     string
	Payload any
}

// Processor handles one entry. Failures are logged and do not block later
// entries.
type Processor func(ctx context.Context, e Entry) error

// Queue serializes externally triggered import requests: strictly one entry
// in flight, FIFO order, duplicates by key discarded while the original is
// still waiting or processing.
type Queue struct {
	proc Processor

	mu      sync.Mutex
	waiting []Entry
	keys    map[string]struct{}
	current string
	running bool
	idle    *sync.Cond
}

// New creates a Queue draining into proc.
func New(proc Processor) *Queue {
	q := &Queue{
		proc: proc,
		keys: make(map[string]struct{}),
	}
	q.idle = sync.NewCond(&q.mu)
	return q
}

// Enqueue adds an entry unless its key is already waiting or in flight.
// Returns false for a discarded duplicate. The drain loop starts on demand.
func (q *Queue) Enqueue(ctx context.Context, key string, payload any) bool {
	q.mu.Lock()
	if key == q.current {
		q.mu.Unlock()
		slog.Debug("Duplicate intent discarded", "key", key)
		return false
	}
	if _, dup := q.keys[key]; dup {
		q.mu.Unlock()
		slog.Debug("Duplicate intent discarded", "key", key)
		return false
	}

	q.waiting = append(q.waiting, Entry{Key: key, Payload: payload})
	q.keys[key] = struct{}{}
	metrics.IntentQueueDepth.Set(float64(len(q.waiting)))

	start := !q.running
	if start {
		q.running = true
	}
	q.mu.Unlock()

	if start {
		go q.drain(ctx)
	}
	return true
}

// Wait blocks until the queue is idle: nothing waiting, nothing in flight.
func (q *Queue) Wait() {
	q.mu.Lock()
	for q.running {
		q.idle.Wait()
	}
	q.mu.Unlock()
}

func (q *Queue) drain(ctx context.Context) {
	for {
		q.mu.Lock()
		if len(q.waiting) == 0 || ctx.Err() != nil {
			q.current = ""
			q.running = false
			q.waiting = nil
			q.keys = make(map[string]struct{})
			metrics.IntentQueueDepth.Set(0)
			q.idle.Broadcast()
			q.mu.Unlock()
			return
		}
		e := q.waiting[0]
		q.waiting = q.waiting[1:]
		delete(q.keys, e.Key)
		q.current = e.Key
		metrics.IntentQueueDepth.Set(float64(len(q.waiting)))
		q.mu.Unlock()

		if err := q.proc(ctx, e); err != nil {
			slog.Warn("Intent processing failed", "key", e.Key, "error", err)
		}
	}
}
