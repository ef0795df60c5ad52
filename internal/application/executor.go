package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// KeyedExecutor runs work items concurrently while keeping at most one item
// in flight per key. An item submitted while its key is busy waits in a
// single pending slot; a newer submission replaces it.
type KeyedExecutor struct {
	sem     *semaphore.Weighted
	mu      sync.Mutex
	running map[string]bool
	pending map[string]WorkItem
	wg      sync.WaitGroup
}

// NewKeyedExecutor creates an executor running at most workers items at once.
func NewKeyedExecutor(workers int) *KeyedExecutor {
	if workers < 1 {
		workers = 1
	}
	return &KeyedExecutor{
		sem:     semaphore.NewWeighted(int64(workers)),
		running: make(map[string]bool),
		pending: make(map[string]WorkItem),
	}
}

// Submit schedules item. It never blocks.
func (x *KeyedExecutor) Submit(ctx context.Context, item WorkItem) {
	key := item.Key()

	x.mu.Lock()
	if x.running[key] {
		if _, replaced := x.pending[key]; replaced {
			slog.Debug("replacing pending work item", "item", item.String())
		}
		x.pending[key] = item
		x.mu.Unlock()
		return
	}
	x.running[key] = true
	x.wg.Add(1)
	x.mu.Unlock()

	go x.drain(ctx, key, item)
}

// drain runs item and then any item queued behind it for the same key.
func (x *KeyedExecutor) drain(ctx context.Context, key string, item WorkItem) {
	defer x.wg.Done()

	for {
		if err := x.sem.Acquire(ctx, 1); err != nil {
			x.mu.Lock()
			delete(x.running, key)
			delete(x.pending, key)
			x.mu.Unlock()
			return
		}

		start := time.Now()
		err := item.Run(ctx)
		x.sem.Release(1)

		if err != nil {
			slog.Error("work item failed", "item", item.String(), "error", err)
		} else {
			slog.Debug("work item done", "item", item.String(), "duration", time.Since(start).Round(time.Millisecond))
		}

		x.mu.Lock()
		next, ok := x.pending[key]
		if !ok {
			delete(x.running, key)
			x.mu.Unlock()
			return
		}
		delete(x.pending, key)
		x.mu.Unlock()
		item = next
	}
}

// Wait blocks until every submitted item, including pending ones, finished.
func (x *KeyedExecutor) Wait() {
	x.wg.Wait()
}
