package application

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrUnknownRepository is returned when a refresh names a repository that is
// not being watched.
var ErrUnknownRepository = errors.New("repository not watched")

// refreshRequest represents a manual refresh trigger.
type refreshRequest struct {
	repoFullName string
	done         chan error
}

// Runner ticks every engine on a fixed interval and hands the resulting work
// items to a KeyedExecutor.
type Runner struct {
	engines   []*NotificationEngine
	byRepo    map[string]*NotificationEngine
	executor  *KeyedExecutor
	interval  time.Duration
	refreshCh chan refreshRequest
}

// NewRunner creates a Runner for the given engines.
func NewRunner(engines []*NotificationEngine, executor *KeyedExecutor, interval time.Duration) *Runner {
	byRepo := make(map[string]*NotificationEngine, len(engines))
	for _, e := range engines {
		byRepo[e.RepoFullName()] = e
	}
	return &Runner{
		engines:   engines,
		byRepo:    byRepo,
		executor:  executor,
		interval:  interval,
		refreshCh: make(chan refreshRequest),
	}
}

// Start ticks all engines immediately and then on every interval. It also
// serves manual refresh requests. Start blocks until ctx is canceled and then
// waits for in-flight work items to return.
func (r *Runner) Start(ctx context.Context) {
	r.tickAll(ctx)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.executor.Wait()
			slog.Info("runner stopped")
			return
		case <-ticker.C:
			r.tickAll(ctx)
		case req := <-r.refreshCh:
			req.done <- r.handleRefresh(ctx, req)
		}
	}
}

// RunOnce ticks every engine a single time and waits for all work to finish.
func (r *Runner) RunOnce(ctx context.Context) {
	r.tickAll(ctx)
	r.executor.Wait()
}

// Refresh ticks the engine for one repository outside the regular interval.
// It blocks until the tick has been submitted or ctx is canceled.
func (r *Runner) Refresh(ctx context.Context, repoFullName string) error {
	if _, ok := r.byRepo[repoFullName]; !ok {
		return ErrUnknownRepository
	}

	done := make(chan error, 1)
	req := refreshRequest{repoFullName: repoFullName, done: done}

	select {
	case r.refreshCh <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Engines returns the engines driven by the runner.
func (r *Runner) Engines() []*NotificationEngine {
	return r.engines
}

func (r *Runner) tickAll(ctx context.Context) {
	start := time.Now()
	var submitted int

	for _, e := range r.engines {
		if ctx.Err() != nil {
			return
		}
		submitted += r.tick(ctx, e)
	}

	slog.Info("tick complete",
		"repos", len(r.engines),
		"work_items", submitted,
		"duration", time.Since(start).Round(time.Millisecond),
	)
}

func (r *Runner) tick(ctx context.Context, e *NotificationEngine) int {
	items := e.Tick(ctx)
	for _, item := range items {
		r.executor.Submit(ctx, item)
	}
	return len(items)
}

func (r *Runner) handleRefresh(ctx context.Context, req refreshRequest) error {
	e := r.byRepo[req.repoFullName]
	n := r.tick(ctx, e)
	slog.Info("manual refresh", "repo", req.repoFullName, "work_items", n)
	return nil
}

// Statuses returns the status of every engine in configuration order.
func (r *Runner) Statuses() []EngineStatus {
	statuses := make([]EngineStatus, 0, len(r.engines))
	for _, e := range r.engines {
		statuses = append(statuses, e.Status())
	}
	return statuses
}
