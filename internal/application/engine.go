package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// WorkItem is one unit of notification work produced by a tick. Items with
// the same Key must not run concurrently.
type WorkItem interface {
	Key() string
	Run(ctx context.Context) error
	String() string
}

// EngineConfig is the per-repository configuration consumed by the engine.
type EngineConfig struct {
	RepoFullName string
	BranchFilter *regexp.Regexp // Nil matches every branch.
	Policy       ApprovalPolicy
	IntegratorID string
}

// EngineStatus is an exported snapshot of engine state for observability.
type EngineStatus struct {
	RepoFullName         string
	LastFullUpdate       time.Time
	LastTickAt           time.Time
	LastTickError        string
	CachedPullRequests   int
	PullRequestListeners int
	RepositoryListeners  int
}

// EngineOption customizes a NotificationEngine.
type EngineOption func(*NotificationEngine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) EngineOption {
	return func(e *NotificationEngine) { e.now = now }
}

// WithUpdateCache replaces the default in-memory update cache.
func WithUpdateCache(cache *UpdateCache) EngineOption {
	return func(e *NotificationEngine) { e.cache = cache }
}

// WithScanBounds overrides the full scan interval and incremental lookback.
func WithScanBounds(fullScanInterval, lookback time.Duration) EngineOption {
	return func(e *NotificationEngine) {
		e.scheduler.fullScanInterval = fullScanInterval
		e.scheduler.lookback = lookback
	}
}

// NotificationEngine turns forge polling into work items for one repository.
// Tick must not be called concurrently on the same engine.
type NotificationEngine struct {
	cfg       EngineConfig
	forge     driven.ForgeClient
	refs      driven.RefStore
	states    driven.PullRequestStateStore
	scheduler *PollScheduler
	gate      *ReadinessGate
	cache     *UpdateCache
	now       func() time.Time

	prListeners   []driven.PullRequestListener
	repoListeners []driven.RepositoryListener

	mu             sync.Mutex // Guards the fields below for Status readers.
	lastFullUpdate time.Time
	lastTickAt     time.Time
	lastTickErr    error
}

// NewNotificationEngine creates an engine with no listeners registered.
func NewNotificationEngine(
	cfg EngineConfig,
	forge driven.ForgeClient,
	refs driven.RefStore,
	states driven.PullRequestStateStore,
	opts ...EngineOption,
) *NotificationEngine {
	e := &NotificationEngine{
		cfg:       cfg,
		forge:     forge,
		refs:      refs,
		states:    states,
		scheduler: NewPollScheduler(forge),
		gate:      NewReadinessGate(cfg.Policy),
		cache:     NewUpdateCache(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterPullRequestListener adds a listener for pull request changes.
func (e *NotificationEngine) RegisterPullRequestListener(l driven.PullRequestListener) {
	e.prListeners = append(e.prListeners, l)
}

// RegisterRepositoryListener adds a listener for branch and tag changes.
func (e *NotificationEngine) RegisterRepositoryListener(l driven.RepositoryListener) {
	e.repoListeners = append(e.repoListeners, l)
}

// RepoFullName returns the watched repository.
func (e *NotificationEngine) RepoFullName() string {
	return e.cfg.RepoFullName
}

func (e *NotificationEngine) String() string {
	return "NotificationEngine@" + e.cfg.RepoFullName
}

// Tick evaluates the repository once and returns the work to run. A failed
// pull request fetch yields no pull request work. A failed branch listing only
// drops the pull requests that carry no trigger label. Either way the
// full-scan watermark stays put and the next tick retries.
func (e *NotificationEngine) Tick(ctx context.Context) []WorkItem {
	var items []WorkItem
	var tickErr error

	if len(e.prListeners) > 0 {
		prItems, err := e.pullRequestItems(ctx)
		if err != nil {
			slog.Error("pull request scan failed", "repo", e.cfg.RepoFullName, "error", err)
			tickErr = err
		}
		items = append(items, prItems...)
	}

	if len(e.repoListeners) > 0 {
		items = append(items, &RepositoryWorkItem{
			repoFullName: e.cfg.RepoFullName,
			branchFilter: e.cfg.BranchFilter,
			forge:        e.forge,
			refs:         e.refs,
			listeners:    e.repoListeners,
		})
	}

	e.mu.Lock()
	e.lastTickAt = e.now()
	e.lastTickErr = tickErr
	e.mu.Unlock()

	return items
}

func (e *NotificationEngine) pullRequestItems(ctx context.Context) ([]WorkItem, error) {
	e.mu.Lock()
	lastFullUpdate := e.lastFullUpdate
	e.mu.Unlock()

	prs, watermark, err := e.scheduler.NextFetchSet(ctx, e.cfg.RepoFullName, lastFullUpdate, e.now())
	if err != nil {
		return nil, err
	}

	var (
		items          []WorkItem
		branches       []string
		branchesLoaded bool
		branchErr      error
		skipped        int
	)

	for _, pr := range prs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if !e.cache.NeedsUpdate(pr) {
			skipped++
			continue
		}

		// Branches are only needed when no trigger label is present.
		if !pr.HasLabel(model.LabelReadyForReview) && !pr.HasLabel(model.LabelIntegrated) {
			if !branchesLoaded {
				branches, branchErr = e.branchNames(ctx)
				branchesLoaded = true
			}
			if branchErr != nil {
				continue
			}
		}

		if !e.gate.Triggered(pr, branches) {
			continue
		}

		if e.gate.NeedsComments() && pr.Comments == nil {
			comments, err := e.forge.ListComments(ctx, pr.RepoFullName, pr.Number)
			if err != nil {
				slog.Error("fetch comments failed", "pr", pr.Key(), "error", err)
				continue
			}
			pr.Comments = comments
		}

		if !e.gate.Approved(pr) {
			continue
		}

		items = append(items, &PullRequestWorkItem{
			pr:           pr,
			forge:        e.forge,
			states:       e.states,
			listeners:    e.prListeners,
			integratorID: e.cfg.IntegratorID,
			now:          e.now,
			onComplete: func(ctx context.Context) {
				e.cache.Invalidate(ctx, pr)
			},
		})
	}

	// Pull requests that needed the branch check were skipped, so the scan is
	// incomplete and the next tick must cover them again.
	if branchErr != nil {
		return items, fmt.Errorf("list branches for %s: %w", e.cfg.RepoFullName, branchErr)
	}

	e.mu.Lock()
	e.lastFullUpdate = watermark
	e.mu.Unlock()

	slog.Info("pull requests evaluated",
		"repo", e.cfg.RepoFullName,
		"fetched", len(prs),
		"skipped_unchanged", skipped,
		"queued", len(items),
	)

	return items, nil
}

func (e *NotificationEngine) branchNames(ctx context.Context) ([]string, error) {
	refs, err := e.forge.ListBranches(ctx, e.cfg.RepoFullName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return names, nil
}

// Status returns a snapshot of the engine state.
func (e *NotificationEngine) Status() EngineStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := EngineStatus{
		RepoFullName:         e.cfg.RepoFullName,
		LastFullUpdate:       e.lastFullUpdate,
		LastTickAt:           e.lastTickAt,
		CachedPullRequests:   e.cache.Len(),
		PullRequestListeners: len(e.prListeners),
		RepositoryListeners:  len(e.repoListeners),
	}
	if e.lastTickErr != nil {
		status.LastTickError = e.lastTickErr.Error()
	}
	return status
}
