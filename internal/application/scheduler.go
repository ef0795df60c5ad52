package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// Scan bounds. The two values are unrelated to each other.
const (
	// DefaultFullScanInterval is the maximum age of the last full scan before
	// another one is forced.
	DefaultFullScanInterval = 10 * time.Minute
	// DefaultIncrementalLookback is how far back an incremental scan looks
	// for modified pull requests.
	DefaultIncrementalLookback = 14 * 24 * time.Hour
)

// ScanKind names the kind of fetch a PollScheduler performed.
type ScanKind string

const (
	ScanFull        ScanKind = "full"
	ScanIncremental ScanKind = "incremental"
)

// PollScheduler decides between a full scan of open pull requests and a
// cheaper scan of recently modified ones.
type PollScheduler struct {
	forge            driven.ForgeClient
	fullScanInterval time.Duration
	lookback         time.Duration
}

// NewPollScheduler creates a scheduler with the default bounds.
func NewPollScheduler(forge driven.ForgeClient) *PollScheduler {
	return &PollScheduler{
		forge:            forge,
		fullScanInterval: DefaultFullScanInterval,
		lookback:         DefaultIncrementalLookback,
	}
}

// ScanKindAt returns the kind of scan NextFetchSet would perform at now.
func (s *PollScheduler) ScanKindAt(lastFullUpdate, now time.Time) ScanKind {
	if lastFullUpdate.IsZero() || now.Sub(lastFullUpdate) > s.fullScanInterval {
		return ScanFull
	}
	return ScanIncremental
}

// NextFetchSet fetches the pull requests to evaluate this tick. A zero
// lastFullUpdate means no full scan has happened yet. The returned watermark
// is now after a successful full scan and lastFullUpdate otherwise, including
// on error.
func (s *PollScheduler) NextFetchSet(ctx context.Context, repoFullName string, lastFullUpdate, now time.Time) ([]model.PullRequest, time.Time, error) {
	if s.ScanKindAt(lastFullUpdate, now) == ScanFull {
		slog.Info("fetching all open pull requests", "repo", repoFullName)
		prs, err := s.forge.ListOpenPullRequests(ctx, repoFullName)
		if err != nil {
			return nil, lastFullUpdate, err
		}
		return prs, now, nil
	}

	slog.Info("fetching recently updated pull requests (open and closed)", "repo", repoFullName)
	prs, err := s.forge.ListPullRequestsModifiedSince(ctx, repoFullName, now.Add(-s.lookback))
	if err != nil {
		return nil, lastFullUpdate, err
	}
	return prs, lastFullUpdate, nil
}
