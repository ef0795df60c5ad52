package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction checks.
var (
	_ driven.PullRequestListener = (*LogListener)(nil)
	_ driven.RepositoryListener  = (*LogListener)(nil)
	_ driven.PullRequestListener = (*HistoryListener)(nil)
	_ driven.RepositoryListener  = (*HistoryListener)(nil)
)

// LogListener writes every change to a structured logger.
type LogListener struct {
	logger *slog.Logger
}

// NewLogListener creates a LogListener.
func NewLogListener(logger *slog.Logger) *LogListener {
	return &LogListener{logger: logger}
}

func (l *LogListener) Name() string { return "log" }

// OnPullRequestChange logs the change. It never fails.
func (l *LogListener) OnPullRequestChange(_ context.Context, change model.PullRequestChange) error {
	pr := change.PullRequest
	l.logger.Info("pull request changed",
		"pr", pr.Key(),
		"title", pr.Title,
		"status", string(pr.Status),
		"kinds", change.Kinds,
		"integrated_commit", change.IntegratedCommit,
	)
	return nil
}

// OnRepositoryChange logs one line per moved ref. It never fails.
func (l *LogListener) OnRepositoryChange(_ context.Context, change model.RepositoryChange) error {
	for _, ref := range change.Refs {
		l.logger.Info("ref changed",
			"repo", change.RepoFullName,
			"kind", string(ref.Kind),
			"name", ref.Name,
			"previous", ref.Previous,
			"current", ref.Current,
		)
	}
	return nil
}

// HistoryListener records every change in a NotificationStore.
type HistoryListener struct {
	store driven.NotificationStore
}

// NewHistoryListener creates a HistoryListener backed by store.
func NewHistoryListener(store driven.NotificationStore) *HistoryListener {
	return &HistoryListener{store: store}
}

func (h *HistoryListener) Name() string { return "history" }

// OnPullRequestChange stores a single row for the change.
func (h *HistoryListener) OnPullRequestChange(ctx context.Context, change model.PullRequestChange) error {
	pr := change.PullRequest

	kinds := make([]string, 0, len(change.Kinds))
	for _, k := range change.Kinds {
		kinds = append(kinds, string(k))
	}
	summary := fmt.Sprintf("%s [%s] %s", pr.Title, strings.Join(kinds, ","), pr.Status)
	if change.IntegratedCommit != "" {
		summary += " as " + change.IntegratedCommit
	}

	return h.store.Add(ctx, model.Notification{
		RepoFullName: pr.RepoFullName,
		Target:       model.TargetPullRequest,
		Subject:      "#" + strconv.Itoa(pr.Number),
		Summary:      summary,
		CreatedAt:    time.Now().UTC(),
	})
}

// OnRepositoryChange stores one row per moved ref.
func (h *HistoryListener) OnRepositoryChange(ctx context.Context, change model.RepositoryChange) error {
	for _, ref := range change.Refs {
		summary := ref.Previous + ".." + ref.Current
		if ref.IsNew() {
			summary = "created at " + ref.Current
		}
		err := h.store.Add(ctx, model.Notification{
			RepoFullName: change.RepoFullName,
			Target:       model.TargetRepository,
			Subject:      string(ref.Kind) + ":" + ref.Name,
			Summary:      summary,
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
