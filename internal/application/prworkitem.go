package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// integratedCommitPattern matches the comment the integrator leaves after
// pushing a pull request.
var integratedCommitPattern = regexp.MustCompile(`Pushed as commit ([0-9a-f]{40})`)

// PullRequestWorkItem delivers the changes of one pull request to every
// pull request listener and records the delivered state.
type PullRequestWorkItem struct {
	pr           model.PullRequest
	forge        driven.ForgeClient
	states       driven.PullRequestStateStore
	listeners    []driven.PullRequestListener
	integratorID string
	now          func() time.Time
	onComplete   func(ctx context.Context)
}

// Key serializes work for the same pull request.
func (w *PullRequestWorkItem) Key() string {
	return w.pr.Key()
}

func (w *PullRequestWorkItem) String() string {
	return "PullRequestWorkItem@" + w.pr.Key()
}

// PullRequest returns the snapshot the item was created for.
func (w *PullRequestWorkItem) PullRequest() model.PullRequest {
	return w.pr
}

// Run computes what changed since the last delivered state and notifies the
// listeners. The stored state and the update cache only advance when every
// listener succeeded.
func (w *PullRequestWorkItem) Run(ctx context.Context) error {
	prev, err := w.states.Get(ctx, w.pr.RepoFullName, w.pr.Number)
	if err != nil {
		return fmt.Errorf("load state for %s: %w", w.pr.Key(), err)
	}

	change, next, err := w.diff(ctx, prev)
	if err != nil {
		return err
	}

	if len(change.Kinds) > 0 {
		var errs []error
		for _, l := range w.listeners {
			if err := l.OnPullRequestChange(ctx, change); err != nil {
				errs = append(errs, fmt.Errorf("listener %s: %w", l.Name(), err))
			}
		}
		if err := errors.Join(errs...); err != nil {
			return fmt.Errorf("notify %s: %w", w.pr.Key(), err)
		}

		if err := w.states.Put(ctx, next); err != nil {
			return fmt.Errorf("store state for %s: %w", w.pr.Key(), err)
		}
		slog.Info("pull request change delivered", "pr", w.pr.Key(), "kinds", change.Kinds)
	}

	if w.onComplete != nil {
		w.onComplete(ctx)
	}
	return nil
}

func (w *PullRequestWorkItem) diff(ctx context.Context, prev *model.PullRequestState) (model.PullRequestChange, model.PullRequestState, error) {
	change := model.PullRequestChange{PullRequest: w.pr}
	next := model.PullRequestState{
		RepoFullName: w.pr.RepoFullName,
		Number:       w.pr.Number,
		Status:       w.pr.Status,
		HeadSHA:      w.pr.HeadSHA,
		NotifiedAt:   w.now().UTC(),
	}

	if prev == nil {
		change.Kinds = append(change.Kinds, model.ChangeNew)
	} else {
		change.PreviousStatus = prev.Status
		change.PreviousHeadSHA = prev.HeadSHA
		next.IntegratedCommit = prev.IntegratedCommit

		if prev.Status != w.pr.Status {
			change.Kinds = append(change.Kinds, model.ChangeStatus)
		}
		if prev.HeadSHA != w.pr.HeadSHA {
			change.Kinds = append(change.Kinds, model.ChangeHead)
		}
	}

	if w.pr.Status == model.PRStatusIntegrated && next.IntegratedCommit == "" {
		commit, err := w.integratedCommit(ctx)
		if err != nil {
			return change, next, err
		}
		if commit != "" {
			change.Kinds = append(change.Kinds, model.ChangeIntegrated)
			change.IntegratedCommit = commit
			next.IntegratedCommit = commit
		}
	}

	return change, next, nil
}

// integratedCommit finds the commit the pull request was integrated as,
// preferring the integrator's comment over the forge merge commit.
func (w *PullRequestWorkItem) integratedCommit(ctx context.Context) (string, error) {
	if w.integratorID != "" {
		comments := w.pr.Comments
		if comments == nil {
			var err error
			comments, err = w.forge.ListComments(ctx, w.pr.RepoFullName, w.pr.Number)
			if err != nil {
				return "", fmt.Errorf("fetch comments for %s: %w", w.pr.Key(), err)
			}
		}
		for i := len(comments) - 1; i >= 0; i-- {
			c := comments[i]
			if c.Author != w.integratorID {
				continue
			}
			if m := integratedCommitPattern.FindStringSubmatch(c.Body); m != nil {
				return m[1], nil
			}
		}
	}
	return w.pr.MergeSHA, nil
}
