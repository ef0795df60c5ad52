package application

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// RepositoryWorkItem diffs branches and tags against the stored watermarks
// and notifies repository listeners about every ref that moved.
type RepositoryWorkItem struct {
	repoFullName string
	branchFilter *regexp.Regexp
	forge        driven.ForgeClient
	refs         driven.RefStore
	listeners    []driven.RepositoryListener
}

// Key serializes work for the same repository.
func (w *RepositoryWorkItem) Key() string {
	return w.repoFullName
}

func (w *RepositoryWorkItem) String() string {
	return "RepositoryWorkItem@" + w.repoFullName
}

// Run notifies listeners and then advances the watermarks of the changed refs.
// The first run for a repository only records the current refs.
func (w *RepositoryWorkItem) Run(ctx context.Context) error {
	current, err := w.currentRefs(ctx)
	if err != nil {
		return err
	}

	stored, seeded, err := w.refs.List(ctx, w.repoFullName)
	if err != nil {
		return fmt.Errorf("load refs for %s: %w", w.repoFullName, err)
	}

	if !seeded {
		slog.Info("no ref history, recording current refs without notifying",
			"repo", w.repoFullName,
			"refs", len(current),
		)
		return w.refs.Save(ctx, w.repoFullName, current)
	}

	changes, moved := diffRefs(stored, current)
	if len(changes) == 0 {
		return nil
	}

	change := model.RepositoryChange{RepoFullName: w.repoFullName, Refs: changes}
	var errs []error
	for _, l := range w.listeners {
		if err := l.OnRepositoryChange(ctx, change); err != nil {
			errs = append(errs, fmt.Errorf("listener %s: %w", l.Name(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("notify %s: %w", w.repoFullName, err)
	}

	if err := w.refs.Save(ctx, w.repoFullName, moved); err != nil {
		return fmt.Errorf("store refs for %s: %w", w.repoFullName, err)
	}

	slog.Info("repository change delivered", "repo", w.repoFullName, "refs", len(changes))
	return nil
}

func (w *RepositoryWorkItem) currentRefs(ctx context.Context) ([]model.Ref, error) {
	branches, err := w.forge.ListBranches(ctx, w.repoFullName)
	if err != nil {
		return nil, fmt.Errorf("list branches for %s: %w", w.repoFullName, err)
	}
	tags, err := w.forge.ListTags(ctx, w.repoFullName)
	if err != nil {
		return nil, fmt.Errorf("list tags for %s: %w", w.repoFullName, err)
	}

	refs := make([]model.Ref, 0, len(branches)+len(tags))
	for _, b := range branches {
		if w.branchFilter != nil && !w.branchFilter.MatchString(b.Name) {
			continue
		}
		refs = append(refs, b)
	}
	return append(refs, tags...), nil
}

// diffRefs returns the changes between stored and current refs, sorted by
// kind and name, along with the current refs that moved. Refs that vanished
// from the forge are ignored.
func diffRefs(stored, current []model.Ref) ([]model.RefChange, []model.Ref) {
	type refKey struct {
		kind model.RefKind
		name string
	}

	previous := make(map[refKey]string, len(stored))
	for _, r := range stored {
		previous[refKey{r.Kind, r.Name}] = r.Commit
	}

	var changes []model.RefChange
	var moved []model.Ref
	for _, r := range current {
		prev := previous[refKey{r.Kind, r.Name}]
		if prev == r.Commit {
			continue
		}
		changes = append(changes, model.RefChange{
			Kind:     r.Kind,
			Name:     r.Name,
			Previous: prev,
			Current:  r.Commit,
		})
		moved = append(moved, r)
	}

	slices.SortFunc(changes, func(a, b model.RefChange) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Name, b.Name))
	})
	return changes, moved
}
