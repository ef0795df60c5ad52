package driven

import (
	"context"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// PullRequestListener receives pull request changes. Returning an error leaves
// the pull request eligible for notification on a later poll.
type PullRequestListener interface {
	Name() string
	OnPullRequestChange(ctx context.Context, change model.PullRequestChange) error
}

// RepositoryListener receives branch and tag changes. Returning an error keeps
// the ref watermarks where they were.
type RepositoryListener interface {
	Name() string
	OnRepositoryChange(ctx context.Context, change model.RepositoryChange) error
}
