package driven

import (
	"context"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// PullRequestStateStore defines the driven port for the last notified state
// of each pull request.
type PullRequestStateStore interface {
	// Get returns (nil, nil) if no state has been recorded.
	Get(ctx context.Context, repoFullName string, number int) (*model.PullRequestState, error)
	Put(ctx context.Context, state model.PullRequestState) error
}
