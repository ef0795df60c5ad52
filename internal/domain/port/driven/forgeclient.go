package driven

import (
	"context"
	"errors"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// ErrInvalidRepoName is returned when a repository name is not "owner/repo".
var ErrInvalidRepoName = errors.New("invalid repo name")

// ForgeClient defines the driven port for reading repository state from the
// forge. Every method performs network I/O.
type ForgeClient interface {
	// ListOpenPullRequests returns every open pull request.
	ListOpenPullRequests(ctx context.Context, repoFullName string) ([]model.PullRequest, error)
	// ListPullRequestsModifiedSince returns open and closed pull requests
	// updated at or after since.
	ListPullRequestsModifiedSince(ctx context.Context, repoFullName string, since time.Time) ([]model.PullRequest, error)
	// ListBranches returns all branches with their head commits.
	ListBranches(ctx context.Context, repoFullName string) ([]model.Ref, error)
	// ListTags returns all tags with their target commits.
	ListTags(ctx context.Context, repoFullName string) ([]model.Ref, error)
	// ListComments returns the general discussion comments of a pull request,
	// oldest first.
	ListComments(ctx context.Context, repoFullName string, number int) ([]model.Comment, error)
}
