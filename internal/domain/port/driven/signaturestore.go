package driven

import "context"

// SignatureStore persists the update cache so a restart does not re-evaluate
// every pull request.
type SignatureStore interface {
	// Load returns pull request number to signature for the repository.
	Load(ctx context.Context, repoFullName string) (map[int]string, error)
	Put(ctx context.Context, repoFullName string, number int, signature string) error
}
