package driven

import (
	"context"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// RefStore defines the driven port for branch and tag watermarks.
type RefStore interface {
	// List returns every stored ref for the repository. seeded is false until
	// the first Save for the repository, even one with no refs.
	List(ctx context.Context, repoFullName string) (refs []model.Ref, seeded bool, err error)
	// Save upserts the given refs and marks the repository seeded in a single
	// transaction.
	Save(ctx context.Context, repoFullName string, refs []model.Ref) error
}
