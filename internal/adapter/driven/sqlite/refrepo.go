package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RefStore = (*RefRepo)(nil)

// RefRepo is the SQLite implementation of the RefStore port interface.
type RefRepo struct {
	db *DB
}

// NewRefRepo creates a new RefRepo backed by the given DB.
func NewRefRepo(db *DB) *RefRepo {
	return &RefRepo{db: db}
}

// List returns every stored ref of the repository ordered by kind and name.
// seeded reports whether Save was ever called for the repository, which is
// also true when the recorded ref set was empty.
func (r *RefRepo) List(ctx context.Context, repoFullName string) ([]model.Ref, bool, error) {
	const seedQuery = `SELECT EXISTS (SELECT 1 FROM ref_seeds WHERE repo_full_name = ?)`
	const query = `
		SELECT kind, name, commit_sha
		FROM ref_watermarks
		WHERE repo_full_name = ?
		ORDER BY kind, name
	`

	var seeded bool
	if err := r.db.Reader.QueryRowContext(ctx, seedQuery, repoFullName).Scan(&seeded); err != nil {
		return nil, false, fmt.Errorf("check ref seed for %s: %w", repoFullName, err)
	}

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName)
	if err != nil {
		return nil, false, fmt.Errorf("list refs for %s: %w", repoFullName, err)
	}
	defer rows.Close()

	var refs []model.Ref
	for rows.Next() {
		var ref model.Ref
		var kind string
		if err := rows.Scan(&kind, &ref.Name, &ref.Commit); err != nil {
			return nil, false, fmt.Errorf("scan ref: %w", err)
		}
		ref.Kind = model.RefKind(kind)
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate refs: %w", err)
	}
	return refs, seeded, nil
}

// Save upserts refs and marks the repository as seeded in one transaction, so
// a partial failure leaves every watermark untouched. An empty refs slice
// still records the seed.
func (r *RefRepo) Save(ctx context.Context, repoFullName string, refs []model.Ref) error {
	const query = `
		INSERT INTO ref_watermarks (repo_full_name, kind, name, commit_sha, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(repo_full_name, kind, name) DO UPDATE SET
			commit_sha = excluded.commit_sha,
			updated_at = excluded.updated_at
	`

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO ref_seeds (repo_full_name, seeded_at) VALUES (?, ?)`,
		repoFullName, now,
	); err != nil {
		return fmt.Errorf("seed refs for %s: %w", repoFullName, err)
	}

	for _, ref := range refs {
		if _, err := tx.ExecContext(ctx, query, repoFullName, string(ref.Kind), ref.Name, ref.Commit, now); err != nil {
			return fmt.Errorf("save %s %s for %s: %w", ref.Kind, ref.Name, repoFullName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit refs for %s: %w", repoFullName, err)
	}
	return nil
}
