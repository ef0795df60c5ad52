package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.PullRequestStateStore = (*PRStateRepo)(nil)

// PRStateRepo is the SQLite implementation of the PullRequestStateStore port interface.
type PRStateRepo struct {
	db *DB
}

// NewPRStateRepo creates a new PRStateRepo backed by the given DB.
func NewPRStateRepo(db *DB) *PRStateRepo {
	return &PRStateRepo{db: db}
}

// Get retrieves the last notified state. Returns (nil, nil) if none exists.
func (r *PRStateRepo) Get(ctx context.Context, repoFullName string, number int) (*model.PullRequestState, error) {
	const query = `
		SELECT repo_full_name, number, status, head_sha, integrated_commit, notified_at
		FROM pull_request_states
		WHERE repo_full_name = ? AND number = ?
	`

	var s model.PullRequestState
	var status, notifiedAt string

	err := r.db.Reader.QueryRowContext(ctx, query, repoFullName, number).Scan(
		&s.RepoFullName, &s.Number, &status, &s.HeadSHA, &s.IntegratedCommit, &notifiedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get state for %s#%d: %w", repoFullName, number, err)
	}

	s.Status = model.PRStatus(status)
	s.NotifiedAt, err = parseTime(notifiedAt)
	if err != nil {
		return nil, fmt.Errorf("parse notified_at: %w", err)
	}

	return &s, nil
}

// Put inserts or replaces the state of a pull request.
func (r *PRStateRepo) Put(ctx context.Context, state model.PullRequestState) error {
	const query = `
		INSERT INTO pull_request_states (repo_full_name, number, status, head_sha, integrated_commit, notified_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_full_name, number) DO UPDATE SET
			status = excluded.status,
			head_sha = excluded.head_sha,
			integrated_commit = excluded.integrated_commit,
			notified_at = excluded.notified_at
	`

	_, err := r.db.Writer.ExecContext(ctx, query,
		state.RepoFullName, state.Number, string(state.Status), state.HeadSHA,
		state.IntegratedCommit, formatTime(state.NotifiedAt),
	)
	if err != nil {
		return fmt.Errorf("put state for %s#%d: %w", state.RepoFullName, state.Number, err)
	}

	return nil
}
