package sqlite

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SignatureStore = (*SignatureRepo)(nil)

// SignatureRepo is the SQLite implementation of the SignatureStore port interface.
type SignatureRepo struct {
	db *DB
}

// NewSignatureRepo creates a new SignatureRepo backed by the given DB.
func NewSignatureRepo(db *DB) *SignatureRepo {
	return &SignatureRepo{db: db}
}

// Load returns every stored signature of the repository keyed by pull request number.
func (r *SignatureRepo) Load(ctx context.Context, repoFullName string) (map[int]string, error) {
	const query = `SELECT number, signature FROM update_signatures WHERE repo_full_name = ?`

	rows, err := r.db.Reader.QueryContext(ctx, query, repoFullName)
	if err != nil {
		return nil, fmt.Errorf("load signatures for %s: %w", repoFullName, err)
	}
	defer rows.Close()

	result := make(map[int]string)
	for rows.Next() {
		var number int
		var sig string
		if err := rows.Scan(&number, &sig); err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		result[number] = sig
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signatures: %w", err)
	}
	return result, nil
}

// Put inserts or replaces the signature of a pull request.
func (r *SignatureRepo) Put(ctx context.Context, repoFullName string, number int, signature string) error {
	const query = `
		INSERT INTO update_signatures (repo_full_name, number, signature)
		VALUES (?, ?, ?)
		ON CONFLICT(repo_full_name, number) DO UPDATE SET signature = excluded.signature
	`

	if _, err := r.db.Writer.ExecContext(ctx, query, repoFullName, number, signature); err != nil {
		return fmt.Errorf("put signature for %s#%d: %w", repoFullName, number, err)
	}
	return nil
}
