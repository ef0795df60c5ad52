package sqlite

import (
	"context"
	"testing"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefRepo_ListEmpty(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefRepo(db)

	refs, seeded, err := repo.List(context.Background(), "owner/repo")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.False(t, seeded)
}

func TestRefRepo_EmptySaveMarksSeeded(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "owner/repo", nil))

	refs, seeded, err := repo.List(ctx, "owner/repo")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.True(t, seeded, "an empty ref set is still a recorded first run")

	_, seeded, err = repo.List(ctx, "owner/other")
	require.NoError(t, err)
	assert.False(t, seeded)
}

func TestRefRepo_SaveAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefRepo(db)
	ctx := context.Background()

	err := repo.Save(ctx, "owner/repo", []model.Ref{
		{Kind: model.RefKindTag, Name: "v1", Commit: "t1"},
		{Kind: model.RefKindBranch, Name: "master", Commit: "m1"},
	})
	require.NoError(t, err)

	refs, seeded, err := repo.List(ctx, "owner/repo")
	require.NoError(t, err)
	assert.True(t, seeded)
	assert.Equal(t, []model.Ref{
		{Kind: model.RefKindBranch, Name: "master", Commit: "m1"},
		{Kind: model.RefKindTag, Name: "v1", Commit: "t1"},
	}, refs)
}

func TestRefRepo_SaveOverwritesCommit(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "owner/repo", []model.Ref{{Kind: model.RefKindBranch, Name: "master", Commit: "m1"}}))
	require.NoError(t, repo.Save(ctx, "owner/repo", []model.Ref{{Kind: model.RefKindBranch, Name: "master", Commit: "m2"}}))

	refs, _, err := repo.List(ctx, "owner/repo")
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "m2", refs[0].Commit)
}

func TestRefRepo_BranchAndTagWithSameName(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "owner/repo", []model.Ref{
		{Kind: model.RefKindBranch, Name: "jdk-21", Commit: "b"},
		{Kind: model.RefKindTag, Name: "jdk-21", Commit: "t"},
	}))

	refs, _, err := repo.List(ctx, "owner/repo")
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestRefRepo_IsolatedByRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRefRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "owner/one", []model.Ref{{Kind: model.RefKindBranch, Name: "master", Commit: "1"}}))

	refs, seeded, err := repo.List(ctx, "owner/two")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.False(t, seeded)
}
