package application_test

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forgewatch/internal/application"
	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

func branch(name, commit string) model.Ref {
	return model.Ref{Kind: model.RefKindBranch, Name: name, Commit: commit}
}

func tag(name, commit string) model.Ref {
	return model.Ref{Kind: model.RefKindTag, Name: name, Commit: commit}
}

func newRepoFixture(t *testing.T, branches, tags *[]model.Ref) *engineFixture {
	t.Helper()

	f := newEngineFixture(t, application.EngineConfig{BranchFilter: regexp.MustCompile(`^(master|jdk-.*)$`)})
	f.forge.listBranches = func(context.Context, string) ([]model.Ref, error) { return *branches, nil }
	f.forge.listTags = func(context.Context, string) ([]model.Ref, error) { return *tags, nil }
	f.engine.RegisterRepositoryListener(f.listener)
	return f
}

func TestRepositoryWorkItem_FirstRunSeeds(t *testing.T) {
	branches := []model.Ref{branch("master", "c1"), branch("feature", "c2")}
	tags := []model.Ref{tag("jdk-21+1", "c0")}
	f := newRepoFixture(t, &branches, &tags)

	require.NoError(t, singleItem(t, f).Run(context.Background()))

	assert.Empty(t, f.listener.repoChanges, "first run does not notify")
	assert.ElementsMatch(t, []model.Ref{branch("master", "c1"), tag("jdk-21+1", "c0")}, f.refs.refs[testRepo])
}

func TestRepositoryWorkItem_EmptyFirstRunStillSeeds(t *testing.T) {
	branches := []model.Ref{branch("feature", "x1")}
	tags := []model.Ref{}
	f := newRepoFixture(t, &branches, &tags)
	ctx := context.Background()

	require.NoError(t, singleItem(t, f).Run(ctx))
	assert.Empty(t, f.listener.repoChanges)
	assert.Empty(t, f.refs.refs[testRepo], "nothing matched the branch filter")

	branches = []model.Ref{branch("feature", "x1"), branch("master", "c1")}
	tags = []model.Ref{tag("jdk-22+1", "c1")}
	require.NoError(t, singleItem(t, f).Run(ctx))

	require.Len(t, f.listener.repoChanges, 1, "refs created after an empty first run are notified")
	assert.Equal(t, []model.RefChange{
		{Kind: model.RefKindBranch, Name: "master", Previous: "", Current: "c1"},
		{Kind: model.RefKindTag, Name: "jdk-22+1", Previous: "", Current: "c1"},
	}, f.listener.repoChanges[0].Refs)
}

func TestRepositoryWorkItem_ReportsMovedRefs(t *testing.T) {
	branches := []model.Ref{branch("master", "c1"), branch("jdk-22", "d1")}
	tags := []model.Ref{tag("jdk-21+1", "c0")}
	f := newRepoFixture(t, &branches, &tags)
	ctx := context.Background()
	require.NoError(t, singleItem(t, f).Run(ctx))

	branches = []model.Ref{branch("master", "c2"), branch("jdk-22", "d1"), branch("feature", "x")}
	tags = []model.Ref{tag("jdk-21+1", "c0"), tag("jdk-21+2", "c2")}
	require.NoError(t, singleItem(t, f).Run(ctx))

	require.Len(t, f.listener.repoChanges, 1)
	change := f.listener.repoChanges[0]
	assert.Equal(t, testRepo, change.RepoFullName)
	assert.Equal(t, []model.RefChange{
		{Kind: model.RefKindBranch, Name: "master", Previous: "c1", Current: "c2"},
		{Kind: model.RefKindTag, Name: "jdk-21+2", Previous: "", Current: "c2"},
	}, change.Refs)
	assert.True(t, change.Refs[1].IsNew())

	require.NoError(t, singleItem(t, f).Run(ctx))
	assert.Len(t, f.listener.repoChanges, 1, "no changes after watermarks advanced")
}

func TestRepositoryWorkItem_VanishedRefsIgnored(t *testing.T) {
	branches := []model.Ref{branch("master", "c1"), branch("jdk-22", "d1")}
	tags := []model.Ref{}
	f := newRepoFixture(t, &branches, &tags)
	ctx := context.Background()
	require.NoError(t, singleItem(t, f).Run(ctx))

	branches = []model.Ref{branch("master", "c1")}
	require.NoError(t, singleItem(t, f).Run(ctx))

	assert.Empty(t, f.listener.repoChanges)
}

func TestRepositoryWorkItem_ListenerFailureKeepsWatermarks(t *testing.T) {
	branches := []model.Ref{branch("master", "c1")}
	tags := []model.Ref{}
	f := newRepoFixture(t, &branches, &tags)
	ctx := context.Background()
	require.NoError(t, singleItem(t, f).Run(ctx))

	branches = []model.Ref{branch("master", "c2")}
	f.listener.err = errForge
	require.ErrorIs(t, singleItem(t, f).Run(ctx), errForge)
	assert.Equal(t, []model.Ref{branch("master", "c1")}, f.refs.refs[testRepo])

	f.listener.err = nil
	require.NoError(t, singleItem(t, f).Run(ctx))
	require.Len(t, f.listener.repoChanges, 2, "change delivered again")
	assert.Equal(t, "c1", f.listener.repoChanges[1].Refs[0].Previous)
	assert.Equal(t, []model.Ref{branch("master", "c2")}, f.refs.refs[testRepo])
}

func TestRepositoryWorkItem_ForgeFailure(t *testing.T) {
	branches := []model.Ref{}
	tags := []model.Ref{}
	f := newRepoFixture(t, &branches, &tags)
	f.forge.listTags = func(context.Context, string) ([]model.Ref, error) { return nil, errForge }

	err := singleItem(t, f).Run(context.Background())

	require.ErrorIs(t, err, errForge)
	assert.Empty(t, f.refs.saves)
}
