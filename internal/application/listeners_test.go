package application_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/forgewatch/internal/application"
	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

func TestLogListener(t *testing.T) {
	var buf bytes.Buffer
	l := application.NewLogListener(slog.New(slog.NewTextHandler(&buf, nil)))
	ctx := context.Background()

	require.NoError(t, l.OnPullRequestChange(ctx, model.PullRequestChange{
		PullRequest: newPR(42, "rfr"),
		Kinds:       []model.ChangeKind{model.ChangeNew},
	}))
	require.NoError(t, l.OnRepositoryChange(ctx, model.RepositoryChange{
		RepoFullName: testRepo,
		Refs:         []model.RefChange{{Kind: model.RefKindTag, Name: "jdk-21+2", Current: "c2"}},
	}))

	out := buf.String()
	assert.Contains(t, out, "pr="+testRepo+"#42")
	assert.Contains(t, out, "name=jdk-21+2")
	assert.Equal(t, "log", l.Name())
}

func TestHistoryListener_PullRequest(t *testing.T) {
	store := &mockNotificationStore{}
	h := application.NewHistoryListener(store)

	pr := integratedPR(42)
	require.NoError(t, h.OnPullRequestChange(context.Background(), model.PullRequestChange{
		PullRequest:      pr,
		Kinds:            []model.ChangeKind{model.ChangeStatus, model.ChangeIntegrated},
		IntegratedCommit: integratedSHA,
	}))

	require.Len(t, store.added, 1)
	n := store.added[0]
	assert.Equal(t, testRepo, n.RepoFullName)
	assert.Equal(t, model.TargetPullRequest, n.Target)
	assert.Equal(t, "#42", n.Subject)
	assert.Equal(t, "Fix the thing [status,integrated] integrated as "+integratedSHA, n.Summary)
	assert.Equal(t, "history", h.Name())
}

func TestHistoryListener_Repository(t *testing.T) {
	store := &mockNotificationStore{}
	h := application.NewHistoryListener(store)

	require.NoError(t, h.OnRepositoryChange(context.Background(), model.RepositoryChange{
		RepoFullName: testRepo,
		Refs: []model.RefChange{
			{Kind: model.RefKindBranch, Name: "master", Previous: "c1", Current: "c2"},
			{Kind: model.RefKindTag, Name: "jdk-21+2", Current: "c2"},
		},
	}))

	require.Len(t, store.added, 2)
	assert.Equal(t, "branch:master", store.added[0].Subject)
	assert.Equal(t, "c1..c2", store.added[0].Summary)
	assert.Equal(t, model.TargetRepository, store.added[1].Target)
	assert.Equal(t, "tag:jdk-21+2", store.added[1].Subject)
	assert.Equal(t, "created at c2", store.added[1].Summary)
}

func TestHistoryListener_StoreError(t *testing.T) {
	store := &mockNotificationStore{addErr: errForge}
	h := application.NewHistoryListener(store)

	err := h.OnRepositoryChange(context.Background(), model.RepositoryChange{
		RepoFullName: testRepo,
		Refs:         []model.RefChange{{Kind: model.RefKindBranch, Name: "master", Current: "c2"}},
	})

	assert.ErrorIs(t, err, errForge)
}
