package model

import "slices"

// PullRequestChange is the payload handed to pull request listeners.
type PullRequestChange struct {
	PullRequest      PullRequest
	Kinds            []ChangeKind
	PreviousStatus   PRStatus // Empty when Kinds contains ChangeNew.
	PreviousHeadSHA  string
	IntegratedCommit string // Set when Kinds contains ChangeIntegrated.
}

// Has reports whether the change includes the given kind.
func (c PullRequestChange) Has(kind ChangeKind) bool {
	return slices.Contains(c.Kinds, kind)
}

// RepositoryChange is the payload handed to repository listeners. It carries
// every ref that moved since the last successful notification.
type RepositoryChange struct {
	RepoFullName string
	Refs         []RefChange
}
