package model

import (
	"slices"
	"strconv"
	"strings"
	"time"
)

// PullRequest is a transient snapshot of a forge pull request. The engine
// only holds it for the duration of one tick and never mutates forge state.
type PullRequest struct {
	Number       int
	RepoFullName string
	Title        string
	Author       string
	Status       PRStatus
	URL          string
	Branch       string
	BaseBranch   string
	HeadSHA      string
	MergeSHA     string // Set by the forge once the pull request is merged.
	Labels       []string
	OpenedAt     time.Time
	UpdatedAt    time.Time

	// Comments is nil until loaded; the list endpoints do not include them.
	Comments []Comment
}

// HasLabel reports whether the pull request carries the given label.
func (pr PullRequest) HasLabel(name string) bool {
	return slices.Contains(pr.Labels, name)
}

// PreIntegrationBranch returns the name of the branch the integration tooling
// creates for this pull request before it is integrated.
func (pr PullRequest) PreIntegrationBranch() string {
	return "pr/" + strconv.Itoa(pr.Number)
}

// Key identifies the pull request across repositories, e.g. "owner/repo#42".
func (pr PullRequest) Key() string {
	return pr.RepoFullName + "#" + strconv.Itoa(pr.Number)
}

// Signature summarizes the observable state of the pull request. Two snapshots
// with equal signatures are considered unchanged; nothing else about the value
// is meaningful.
func (pr PullRequest) Signature() string {
	labels := slices.Clone(pr.Labels)
	slices.Sort(labels)

	var b strings.Builder
	b.WriteString(pr.UpdatedAt.UTC().Format(time.RFC3339Nano))
	b.WriteByte('|')
	b.WriteString(string(pr.Status))
	b.WriteByte('|')
	b.WriteString(pr.HeadSHA)
	b.WriteByte('|')
	b.WriteString(strings.Join(labels, ","))
	return b.String()
}

// Comment is a general discussion comment on a pull request.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}
