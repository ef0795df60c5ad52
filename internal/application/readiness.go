package application

import (
	"log/slog"
	"regexp"
	"slices"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// ApprovalPolicy maps an author handle to a pattern that at least one of that
// author's comments must contain. Every entry must be satisfied.
type ApprovalPolicy map[string]*regexp.Regexp

// ReadinessGate decides whether a pull request has reached a state worth
// notifying about. It is stateless apart from its policy.
type ReadinessGate struct {
	policy ApprovalPolicy
}

// NewReadinessGate creates a gate for the given policy. A nil policy is empty.
func NewReadinessGate(policy ApprovalPolicy) *ReadinessGate {
	return &ReadinessGate{policy: policy}
}

// IsOfInterest reports whether pr is triggered and approved. branches lists
// the branch names currently present in the repository; comments must already
// be loaded on pr when the policy is non-empty.
func (g *ReadinessGate) IsOfInterest(pr model.PullRequest, branches []string) bool {
	if !g.Triggered(pr, branches) {
		return false
	}
	return g.Approved(pr)
}

// Triggered performs the cheap label and branch check that must pass before
// any comment is looked at.
func (g *ReadinessGate) Triggered(pr model.PullRequest, branches []string) bool {
	if pr.HasLabel(model.LabelReadyForReview) || pr.HasLabel(model.LabelIntegrated) {
		return true
	}
	if slices.Contains(branches, pr.PreIntegrationBranch()) {
		return true
	}
	slog.Debug("pull request not ready, needs rfr or integrated label", "pr", pr.Key())
	return false
}

// NeedsComments reports whether Approved will inspect comments.
func (g *ReadinessGate) NeedsComments() bool {
	return len(g.policy) > 0
}

// Approved checks every policy entry against the pull request comments.
func (g *ReadinessGate) Approved(pr model.PullRequest) bool {
	for author, pattern := range g.policy {
		if !hasMatchingComment(pr.Comments, author, pattern) {
			slog.Debug("pull request not ready, missing ready comment",
				"pr", pr.Key(),
				"author", author,
				"pattern", pattern.String(),
			)
			return false
		}
	}
	return true
}

func hasMatchingComment(comments []model.Comment, author string, pattern *regexp.Regexp) bool {
	for _, c := range comments {
		if c.Author == author && pattern.MatchString(c.Body) {
			return true
		}
	}
	return false
}
