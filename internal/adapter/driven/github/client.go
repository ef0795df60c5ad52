// Package github implements the ForgeClient port using the go-github library.
package github

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"

	"github.com/ericfisherdev/forgewatch/internal/domain/model"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ForgeClient = (*Client)(nil)

// Client implements the driven.ForgeClient port using the go-github library.
type Client struct {
	gh *gh.Client
}

// NewClient creates a new GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// An empty token produces an unauthenticated client, which is only useful
// for public repositories with low polling frequency.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base URL.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// ListOpenPullRequests retrieves every open pull request of the repository.
func (c *Client) ListOpenPullRequests(ctx context.Context, repoFullName string) ([]model.PullRequest, error) {
	return c.listPullRequests(ctx, repoFullName, "open", time.Time{})
}

// ListPullRequestsModifiedSince retrieves open and closed pull requests
// updated at or after since. Results are requested newest first so paging
// stops at the first pull request older than since.
func (c *Client) ListPullRequestsModifiedSince(ctx context.Context, repoFullName string, since time.Time) ([]model.PullRequest, error) {
	return c.listPullRequests(ctx, repoFullName, "all", since)
}

func (c *Client) listPullRequests(ctx context.Context, repoFullName, state string, since time.Time) ([]model.PullRequest, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListOptions{
		State:     state,
		Sort:      "updated",
		Direction: "desc",
		ListOptions: gh.ListOptions{
			PerPage: 100,
		},
	}

	allPRs := []model.PullRequest{}

	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, opts.Page, err)
		}

		logRateLimit(resp, repoFullName, opts.Page, len(prs))

		for _, pr := range prs {
			if !since.IsZero() && pr.GetUpdatedAt().Before(since) {
				return allPRs, nil
			}
			allPRs = append(allPRs, mapPullRequest(pr, repoFullName))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allPRs, nil
}

// ListBranches retrieves all branches with their head commits.
func (c *Client) ListBranches(ctx context.Context, repoFullName string) ([]model.Ref, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.BranchListOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	refs := []model.Ref{}

	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing branches for %s (page %d): %w", repoFullName, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/branches", opts.Page, len(branches))

		for _, b := range branches {
			refs = append(refs, model.Ref{
				Kind:   model.RefKindBranch,
				Name:   b.GetName(),
				Commit: b.GetCommit().GetSHA(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return refs, nil
}

// ListTags retrieves all tags with their target commits.
func (c *Client) ListTags(ctx context.Context, repoFullName string) ([]model.Ref, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: 100}
	refs := []model.Ref{}

	for {
		tags, resp, err := c.gh.Repositories.ListTags(ctx, owner, repo, opts)
		if err != nil {
			return nil, fmt.Errorf("listing tags for %s (page %d): %w", repoFullName, opts.Page, err)
		}

		logRateLimit(resp, repoFullName+"/tags", opts.Page, len(tags))

		for _, t := range tags {
			refs = append(refs, model.Ref{
				Kind:   model.RefKindTag,
				Name:   t.GetName(),
				Commit: t.GetCommit().GetSHA(),
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return refs, nil
}

// ListComments retrieves all general PR-level comments (from the Issues API)
// for a pull request, oldest first.
func (c *Client) ListComments(ctx context.Context, repoFullName string, number int) ([]model.Comment, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	allComments := []model.Comment{}

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s#%d (page %d): %w", repoFullName, number, opts.Page, err)
		}

		logRateLimit(resp, fmt.Sprintf("%s#%d/comments", repoFullName, number), opts.Page, len(comments))

		for _, comment := range comments {
			allComments = append(allComments, mapComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allComments, nil
}

// mapComment converts a go-github IssueComment to a domain model Comment.
func mapComment(c *gh.IssueComment) model.Comment {
	return model.Comment{
		ID:        c.GetID(),
		Author:    c.GetUser().GetLogin(),
		Body:      c.GetBody(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	slog.Debug("github api call",
		"endpoint", endpoint,
		"page", page,
		"count", count,
		"rate_remaining", resp.Rate.Remaining,
		"rate_limit", resp.Rate.Limit,
	)

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		slog.Warn("github rate limit low",
			"remaining", resp.Rate.Remaining,
			"reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second),
		)
	}
}

// mapPullRequest converts a go-github PullRequest to a domain model PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
// A merged pull request, or a closed one carrying the integrated label, maps
// to PRStatusIntegrated.
func mapPullRequest(pr *gh.PullRequest, repoFullName string) model.PullRequest {
	labels := make([]string, 0, len(pr.Labels))
	for _, l := range pr.Labels {
		labels = append(labels, l.GetName())
	}

	status := model.PRStatusOpen
	if pr.GetState() == "closed" {
		status = model.PRStatusClosed
	}
	mergeSHA := ""
	if !pr.GetMergedAt().IsZero() {
		status = model.PRStatusIntegrated
		mergeSHA = pr.GetMergeCommitSHA()
	}

	mapped := model.PullRequest{
		Number:       pr.GetNumber(),
		RepoFullName: repoFullName,
		Title:        pr.GetTitle(),
		Author:       pr.GetUser().GetLogin(),
		Status:       status,
		URL:          pr.GetHTMLURL(),
		Branch:       pr.GetHead().GetRef(),
		BaseBranch:   pr.GetBase().GetRef(),
		HeadSHA:      pr.GetHead().GetSHA(),
		MergeSHA:     mergeSHA,
		Labels:       labels,
		OpenedAt:     pr.GetCreatedAt().Time,
		UpdatedAt:    pr.GetUpdatedAt().Time,
	}
	if mapped.Status == model.PRStatusClosed && mapped.HasLabel(model.LabelIntegrated) {
		mapped.Status = model.PRStatusIntegrated
	}
	return mapped
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w %q: expected owner/repo", driven.ErrInvalidRepoName, fullName)
	}
	return parts[0], parts[1], nil
}
