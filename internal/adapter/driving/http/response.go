package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/application"
	"github.com/ericfisherdev/forgewatch/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON body of GET /api/v1/health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// RepoStatusResponse is the JSON representation of an engine status.
type RepoStatusResponse struct {
	Repository           string `json:"repository"`
	LastFullUpdate       string `json:"last_full_update,omitempty"`
	LastTickAt           string `json:"last_tick_at,omitempty"`
	LastTickError        string `json:"last_tick_error,omitempty"`
	CachedPullRequests   int    `json:"cached_pull_requests"`
	PullRequestListeners int    `json:"pull_request_listeners"`
	RepositoryListeners  int    `json:"repository_listeners"`
}

// NotificationResponse is the JSON representation of a delivered notification.
type NotificationResponse struct {
	ID         int64  `json:"id"`
	Repository string `json:"repository"`
	Target     string `json:"target"`
	Subject    string `json:"subject"`
	Summary    string `json:"summary"`
	CreatedAt  string `json:"created_at"`
}

// CommandResponse is the JSON representation of a command invocation.
type CommandResponse struct {
	CommentID  int64  `json:"comment_id"`
	User       string `json:"user"`
	Name       string `json:"name"`
	Args       string `json:"args"`
	Recognized bool   `json:"recognized"`
	CreatedAt  string `json:"created_at"`
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func toRepoStatusResponse(s application.EngineStatus) RepoStatusResponse {
	return RepoStatusResponse{
		Repository:           s.RepoFullName,
		LastFullUpdate:       formatOptionalTime(s.LastFullUpdate),
		LastTickAt:           formatOptionalTime(s.LastTickAt),
		LastTickError:        s.LastTickError,
		CachedPullRequests:   s.CachedPullRequests,
		PullRequestListeners: s.PullRequestListeners,
		RepositoryListeners:  s.RepositoryListeners,
	}
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:         n.ID,
		Repository: n.RepoFullName,
		Target:     string(n.Target),
		Subject:    n.Subject,
		Summary:    n.Summary,
		CreatedAt:  n.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toCommandResponse(inv model.CommandInvocation) CommandResponse {
	_, recognized := inv.Handler()
	return CommandResponse{
		CommentID:  inv.ID(),
		User:       inv.User(),
		Name:       inv.Name(),
		Args:       inv.Args(),
		Recognized: recognized,
		CreatedAt:  inv.CreatedAt().UTC().Format(time.RFC3339),
	}
}
