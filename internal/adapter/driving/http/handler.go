// Package httphandler is the HTTP driving adapter exposing engine status,
// notification history and command inspection as a JSON API.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ericfisherdev/forgewatch/internal/application"
	"github.com/ericfisherdev/forgewatch/internal/domain/port/driven"
)

// defaultNotificationLimit and maxNotificationLimit bound GET /api/v1/notifications.
const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 500
)

// Watcher is the subset of application.Runner the API needs.
type Watcher interface {
	Statuses() []application.EngineStatus
	Refresh(ctx context.Context, repoFullName string) error
}

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	watcher       Watcher
	notifications driven.NotificationStore
	forge         driven.ForgeClient
	extractor     *application.CommandExtractor
	db            Pinger
	logger        *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(
	watcher Watcher,
	notifications driven.NotificationStore,
	forge driven.ForgeClient,
	extractor *application.CommandExtractor,
	db Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		watcher:       watcher,
		notifications: notifications,
		forge:         forge,
		extractor:     extractor,
		db:            db,
		logger:        logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET "+healthPath, h.Health)
	mux.HandleFunc("GET /api/v1/repos", h.ListRepos)
	mux.HandleFunc("POST /api/v1/repos/{owner}/{repo}/refresh", h.RefreshRepo)
	mux.HandleFunc("GET /api/v1/repos/{owner}/{repo}/prs/{number}/commands", h.ListCommands)
	mux.HandleFunc("GET /api/v1/notifications", h.ListNotifications)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Health reports ok when the database answers a ping.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		h.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Time:   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// ListRepos returns the status of every watched repository.
func (h *Handler) ListRepos(w http.ResponseWriter, _ *http.Request) {
	statuses := h.watcher.Statuses()

	resp := make([]RepoStatusResponse, 0, len(statuses))
	for _, s := range statuses {
		resp = append(resp, toRepoStatusResponse(s))
	}

	writeJSON(w, http.StatusOK, resp)
}

// RefreshRepo ticks the engine of one repository immediately.
func (h *Handler) RefreshRepo(w http.ResponseWriter, r *http.Request) {
	fullName := r.PathValue("owner") + "/" + r.PathValue("repo")

	if err := h.watcher.Refresh(r.Context(), fullName); err != nil {
		if errors.Is(err, application.ErrUnknownRepository) {
			writeError(w, http.StatusNotFound, "repository not watched")
			return
		}
		h.logger.Error("refresh failed", "repo", fullName, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// ListCommands returns the commands found in the comments of a pull request.
func (h *Handler) ListCommands(w http.ResponseWriter, r *http.Request) {
	fullName := r.PathValue("owner") + "/" + r.PathValue("repo")

	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, "invalid PR number")
		return
	}

	comments, err := h.forge.ListComments(r.Context(), fullName, number)
	if err != nil {
		h.logger.Error("failed to list comments", "repo", fullName, "pr", number, "error", err)
		writeError(w, http.StatusBadGateway, "forge request failed")
		return
	}

	invocations := h.extractor.ExtractAll(comments)
	resp := make([]CommandResponse, 0, len(invocations))
	for _, inv := range invocations {
		resp = append(resp, toCommandResponse(inv))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ListNotifications returns the most recent notifications, optionally
// filtered by ?repo=owner/name and bounded by ?limit=N.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	repo := strings.TrimSpace(query.Get("repo"))

	limit := defaultNotificationLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxNotificationLimit)
	}

	list, err := h.notifications.ListRecent(r.Context(), repo, limit)
	if err != nil {
		h.logger.Error("failed to list notifications", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}

	writeJSON(w, http.StatusOK, resp)
}
