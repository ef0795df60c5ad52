package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, healthStatus int, healthBody, reposBody string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(healthStatus)
		_, _ = w.Write([]byte(healthBody))
	})
	mux.HandleFunc("GET /api/v1/repos", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(reposBody))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name         string
		healthStatus int
		healthBody   string
		reposBody    string
		wantErr      string
	}{
		{
			name:         "healthy",
			healthStatus: http.StatusOK,
			healthBody:   `{"status":"ok"}`,
			reposBody:    `[{"repository":"o/a","last_tick_error":"boom"},{"repository":"o/b"}]`,
		},
		{
			name:         "no repositories",
			healthStatus: http.StatusOK,
			healthBody:   `{"status":"ok"}`,
			reposBody:    `[]`,
		},
		{
			name:         "database down",
			healthStatus: http.StatusServiceUnavailable,
			healthBody:   `{"status":"unavailable"}`,
			reposBody:    `[]`,
			wantErr:      "status 503",
		},
		{
			name:         "unexpected status field",
			healthStatus: http.StatusOK,
			healthBody:   `{"status":"degraded"}`,
			reposBody:    `[]`,
			wantErr:      `health status "degraded"`,
		},
		{
			name:         "every repository failing",
			healthStatus: http.StatusOK,
			healthBody:   `{"status":"ok"}`,
			reposBody:    `[{"repository":"o/a","last_tick_error":"rate limited"},{"repository":"o/b","last_tick_error":"rate limited"}]`,
			wantErr:      "all 2 repositories failed",
		},
		{
			name:         "malformed body",
			healthStatus: http.StatusOK,
			healthBody:   `not json`,
			reposBody:    `[]`,
			wantErr:      "decode",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, tc.healthStatus, tc.healthBody, tc.reposBody)

			err := check(context.Background(), srv.Client(), srv.URL)

			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestCheck_ServerDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	assert.Error(t, check(context.Background(), http.DefaultClient, url))
}

func TestNormalizeAddr(t *testing.T) {
	tests := map[string]string{
		"":               defaultAddr,
		"garbage":        defaultAddr,
		"0.0.0.0:9000":   "127.0.0.1:9000",
		":9000":          "127.0.0.1:9000",
		"[::]:9000":      "127.0.0.1:9000",
		"10.0.0.5:8080":  "10.0.0.5:8080",
		"127.0.0.1:8080": "127.0.0.1:8080",
	}

	for in, want := range tests {
		assert.Equal(t, want, normalizeAddr(in), "input %q", in)
	}
}
