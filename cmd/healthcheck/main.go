// Command healthcheck checks a running forgewatch instance. It exits non-zero
// when the database is unavailable or when every watched repository failed
// its last poll.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	httphandler "github.com/ericfisherdev/forgewatch/internal/adapter/driving/http"
)

const defaultAddr = "127.0.0.1:8080"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 2 * time.Second}
	baseURL := "http://" + normalizeAddr(os.Getenv("FORGEWATCH_LISTEN_ADDR"))

	if err := check(ctx, client, baseURL); err != nil {
		fmt.Fprintln(os.Stderr, "unhealthy:", err)
		os.Exit(1)
	}
}

// check requires a healthy database and at least one repository whose last
// poll succeeded. A process watching no repositories is healthy.
func check(ctx context.Context, client *http.Client, baseURL string) error {
	var health httphandler.HealthResponse
	if err := getJSON(ctx, client, baseURL+"/api/v1/health", &health); err != nil {
		return err
	}
	if health.Status != "ok" {
		return fmt.Errorf("health status %q", health.Status)
	}

	var repos []httphandler.RepoStatusResponse
	if err := getJSON(ctx, client, baseURL+"/api/v1/repos", &repos); err != nil {
		return err
	}
	if len(repos) == 0 {
		return nil
	}
	for _, r := range repos {
		if r.LastTickError == "" {
			return nil
		}
	}
	return fmt.Errorf("all %d repositories failed their last poll, first: %s: %s",
		len(repos), repos[0].Repository, repos[0].LastTickError)
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("get %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// normalizeAddr maps a bind-all listen address to loopback, since the check
// runs next to the server.
func normalizeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil {
		return defaultAddr
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, port)
}
