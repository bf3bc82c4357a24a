// Command healthcheck checks the ogcard health endpoint from inside the
// container and exits non-zero when the server is not serving.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"
)

const defaultAddr = "127.0.0.1:8080"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	target := "http://" + normalizeAddr(os.Getenv("OGCARD_LISTEN_ADDR")) + "/api/v1/health"
	if err := checkHealth(ctx, &http.Client{Timeout: 2 * time.Second}, target); err != nil {
		fmt.Fprintln(os.Stderr, "healthcheck:", err)
		os.Exit(1)
	}
}

// checkHealth requires a 200 with {"status":"ok"}. A listener that answers with
// anything else (a proxy error page, a half-started server) fails the check.
func checkHealth(ctx context.Context, client *http.Client, target string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err != nil {
		return fmt.Errorf("decoding health response: %w", err)
	}
	if body.Status != "ok" {
		return fmt.Errorf("server reports status %q", body.Status)
	}
	return nil
}

// normalizeAddr turns the server's listen address into one the check can dial.
// Wildcard binds (0.0.0.0, ::, empty host) are reached over loopback.
func normalizeAddr(raw string) string {
	host, port, err := net.SplitHostPort(raw)
	if err != nil || port == "" {
		return defaultAddr
	}

	switch host {
	case "", "0.0.0.0":
		host = "127.0.0.1"
	case "::":
		host = "::1"
	}
	return net.JoinHostPort(host, port)
}
