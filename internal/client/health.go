package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lox/blackjack/internal/server"
)

// FetchHealth calls the server's /health endpoint. A db_error report is
// returned as a Health value, not an error.
func FetchHealth(ctx context.Context, serverURL string) (server.Health, error) {
	var h server.Health

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(serverURL, "/")+"/health", nil)
	if err != nil {
		return h, err
	}

	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Do(req)
	if err != nil {
		return h, fmt.Errorf("health request: %w", err)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return h, fmt.Errorf("decode health (status %d): %w", resp.StatusCode, err)
	}
	return h, nil
}
