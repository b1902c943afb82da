package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"loudstalker/internal/domain"
)

// maxErrorBody caps how much of a failed response is quoted in the error.
const maxErrorBody = 512

// HTTPTrigger implements domain.TriggerClient with a plain HTTP POST.
// This is a secondary adapter.
type HTTPTrigger struct {
	client *http.Client
}

// NewHTTPTrigger creates a trigger client. A zero timeout keeps the
// transport defaults.
func NewHTTPTrigger(timeout time.Duration) domain.TriggerClient {
	return &HTTPTrigger{client: &http.Client{Timeout: timeout}}
}

// NewHTTPTriggerWithClient wraps an existing client, e.g. an httptest one.
func NewHTTPTriggerWithClient(client *http.Client) domain.TriggerClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPTrigger{client: client}
}

// Post sends body (or nothing when body is nil) to url.
func (h *HTTPTrigger) Post(ctx context.Context, url string, body []byte) (int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return 0, fmt.Errorf("build trigger request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("post trigger: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return resp.StatusCode, fmt.Errorf("%w: %d %s", domain.ErrTriggerStatus, resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}
