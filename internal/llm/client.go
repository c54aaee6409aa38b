// Package llm is the HTTP client for the draft service: component
// extraction, intent analysis, rewrites, recommendations and anchor
// generation.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

// Options configures a Client.
type Options struct {
	BaseURL  string
	ImageURL string
	APIKey   string

	Timeout       time.Duration
	AnchorTimeout time.Duration
	ImageTimeout  time.Duration
}

// Client calls the draft service. Each call family has its own transport
// timeout.
type Client struct {
	baseURL  string
	imageURL string
	apiKey   string

	httpClient   *http.Client
	anchorClient *http.Client
	imageClient  *http.Client

	Stats *Stats
}

func NewClient(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 120 * time.Second
	}
	if o.AnchorTimeout <= 0 {
		o.AnchorTimeout = 25 * time.Second
	}
	if o.ImageTimeout <= 0 {
		o.ImageTimeout = 55 * time.Second
	}
	return &Client{
		baseURL:      strings.TrimRight(o.BaseURL, "/"),
		imageURL:     strings.TrimRight(o.ImageURL, "/"),
		apiKey:       o.APIKey,
		httpClient:   &http.Client{Timeout: o.Timeout},
		anchorClient: &http.Client{Timeout: o.AnchorTimeout},
		imageClient:  &http.Client{Timeout: o.ImageTimeout},
		Stats:        NewStats(time.Hour),
	}
}

// Task identifies the user and task a call is made on behalf of.
type Task struct {
	ID          string
	User        string
	Description string
}

// NewTask builds a Task whose user is derived from the task id.
func NewTask(id, description string) Task {
	return Task{ID: id, User: UserFromTask(id), Description: description}
}

// UserFromTask returns the part of a task id before the first underscore.
func UserFromTask(taskID string) string {
	user, _, _ := strings.Cut(taskID, "_")
	return user
}

// post sends in as JSON to url and decodes the response into out. Latency
// is recorded under op.
func (c *Client) post(ctx context.Context, hc *http.Client, op, url string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", op, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := hc.Do(httpReq)
	c.Stats.Record(op, time.Since(start).Milliseconds())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return &RetryableError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s status %d: %s", op, resp.StatusCode, truncate(string(respBody), 200))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return &MalformedError{Op: op, Raw: truncate(string(respBody), 200), Err: err}
	}
	return nil
}

func (c *Client) url(path string) string { return c.baseURL + path }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	Op         string
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("%s: retryable error (status %d): %s", e.Op, e.StatusCode, truncate(e.Message, 200))
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
	c.anchorClient.CloseIdleConnections()
	c.imageClient.CloseIdleConnections()
}
