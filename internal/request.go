package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	ErrNonOkResponse     = errors.New("non-OK response")
	ErrEmptyResponseBody = errors.New("empty response body")
	ErrNonJSONContent    = errors.New("non-JSON content type")
)

// Server endpoints, relative to the configured base URL.
const (
	pathFirst     = "/first"
	pathUpdate    = "/update"
	pathTelemetry = "/telemetry"
)

// Client talks to the tracking server. It only performs I/O and decoding; it never touches the
// track store.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. Each request is cancelled after timeout.
func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    httpClient,
	}
}

// First fetches the full picture including position histories.
func (c *Client) First(ctx context.Context) (Snapshot, error) {
	return c.snapshot(ctx, pathFirst)
}

// Update fetches the current state of all live tracks.
func (c *Client) Update(ctx context.Context) (Snapshot, error) {
	return c.snapshot(ctx, pathUpdate)
}

// Telemetry fetches the server's health report.
func (c *Client) Telemetry(ctx context.Context) (Telemetry, error) {
	body, err := c.sendRequest(ctx, c.baseURL+pathTelemetry)
	if err != nil {
		return Telemetry{}, fmt.Errorf("Telemetry: error during request: %w", err)
	}
	return DecodeTelemetry(body)
}

func (c *Client) snapshot(ctx context.Context, path string) (Snapshot, error) {
	body, err := c.sendRequest(ctx, c.baseURL+path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot %s: error during request: %w", path, err)
	}
	return DecodeSnapshot(body)
}

// sendRequest sends an HTTP GET request and returns a valid byte slice of the response body.
func (c *Client) sendRequest(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if reqErr != nil {
		return nil, fmt.Errorf("sendRequest: invalid request error: %s : %w", url, reqErr)
	}
	req.Header.Set("Accept", "application/json")

	resp, respErr := c.http.Do(req)
	if respErr != nil {
		return nil, fmt.Errorf("sendRequest: failed to send GET request: %s: %w", url, respErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sendRequest: %w %s", ErrNonOkResponse, resp.Status)
	}

	body, bodyErr := io.ReadAll(resp.Body)
	if bodyErr != nil {
		return nil, fmt.Errorf("sendRequest: failed to read response body: %w", bodyErr)
	}

	if len(body) == 0 {
		return nil, fmt.Errorf("sendRequest: %w", ErrEmptyResponseBody)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, fmt.Errorf("sendRequest: %w, %s", ErrNonJSONContent, contentType)
	}

	return body, nil
}
