package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mcoot/d2r-multiplay/internal/api/apierr"
)

// Client is an HTTP client for the daemon API
type Client struct {
	baseURL      string
	token        string
	httpClient   *http.Client
	// streamClient has no overall timeout; streams end with their context
	streamClient *http.Client
}

// NewClient creates a new API client. Choosing a notification action can
// retry a launch on the server, so the timeout matches the agent's.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 6 * time.Minute,
		},
		streamClient: &http.Client{},
	}
}

// APIError is an error response from the daemon
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// Do performs an HTTP request and decodes a JSON result. It reports the
// response status so callers can tell 200 from 204.
func (c *Client) Do(ctx context.Context, method, path string, body, result any) (int, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return resp.StatusCode, errorFromBody(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, path string, result any) error {
	_, err := c.Do(ctx, http.MethodGet, path, nil, result)
	return err
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	_, err := c.Do(ctx, http.MethodPost, path, body, result)
	return err
}

// Put performs a PUT request
func (c *Client) Put(ctx context.Context, path string, body, result any) error {
	_, err := c.Do(ctx, http.MethodPut, path, body, result)
	return err
}

// Patch performs a PATCH request
func (c *Client) Patch(ctx context.Context, path string, body, result any) error {
	_, err := c.Do(ctx, http.MethodPatch, path, body, result)
	return err
}

// Delete performs a DELETE request
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.Do(ctx, http.MethodDelete, path, nil, nil)
	return err
}

// Stream reads the Server-Sent Events at path, calling fn for each event
// until ctx is cancelled, the server ends the stream, or fn fails
func (c *Client) Stream(ctx context.Context, path string, fn func(name string, data []byte) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	c.authorize(req)

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return errorFromBody(resp.StatusCode, body)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	var name string
	var data []byte
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			if len(data) > 0 {
				data = append(data, '\n')
			}
			data = append(data, strings.TrimPrefix(line, "data: ")...)
		case line == "":
			if name != "" {
				if err := fn(name, data); err != nil {
					return err
				}
			}
			name, data = "", nil
		}
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("stream failed: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func errorFromBody(status int, body []byte) error {
	var errResp apierr.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
		return &APIError{Status: status, Code: errResp.Error.Code, Message: errResp.Error.Message}
	}
	return fmt.Errorf("HTTP %d: %s", status, string(body))
}
