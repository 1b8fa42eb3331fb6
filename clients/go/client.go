package rivetsum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client is a rivetsum HTTP client
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new rivetsum client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Result is the server's answer to a checksum request
type Result struct {
	Kind           string `json:"kind"`
	State          uint32 `json:"state"`
	Value          uint32 `json:"value"`
	Hex            string `json:"hex"`
	Implementation string `json:"implementation"`
	Bytes          int    `json:"bytes"`
}

// StatusError is returned for non-2xx responses
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server error (%d): %s", e.Code, e.Message)
}

// Checksum folds data into state on the server. A nil state starts from the
// empty-stream value of kind.
func (c *Client) Checksum(ctx context.Context, kind string, data []byte, state *uint32) (*Result, error) {
	path := "/v1/checksum/" + url.PathEscape(kind)
	if state != nil {
		path += "?state=" + strconv.FormatUint(uint64(*state), 10)
	}

	var result Result
	if err := c.doRequest(ctx, "POST", path, data, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Implementations returns the implementation each checksum kind resolved to
func (c *Client) Implementations(ctx context.Context) (map[string]string, error) {
	var impls map[string]string
	if err := c.doRequest(ctx, "GET", "/v1/implementations", nil, &impls); err != nil {
		return nil, err
	}
	return impls, nil
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) error {
	return c.doRequest(ctx, "GET", "/healthz", nil, nil)
}

// doRequest performs an HTTP request with a raw body
func (c *Client) doRequest(ctx context.Context, method, path string, body []byte, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		msg := string(respBody)
		if json.Unmarshal(respBody, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Code: resp.StatusCode, Message: msg}
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
