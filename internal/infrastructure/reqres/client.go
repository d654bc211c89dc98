// Package reqres is a client for the reqres.in style users REST API.
package reqres

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/lllypuk/useradmin/internal/domain/user"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	maxErrorBodyBytes  = 512

	operationList   = "list"
	operationDelete = "delete"
)

// RequestObserver receives the timing and outcome of each API round trip.
type RequestObserver interface {
	ObserveRequest(operation string, d time.Duration, err error)
}

// Config contains configuration for Client.
type Config struct {
	// BaseURL is the API root, e.g. https://reqres.in/api.
	BaseURL string

	// UserAgent is sent on every request when set.
	UserAgent string

	// APIKey is sent as x-api-key when set.
	APIKey string

	// PerPage is sent as per_page on list requests; 0 leaves the API default.
	PerPage int

	// Timeout bounds each request when HTTPClient is nil.
	Timeout time.Duration

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client

	// Observer is optional.
	Observer RequestObserver
}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

// Client talks to the users collection of the remote API.
type Client struct {
	config     Config
	httpClient *http.Client
}

// listResponse is the envelope of GET /users. Paging fields are ignored.
type listResponse struct {
	Data []user.User `json:"data"`
}

// NewClient creates a new users API client.
func NewClient(config Config) *Client {
	httpClient := config.HTTPClient
	if httpClient == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	config.BaseURL = strings.TrimSuffix(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: httpClient,
	}
}

// ListUsers fetches the full user collection.
func (c *Client) ListUsers(ctx context.Context) ([]user.User, error) {
	reqURL := c.config.BaseURL + "/users"
	if c.config.PerPage > 0 {
		reqURL += "?" + url.Values{"per_page": []string{strconv.Itoa(c.config.PerPage)}}.Encode()
	}

	start := time.Now()
	users, err := c.listUsers(ctx, reqURL)
	c.observe(operationList, start, err)

	return users, err
}

func (c *Client) listUsers(ctx context.Context, reqURL string) ([]user.User, error) {
	req, err := c.newRequest(ctx, http.MethodGet, reqURL)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list users request failed: %w", err)
	}
	defer resp.Body.Close()

	if err = checkStatus(resp); err != nil {
		return nil, err
	}

	var body listResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&body); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode users response: %w", decodeErr)
	}

	if body.Data == nil {
		return []user.User{}, nil
	}
	return body.Data, nil
}

// DeleteUser removes one user. Any 2xx status is success and the body is ignored.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	reqURL := c.config.BaseURL + "/users/" + strconv.Itoa(id)

	start := time.Now()
	err := c.deleteUser(ctx, reqURL)
	c.observe(operationDelete, start, err)

	return err
}

func (c *Client) deleteUser(ctx context.Context, reqURL string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, reqURL)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete user request failed: %w", err)
	}
	defer resp.Body.Close()

	if err = checkStatus(resp); err != nil {
		return err
	}

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, reqURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.APIKey != "" {
		req.Header.Set("x-api-key", c.config.APIKey)
	}

	return req, nil
}

func (c *Client) observe(operation string, start time.Time, err error) {
	if c.config.Observer != nil {
		c.config.Observer.ObserveRequest(operation, time.Since(start), err)
	}
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	return &StatusError{
		Method:     resp.Request.Method,
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}
}
