// Package backend talks to the planned-meals REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/fdg312/meal-planner/internal/meal"
)

// APIError is a non-2xx backend response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend request failed with status %d", e.Status)
	}
	return fmt.Sprintf("backend request failed with status %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client for the backend at baseURL. Requests carry no
// timeout of their own; callers bound them through ctx.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MealsForDate returns the rows planned for one date (GET /meals/date/{date}).
func (c *Client) MealsForDate(ctx context.Context, date string) ([]meal.Row, error) {
	var rows []meal.Row
	if err := c.do(ctx, http.MethodGet, "/meals/date/"+url.PathEscape(date), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// AllMeals returns the full flat history (GET /meals/all).
func (c *Client) AllMeals(ctx context.Context) ([]meal.Row, error) {
	var rows []meal.Row
	if err := c.do(ctx, http.MethodGet, "/meals/all", nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Create inserts a planned meal and returns the stored row.
func (c *Client) Create(ctx context.Context, p meal.Payload) (meal.Row, error) {
	var row meal.Row
	if err := c.do(ctx, http.MethodPost, "/meals", p, &row); err != nil {
		return meal.Row{}, err
	}
	return row, nil
}

// Update replaces the planned meal with the given id.
func (c *Client) Update(ctx context.Context, id string, p meal.Payload) (meal.Row, error) {
	var row meal.Row
	if err := c.do(ctx, http.MethodPut, "/meals/"+url.PathEscape(id), p, &row); err != nil {
		return meal.Row{}, err
	}
	return row, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/meals/"+url.PathEscape(id), nil, nil)
}

// Healthz checks GET /healthz.
func (c *Client) Healthz(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil)
}

// Report downloads the analytics report in the given format (pdf|csv).
func (c *Client) Report(ctx context.Context, format string) ([]byte, string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/meals/report?format="+url.QueryEscape(format), nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read backend response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", apiError(resp.StatusCode, body)
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp.StatusCode, body)
	}

	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("malformed backend response: %w", err)
	}
	return nil
}

func apiError(status int, body []byte) error {
	var parsed struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &parsed)
	return &APIError{Status: status, Message: strings.TrimSpace(parsed.Message)}
}
