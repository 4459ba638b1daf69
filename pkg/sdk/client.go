// Package sdk is a small Go client for the coursemap HTTP API.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Course mirrors the API course payload.
type Course struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	TitleEN        string  `json:"title_en"`
	Difficulty     string  `json:"difficulty"`
	Duration       int     `json:"duration"`
	Price          int     `json:"price"`
	CurrencyCode   string  `json:"currency_code"`
	Learners       int     `json:"pupils_num"`
	Author         string  `json:"authors"`
	Rating         float64 `json:"rating"`
	URL            string  `json:"url"`
	Description    string  `json:"description"`
	Summary        string  `json:"summary"`
	TargetAudience string  `json:"target_audience"`
	AcquiredSkills string  `json:"acquired_skills"`
	AcquiredAssets string  `json:"acquired_assets"`
	LearningFormat string  `json:"learning_format"`
}

// SearchRequest is the learning profile submitted for a roadmap.
type SearchRequest struct {
	Area            string `json:"area"`
	CurrentLevel    string `json:"current_level"`
	DesiredSkills   string `json:"desired_skills"`
	TimeBudgetHours *int   `json:"hours,omitempty"`
	CostBudget      *int   `json:"cost,omitempty"`
}

// HealthReport is the aggregated health response.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("coursemap: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// Client calls the coursemap API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New creates a client for the API at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Search requests a course roadmap for the given profile.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Course, error) {
	var courses []Course
	if err := c.do(ctx, http.MethodPost, "/courses/search", req, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}

// ReloadCatalog triggers a background catalog re-ingestion. recreate drops
// and rebuilds the index first.
func (c *Client) ReloadCatalog(ctx context.Context, recreate bool) error {
	path := "/catalog/reload"
	if recreate {
		path += "?recreate=true"
	}
	return c.do(ctx, http.MethodPost, path, nil, nil)
}

// Health fetches the aggregated health report.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	var report HealthReport
	if err := c.do(ctx, http.MethodGet, "/health", nil, &report); err != nil {
		return HealthReport{}, err
	}
	return report, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("coursemap: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("coursemap: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("coursemap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("coursemap: decode response: %w", err)
		}
	}
	return nil
}
