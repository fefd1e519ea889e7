// Package rest implements the HTTP client for the AppHub API contract. It is
// the transport half of the client synchronization core: typed calls per
// endpoint, a bounded per-request timeout, and error classification that lets
// callers distinguish transient network failures from server verdicts.
package rest

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
	"time"

	"go.uber.org/zap"
)

// defaultTimeout bounds every request so loading flags cannot stay stuck on
// an unresponsive server.
const defaultTimeout = 10 * time.Second

var errMissingBaseURL = errors.New("rest: base url is required")

// APIError is a failure verdict carried in an HTTP response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("rest: server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("rest: %s (status %d)", e.Message, e.StatusCode)
}

// TransportError wraps a failure that produced no HTTP response.
type TransportError struct {
	err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rest: request failed: %v", e.err)
}

func (e *TransportError) Unwrap() error {
	return e.err
}

// Config describes the dependencies for the API client.
type Config struct {
	// BaseURL is the API root including the version prefix, e.g.
	// "http://localhost:8080/api/v1".
	BaseURL    string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client issues typed calls against the AppHub REST contract.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient validates the configuration and constructs a Client.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errMissingBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

// ListApps fetches applications, optionally narrowed by search text and
// tech-stack intersection.
func (c *Client) ListApps(ctx context.Context, query AppsQuery) ([]App, error) {
	values := url.Values{}
	if strings.TrimSpace(query.Search) != "" {
		values.Set("search", query.Search)
	}
	for _, entry := range query.TechStack {
		values.Add("techStack", entry)
	}

	var records []App
	if err := c.do(ctx, http.MethodGet, "/apps", values, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetApp fetches a single application by identifier.
func (c *Client) GetApp(ctx context.Context, id string) (App, error) {
	var record App
	if err := c.do(ctx, http.MethodGet, "/apps/"+url.PathEscape(id), nil, nil, &record); err != nil {
		return App{}, err
	}
	return record, nil
}

// CreateApp submits a draft; the returned record is the server's
// authoritative copy.
func (c *Client) CreateApp(ctx context.Context, draft AppDraft) (App, error) {
	var record App
	if err := c.do(ctx, http.MethodPost, "/apps", nil, draft, &record); err != nil {
		return App{}, err
	}
	return record, nil
}

// UpdateApp submits a partial patch; omitted fields are preserved server-side.
func (c *Client) UpdateApp(ctx context.Context, id string, patch AppPatch) (App, error) {
	var record App
	if err := c.do(ctx, http.MethodPut, "/apps/"+url.PathEscape(id), nil, patch, &record); err != nil {
		return App{}, err
	}
	return record, nil
}

// DeleteApp removes an application.
func (c *Client) DeleteApp(ctx context.Context, id string) error {
	var result DeleteResult
	return c.do(ctx, http.MethodDelete, "/apps/"+url.PathEscape(id), nil, nil, &result)
}

// ListFeedback fetches feedback, optionally narrowed by app, status, or type.
func (c *Client) ListFeedback(ctx context.Context, query FeedbackQuery) ([]Feedback, error) {
	values := url.Values{}
	if strings.TrimSpace(query.AppID) != "" {
		values.Set("appId", query.AppID)
	}
	if query.Status != "" {
		values.Set("status", query.Status)
	}
	if query.Type != "" {
		values.Set("type", query.Type)
	}

	var records []Feedback
	if err := c.do(ctx, http.MethodGet, "/feedback", values, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetFeedback fetches a single feedback record by identifier.
func (c *Client) GetFeedback(ctx context.Context, id string) (Feedback, error) {
	var record Feedback
	if err := c.do(ctx, http.MethodGet, "/feedback/"+url.PathEscape(id), nil, nil, &record); err != nil {
		return Feedback{}, err
	}
	return record, nil
}

// CreateFeedback submits a draft; the returned record carries the
// server-assigned defaults.
func (c *Client) CreateFeedback(ctx context.Context, draft FeedbackDraft) (Feedback, error) {
	var record Feedback
	if err := c.do(ctx, http.MethodPost, "/feedback", nil, draft, &record); err != nil {
		return Feedback{}, err
	}
	return record, nil
}

// UpdateFeedback submits a partial patch.
func (c *Client) UpdateFeedback(ctx context.Context, id string, patch FeedbackPatch) (Feedback, error) {
	var record Feedback
	if err := c.do(ctx, http.MethodPut, "/feedback/"+url.PathEscape(id), nil, patch, &record); err != nil {
		return Feedback{}, err
	}
	return record, nil
}

// VoteFeedback adjusts the vote count and returns the authoritative record,
// which may differ from the caller's expectation when concurrent votes landed
// first.
func (c *Client) VoteFeedback(ctx context.Context, id string, increment int64) (Feedback, error) {
	body := map[string]int64{"increment": increment}
	var record Feedback
	if err := c.do(ctx, http.MethodPost, "/feedback/"+url.PathEscape(id)+"/vote", nil, body, &record); err != nil {
		return Feedback{}, err
	}
	return record, nil
}

// DeleteFeedback removes a feedback record.
func (c *Client) DeleteFeedback(ctx context.Context, id string) error {
	var result DeleteResult
	return c.do(ctx, http.MethodDelete, "/feedback/"+url.PathEscape(id), nil, nil, &result)
}

// CheckHealth probes the health endpoint.
func (c *Client) CheckHealth(ctx context.Context) (Health, error) {
	var health Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &health); err != nil {
		return Health{}, err
	}
	return health, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("rest: build request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		c.logger.Debug("request transport failure",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return &TransportError{err: err}
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return &TransportError{err: err}
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return &APIError{
			StatusCode: response.StatusCode,
			Message:    decodeErrorMessage(payload),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("rest: decode response body: %w", err)
	}
	return nil
}

func decodeErrorMessage(payload []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	return body.Error
}
