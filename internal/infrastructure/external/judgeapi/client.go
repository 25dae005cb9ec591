// Package judgeapi implements the HTTP client for online judge feed APIs.
// One Client instance serves one judge; it satisfies the judge.FeedSource
// contract and carries its own rate limiting, retries, and circuit breaking.
package judgeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cphub/cp-training-hub/internal/domain/judge"
	"github.com/cphub/cp-training-hub/internal/domain/shared"
	"github.com/cphub/cp-training-hub/pkg/circuitbreaker"
	"github.com/cphub/cp-training-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for one judge feed client.
type ClientConfig struct {
	// Name is the judge identifier matched against subject handles.
	Name string

	// BaseURL is the feed API base URL.
	BaseURL string

	// APIKey authenticates requests when the judge requires it.
	APIKey string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// RateLimiterConfig throttles outgoing requests.
	RateLimiterConfig RateLimiterConfig

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults for a judge.
func DefaultClientConfig(name, baseURL string) ClientConfig {
	return ClientConfig{
		Name:              name,
		BaseURL:           baseURL,
		Timeout:           30 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to one judge feed API.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.CircuitBreaker
	retrier     *retry.Retrier
	mapper      *Mapper
}

// NewClient creates a judge feed client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger:      config.Logger.With("judge", config.Name),
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breaker:     circuitbreaker.New("judge-"+config.Name, circuitbreaker.WithTimeout(time.Minute)),
		retrier:     retry.JudgeRetrier(),
		mapper:      NewMapper(),
	}
}

// Name implements judge.FeedSource.
func (c *Client) Name() string {
	return c.config.Name
}

// SolvedProblems implements judge.FeedSource: it fetches the handle's full
// submission history page by page and reduces it to the solved problem set.
func (c *Client) SolvedProblems(ctx context.Context, handle string) ([]judge.SolvedProblem, error) {
	var all []SubmissionDTO
	page := 1
	const perPage = 500

	for {
		batch, err := c.fetchSubmissions(ctx, handle, page, perPage)
		if err != nil {
			return nil, fmt.Errorf("judge %s: %w", c.config.Name, err)
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
		page++
	}

	solved := c.mapper.SolvedFromSubmissions(all)
	c.logger.Debug("fetched solved problems",
		"handle", handle, "submissions", len(all), "solved", len(solved))
	return solved, nil
}

// fetchSubmissions loads one page of the handle's submissions with rate
// limiting, circuit breaking, and retries.
func (c *Client) fetchSubmissions(ctx context.Context, handle string, page, perPage int) ([]SubmissionDTO, error) {
	params := url.Values{}
	params.Set("handle", handle)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	path := "/api/submissions?" + params.Encode()

	var result []SubmissionDTO
	err := c.retrier.Do(ctx, func(ctx context.Context) error {
		if err := c.rateLimiter.Allow(ctx); err != nil {
			return retry.Permanent(fmt.Errorf("rate limiter: %w", err))
		}
		return c.breaker.Execute(ctx, func(ctx context.Context) error {
			batch, err := c.doRequest(ctx, path)
			if err != nil {
				return err
			}
			result = batch
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
			return nil, shared.WrapError("judge", "SolvedProblems", shared.ErrServiceUnavailable, "circuit open", err)
		}
		return nil, err
	}
	return result, nil
}

// doRequest performs one HTTP call and classifies the outcome for the retry
// layer: rate limits and server errors are retryable, malformed responses and
// client errors are permanent.
func (c *Client) doRequest(ctx context.Context, path string) ([]SubmissionDTO, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("http request: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Retryable(fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.rateLimiter.Drain()
		return nil, retry.Retryable(shared.ErrJudgeRateLimited)

	case resp.StatusCode >= 500:
		return nil, retry.Retryable(shared.WrapError("judge", "Request", shared.ErrServiceUnavailable,
			fmt.Sprintf("status %d", resp.StatusCode), shared.ErrJudgeUnavailable))

	case resp.StatusCode >= 400:
		var apiErr APIErrorDTO
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return nil, retry.Permanent(&apiErr)
		}
		return nil, retry.Permanent(fmt.Errorf("judge api: status %d", resp.StatusCode))
	}

	var envelope APIResponse[[]SubmissionDTO]
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, retry.Permanent(shared.WrapError("judge", "Parse", shared.ErrExternalService,
			"malformed response body", err))
	}
	if !envelope.OK() {
		return nil, retry.Permanent(shared.WrapError("judge", "Parse", shared.ErrExternalService,
			envelope.Comment, shared.ErrJudgeInvalidResponse))
	}
	return envelope.Result, nil
}

// IsHealthy probes the feed with a minimal request.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
