package randomuser

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	errs "useretl/pkg/errors"
	"useretl/pkg/logger"
	"useretl/pkg/metrics"
	"useretl/pkg/ratelimit"
	"useretl/pkg/retry"
)

// Options configures a Client. TransportOnly limits retries to network
// failures, so 429 and 5xx responses fail on the first attempt.
type Options struct {
	URL           string
	Timeout       time.Duration
	MaxAttempts   int
	Backoff       retry.BackoffStrategy
	Limiter       ratelimit.Limiter
	Logger        logger.Logger
	TransportOnly bool
}

// Client fetches single random user records
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	url        string
	retrier    *retry.Retrier
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

// NewClient creates a random user API client
func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	u, err := ValidateURL(opts.URL)
	if err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.Backoff == nil {
		opts.Backoff = &retry.ConstantBackoff{Delay: 5 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	retryIf := retry.DefaultRetryIf
	if opts.TransportOnly {
		retryIf = retry.TransportRetryIf
	}

	log := opts.Logger.WithField("component", "randomuser")
	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		headers: map[string]string{
			"User-Agent": "useretl/1.0",
			"Accept":     "application/json",
		},
		url: u,
		retrier: retry.NewRetrier(&retry.Config{
			MaxAttempts: opts.MaxAttempts,
			Backoff:     opts.Backoff,
			RetryIf:     retryIf,
			Logger:      log,
		}),
		limiter: opts.Limiter,
		logger:  log,
	}, nil
}

// FetchUser returns results[0] of one API response. Network failures, 429
// and 5xx responses (network failures only with TransportOnly) are retried
// up to the configured number of attempts; a body that cannot be decoded or
// carries no results fails immediately.
// The returned error is always a fetch error when the user is nil.
func (c *Client) FetchUser(ctx context.Context) (*User, error) {
	retrier := c.retrier.WithContext(ctx)

	var user *User
	err := retrier.Do(func() error {
		var fetchErr error
		user, fetchErr = c.fetchOnce(ctx)
		return fetchErr
	})
	if err != nil {
		if !errs.IsFetch(err) {
			err = errs.Fetch(errs.ErrorTypeUnknown, 0, "fetch aborted", err)
		}
		c.logger.DebugWithFields("fetch gave up", map[string]interface{}{
			"max_attempts": retrier.MaxAttempts(),
			"error":        err.Error(),
		})
		return nil, err
	}
	return user, nil
}

func (c *Client) fetchOnce(ctx context.Context) (*User, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	var response Response
	if err := c.getJSON(ctx, c.url, &response); err != nil {
		return nil, err
	}

	if len(response.Results) == 0 {
		msg := "response contained no results"
		if response.Error != "" {
			msg = response.Error
		}
		return nil, errs.Fetch(errs.ErrorTypeEmpty, http.StatusOK, msg, nil)
	}

	return &response.Results[0], nil
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	metrics.FetchDuration.Observe(duration.Seconds())

	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, errs.Fetch(errs.ErrorTypeNetwork, 0, "network error", err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// getJSON performs a GET request and decodes the JSON response into target
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return errs.Fetch(errs.ErrorTypeUnknown, 0, "failed to create request", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.FetchRequestsTotal.WithLabelValues("network_error").Inc()
		return errs.Fetch(errs.ErrorTypeNetwork, resp.StatusCode, "failed to read response body", err)
	}

	if err := json.Unmarshal(body, target); err != nil {
		metrics.FetchRequestsTotal.WithLabelValues("malformed").Inc()

		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errs.Fetch(errs.ErrorTypeMalformed, resp.StatusCode, "failed to parse JSON", err)
	}

	metrics.FetchRequestsTotal.WithLabelValues("ok").Inc()
	return nil
}

// checkResponseStatus maps non-2xx statuses onto typed fetch errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	errType := errs.TypeForStatus(resp.StatusCode)
	metrics.FetchRequestsTotal.WithLabelValues(string(errType)).Inc()

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	switch errType {
	case errs.ErrorTypeRateLimit:
		c.logger.WarnWithFields("rate limit exceeded", fields)
	case errs.ErrorTypeServerError:
		c.logger.WarnWithFields("server error", fields)
	default:
		c.logger.ErrorWithFields("unexpected API status", fields)
	}

	return errs.Fetch(errType, resp.StatusCode, fmt.Sprintf("unexpected status code: %d", resp.StatusCode), nil)
}
