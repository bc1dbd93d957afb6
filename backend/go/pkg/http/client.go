package http

import (
	"fmt"
	"net/http"
	"time"

	"scale/backend/go/internal/config"
	"scale/backend/go/pkg/circuitbreaker"
)

// Client is a custom HTTP client that wraps the standard http.Client
// and provides built-in support for circuit breaking. The summarizer uses
// it for transcript fetches so that a flapping upstream trips the breaker
// instead of being hammered on every task.
type Client struct {
	httpClient *http.Client
	breaker    circuitbreaker.CircuitBreaker
}

// NewClient creates a new Client with a circuit breaker configured.
func NewClient(cfg config.CircuitBreakerConfig) (*Client, error) {
	if !cfg.Enabled {
		// Without a breaker, fall back to a plain client with a sane timeout.
		return &Client{httpClient: &http.Client{Timeout: 30 * time.Second}}, nil
	}

	timeout, err := time.ParseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid circuit breaker timeout %q: %w", cfg.Timeout, err)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		breaker:    circuitbreaker.New(cfg.FailureThreshold, cfg.SuccessThreshold, timeout),
	}, nil
}

// Do executes an HTTP request with circuit breaker protection.
// It considers status codes >= 500 as failures.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if c.breaker == nil {
		return c.httpClient.Do(req)
	}

	var resp *http.Response

	_, breakerErr := c.breaker.Execute(func() (interface{}, error) {
		var err error
		resp, err = c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		// Treat server-side errors as failures for the circuit breaker.
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("server error: received status code %d", resp.StatusCode)
		}

		return resp, nil
	})

	if breakerErr != nil {
		return nil, breakerErr
	}

	return resp, nil
}
