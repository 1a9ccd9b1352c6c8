// Package gateway is the seam where a real trade-execution and account
// service would attach. In dry-run mode (the default) every call logs and
// resolves successfully without touching the network.
package gateway

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"perfect-traders-go/internal/config"
	"perfect-traders-go/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client talks to the external execution/account service.
type Client struct {
	client  *resty.Client
	dryRun  bool
	logger  *zap.Logger
	limiter *rate.Limiter
}

// NewClient creates a gateway client from configuration.
func NewClient(cfg *config.Gateway, logger *zap.Logger) *Client {
	log := logger.Named("gateway")
	if cfg.DryRun {
		log.Info("Gateway running in dry-run mode, calls resolve locally")
	} else {
		log.Info("Gateway targeting external service", zap.String("base_url", cfg.BaseURL))
	}

	return &Client{
		client:  resty.New().SetBaseURL(cfg.BaseURL),
		dryRun:  cfg.DryRun,
		logger:  log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst),
	}
}

// SubmitOrder reports an executed fill to the external service.
func (c *Client) SubmitOrder(ctx context.Context, record models.TradeRecord) error {
	if c.dryRun {
		c.logger.Info("[Dry Run] Order submitted",
			zap.String("id", record.ID),
			zap.String("symbol", record.Symbol),
			zap.String("side", record.Side))
		return nil
	}

	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(record)

	if _, err := c.doRequest(ctx, "POST", "/orders", req); err != nil {
		return fmt.Errorf("failed to submit order %s: %w", record.ID, err)
	}
	return nil
}

// RegisterAccount reports a new signup to the external service.
func (c *Client) RegisterAccount(ctx context.Context, email string) error {
	if c.dryRun {
		c.logger.Info("[Dry Run] Account registered", zap.String("email", email))
		return nil
	}

	req := c.client.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"email": email})

	if _, err := c.doRequest(ctx, "POST", "/accounts", req); err != nil {
		return fmt.Errorf("failed to register account: %w", err)
	}
	return nil
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	var lastStatus string
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil && err == nil {
			statusCode := resp.StatusCode()
			lastStatus = resp.Status()
			if statusCode == http.StatusTooManyRequests {
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
	}
	return nil, fmt.Errorf("request failed after %d attempts, last status %s", maxRetries, lastStatus)
}
