// internal/github/retry.go
package github

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/go-github/v62/github"
)

// withRetry runs fn with exponential backoff. Rate limit responses (403/429),
// abuse limits, 5xx and transport errors are retried; everything else is
// returned immediately. fn runs at most MaxRetries times.
func (c *Client) withRetry(ctx context.Context, op string, fn func() (*github.Response, error)) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.opts.RetryInitialInterval
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.opts.MaxRetries-1)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		_, err := fn()
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return backoff.Permanent(err)
		}

		if wait := rateLimitWait(err); wait > 0 {
			c.logger.Warn("Rate limit reached, waiting for reset", "op", op, "wait", wait.Truncate(time.Millisecond))
			timer := time.NewTimer(wait)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			case <-timer.C:
			}
		}

		c.logger.Warn("GitHub request failed, retrying", "op", op, "attempt", attempt, "status", statusOf(err), "error", err)
		return err
	}, policy)
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) {
		return true
	}

	switch status := statusOf(err); {
	case status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	case status != 0:
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// rateLimitWait returns how long GitHub asked us to wait before the next call.
func rateLimitWait(err error) time.Duration {
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return time.Until(rateErr.Rate.Reset.Time)
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.RetryAfter != nil {
		return *abuseErr.RetryAfter
	}
	return 0
}

// statusOf extracts the HTTP status code carried by a go-github error, or 0.
func statusOf(err error) int {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		return errResp.Response.StatusCode
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) && rateErr.Response != nil {
		return rateErr.Response.StatusCode
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return abuseErr.Response.StatusCode
	}
	return 0
}
