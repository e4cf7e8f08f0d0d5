package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/mixtape/internal/shared"
)

const (
	defaultMaxRetries = 3
	defaultBackoff    = 500 * time.Millisecond
	maxRetryAfter     = 30 * time.Second
)

// doWithRetry sends the request built by newReq, retrying transport errors, 429 and 5xx responses.
//
// The delay doubles per attempt unless the response carries Retry-After.
// The final retryable response is returned to the caller unread.
func (s *SpotifyService) doWithRetry(ctx context.Context, client *http.Client, newReq func() (*http.Request, error)) (*http.Response, error) {
	attempts := max(s.maxRetries, 1)

	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: request canceled: %v", shared.ErrAPIRequest, err)
		}

		req, err := newReq()
		if err != nil {
			return nil, err
		}

		resp, err := client.Do(req)
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, fmt.Errorf("%w: token refresh failed: %v", shared.ErrTokenExpired, re)
		}

		retryAfter, retry := shouldRetry(resp, err)
		if !retry || attempt == attempts-1 {
			if err != nil {
				return nil, fmt.Errorf("%w: request failed after %d attempts: %v", shared.ErrAPIRequest, attempt+1, err)
			}
			return resp, nil
		}

		if err != nil {
			s.logger.Warn("retrying spotify request", "attempt", attempt+1, "of", attempts, "error", err)
		} else {
			s.logger.Warn("retrying spotify request", "attempt", attempt+1, "of", attempts, "status", resp.StatusCode)
			resp.Body.Close()
		}

		backoff := s.baseBackoff * time.Duration(1<<attempt)
		if retryAfter > 0 {
			backoff = retryAfter
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return nil, err
		}
	}

	return nil, fmt.Errorf("%w: request failed after %d attempts", shared.ErrAPIRequest, attempts)
}

func shouldRetry(resp *http.Response, err error) (time.Duration, bool) {
	if err != nil {
		return 0, true
	}
	if resp == nil {
		return 0, false
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()), true
	}

	return 0, false
}

// parseRetryAfter reads delay-seconds or an HTTP date, capped at 30s.
func parseRetryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}

	var d time.Duration
	if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
		d = time.Duration(seconds) * time.Second
	} else if when, err := http.ParseTime(v); err == nil {
		d = when.Sub(now)
	}

	if d <= 0 {
		return 0
	}
	return min(d, maxRetryAfter)
}

func sleepWithContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: request canceled: %v", shared.ErrAPIRequest, ctx.Err())
	case <-timer.C:
		return nil
	}
}
