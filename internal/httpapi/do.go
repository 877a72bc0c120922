// Package httpapi sends requests to third-party REST APIs with retries.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrRateLimited is matched by StatusError values with status 429.
var ErrRateLimited = errors.New("rate limit exceeded")

// StatusError is a non-2xx API response.
type StatusError struct {
	Service string
	Status  int
	Body    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d: %s", e.Service, e.Status, e.Body)
}

// Is lets errors.Is match ErrRateLimited.
func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.Status == http.StatusTooManyRequests
}

// Retryable reports whether the status may succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// Policy controls retries.
type Policy struct {
	MaxTries        uint
	InitialInterval time.Duration
	MaxElapsedTime  time.Duration
	Notify          backoff.Notify
}

// DefaultPolicy makes up to four attempts starting at 500ms.
var DefaultPolicy = Policy{
	MaxTries:        4,
	InitialInterval: 500 * time.Millisecond,
	MaxElapsedTime:  2 * time.Minute,
}

// Do sends the request built by newReq and returns the response body.
// Network errors, 429 and 5xx are retried; other statuses fail immediately.
// newReq is called once per attempt so request bodies can be rebuilt.
func Do(ctx context.Context, client *http.Client, service string, newReq func(ctx context.Context) (*http.Request, error), p Policy) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if p.MaxTries > 0 {
		opts = append(opts, backoff.WithMaxTries(p.MaxTries))
	}
	if p.MaxElapsedTime > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxElapsedTime))
	}
	if p.Notify != nil {
		opts = append(opts, backoff.WithNotify(p.Notify))
	}

	return backoff.Retry(ctx, func() ([]byte, error) {
		req, err := newReq(ctx)
		if err != nil {
			return nil, backoff.Permanent(fmt.Errorf("%s: build request: %w", service, err))
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", service, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: read body: %w", service, err)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		statusErr := &StatusError{Service: service, Status: resp.StatusCode, Body: truncate(string(body), 500)}
		if statusErr.Retryable() {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}, opts...)
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
