// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the Entrez client.
package httputil

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// RetryBaseDelay controls the base duration for exponential backoff.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 500 * time.Millisecond

const defaultMaxRetries = 3

// retryableStatus reports whether a response status is worth retrying.
// Rate limiting and transient upstream failures qualify; everything else,
// including 414 (Request-URI Too Long), is returned to the caller untouched.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// DoWithRetry executes an HTTP request and retries transport errors and
// retryable statuses (429, 502, 503, 504) with exponential backoff. The
// delay starts at RetryBaseDelay and doubles each attempt.
//
// maxRetries is the number of additional attempts after the first; zero
// means a single attempt and a negative value selects the default (3). On
// each retryable response the body is drained and closed before sleeping.
// If the context is cancelled during a backoff wait the function returns
// ctx.Err(). After exhausting retries the last response is returned so the
// caller can inspect it, or the last transport error is wrapped and
// propagated.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries < 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}

		// Exhausted retries: surface whatever the last attempt produced.
		if attempt >= maxRetries {
			if err != nil {
				return nil, fmt.Errorf("after %d attempts: %w", attempt+1, err)
			}
			return resp, nil
		}

		// Drain and close the body before retrying.
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		backoff := time.Duration(math.Pow(2, float64(attempt))) * RetryBaseDelay

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
}
