package providerclients

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/http"
	"time"
)

// maxAttempts bounds the 429/5xx retry loop at 3 attempts (spec.md §4.2).
const maxAttempts = 3

const (
	backoffBase = 300 * time.Millisecond
	backoffMax  = 4 * time.Second
)

// doWithRetry executes build (which constructs a fresh *http.Request, since
// a request body can't be replayed across attempts) and retries on 429 or
// 5xx with exponential backoff, honoring Retry-After when present. A 401 is
// returned immediately wrapped in ErrUnauthorized so the caller can run
// tokenguard and retry the whole call with a fresh token; any other 4xx
// fails immediately without retry.
func doWithRetry(ctx context.Context, client *http.Client, build func() (*http.Request, error)) (*http.Response, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("providerclients: build request: %w", err)
		}

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			if !sleepBackoff(ctx, attempt, 0) {
				return nil, ctx.Err()
			}
			continue
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			resp.Body.Close()
			return nil, fmt.Errorf("%w: status 401", ErrUnauthorized)
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
			resp.Body.Close()
			lastErr = fmt.Errorf("providerclients: status %d", resp.StatusCode)
			if attempt == maxAttempts {
				break
			}
			if !sleepBackoff(ctx, attempt, retryAfter) {
				return nil, ctx.Err()
			}
			continue
		case resp.StatusCode >= 400:
			body := readAndClose(resp)
			return nil, fmt.Errorf("providerclients: status %d: %s", resp.StatusCode, body)
		default:
			return resp, nil
		}
	}
	return nil, fmt.Errorf("providerclients: exhausted %d attempts: %w", maxAttempts, lastErr)
}

func sleepBackoff(ctx context.Context, attempt int, retryAfter time.Duration) bool {
	delay := retryAfter
	if delay == 0 {
		exp := backoffBase << uint(attempt-1)
		if exp > backoffMax {
			exp = backoffMax
		}
		delay = exp/2 + time.Duration(rand.Int64N(int64(exp/2+1)))
	}
	select {
	case <-time.After(delay):
		return true
	case <-ctx.Done():
		return false
	}
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := time.ParseDuration(header + "s"); err == nil {
		return secs
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func readAndClose(resp *http.Response) string {
	defer resp.Body.Close()
	buf := make([]byte, 512)
	n, _ := resp.Body.Read(buf)
	return string(buf[:n])
}
