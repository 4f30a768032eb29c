// In file: internal/llm/helpers.go
package llm

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// requestFactory builds a fresh request for every attempt so the body can be
// re-read on retry.
type requestFactory func(ctx context.Context) (*http.Request, error)

// doWithRetry performs an HTTP call with exponential backoff. Network errors
// and 5xx responses are retried; 4xx responses fail immediately.
func doWithRetry(ctx context.Context, httpClient *http.Client, delay time.Duration, provider string, newRequest requestFactory) ([]byte, error) {
	var lastErr error
	for i := 0; i < maxRetries; i++ {
		req, err := newRequest(ctx)
		if err != nil {
			return nil, err
		}

		resp, err := httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s request failed (attempt %d/%d): %w", provider, i+1, maxRetries, err)
			log.Println(lastErr)
			if !sleepCtx(ctx, delay) {
				return nil, ctx.Err()
			}
			delay *= 2
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: Failed to close %s response body: %v", provider, err)
		}
		if readErr != nil {
			return nil, fmt.Errorf("failed to read %s response body: %w", provider, readErr)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return body, nil
		}

		lastErr = fmt.Errorf("%s API error (attempt %d/%d): status %d, body: %s", provider, i+1, maxRetries, resp.StatusCode, string(body))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return nil, lastErr
		}
		if !sleepCtx(ctx, delay) {
			return nil, ctx.Err()
		}
		delay *= 2
	}
	return nil, lastErr
}

// sleepCtx waits for d, returning false if ctx is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
