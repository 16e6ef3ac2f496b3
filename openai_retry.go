package dailyai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog/log"
)

// retryPolicy controls how rate limited OpenAI calls are retried
type retryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// llmRetry is used by every OpenAI call in this package
var llmRetry = retryPolicy{
	MaxRetries: 5,
	BaseDelay:  5 * time.Second,
	MaxDelay:   120 * time.Second,
}

// NewOpenAIClient creates a client for the configured OpenAI compatible endpoint.
// Retries are handled by retryPolicy, so the client's own retries are disabled.
func NewOpenAIClient() openai.Client {
	return openai.NewClient(
		option.WithAPIKey(Config.OpenAIAPIKey),
		option.WithBaseURL(Config.OpenAIBaseURL),
		option.WithMaxRetries(0),
	)
}

// parseRetryAfter reads a Retry-After value given either as (possibly
// fractional) seconds or as an HTTP date. Unknown or past values give 0.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if secs, err := strconv.ParseFloat(value, 64); err == nil && !math.IsNaN(secs) && !math.IsInf(secs, 0) {
		return max(time.Duration(secs*float64(time.Second)), 0)
	}
	if at, err := http.ParseTime(value); err == nil {
		return max(time.Until(at), 0)
	}
	return 0
}

// delay returns how long to wait before the next attempt. A positive
// Retry-After wins over exponential backoff; both are capped at MaxDelay.
func (p retryPolicy) delay(attempt int, retryAfter time.Duration) time.Duration {
	d := retryAfter
	if d <= 0 {
		d = p.BaseDelay * time.Duration(1<<attempt) // 5s, 10s, 20s, 40s, 80s
	}
	return min(d, p.MaxDelay)
}

// do runs call until it succeeds, fails with something other than HTTP 429,
// runs out of retries, or ctx is done.
func (p retryPolicy) do(ctx context.Context, what string, call func() error) error {
	for attempt := 0; ; attempt++ {
		err := call()

		var apiErr *openai.Error
		if err == nil || !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
			return err
		}
		if attempt == p.MaxRetries {
			return fmt.Errorf("%s: rate limit exceeded after %d retries: %w", what, p.MaxRetries, err)
		}

		retryAfter := ""
		if apiErr.Response != nil {
			retryAfter = apiErr.Response.Header.Get("Retry-After")
		}
		wait := p.delay(attempt, parseRetryAfter(retryAfter))
		log.Warn().Str("call", what).Int("attempt", attempt+1).Int("max_attempts", p.MaxRetries+1).
			Dur("retry_in", wait).Str("retry_after", retryAfter).Msg("rate limit hit, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
