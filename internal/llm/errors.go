package llm

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrContentFiltered marks a completion rejected by the provider's
// content safety layer. The gateway retries once with a neutralized
// prompt before substituting RefusalText.
var ErrContentFiltered = errors.New("content rejected by provider safety filter")

// RefusalText is substituted for completions the provider refuses even
// after neutralization, so the pipeline can continue.
const RefusalText = "Unable to provide a response for this prompt."

// RateLimitError is returned by providers on a rate-limit rejection and
// by the gateway once retries are exhausted. Wait carries the parsed or
// estimated time to wait before trying again.
type RateLimitError struct {
	Wait time.Duration
	Err  error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded (retry after %s): %v", e.Wait, e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// retryAfterPattern matches provider messages like
// "Rate limit reached ... Please try again in 1m22.08s."
var retryAfterPattern = regexp.MustCompile(`try again in ((?:\d+h)?(?:\d+m)?\d+(?:\.\d+)?s)`)

// ParseRetryAfter extracts an explicit wait duration from a provider
// error message. Returns false when the message encodes none.
func ParseRetryAfter(msg string) (time.Duration, bool) {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0, false
	}
	d, err := time.ParseDuration(m[1])
	if err != nil {
		return 0, false
	}
	return d, true
}

// isRateLimit reports whether the error is a rate-limit rejection.
func isRateLimit(err error) bool {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "429")
}

// isContentFiltered reports whether the error is a content-safety
// rejection.
func isContentFiltered(err error) bool {
	if errors.Is(err, ErrContentFiltered) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "content_filter") ||
		strings.Contains(msg, "content management policy") ||
		strings.Contains(msg, "content policy")
}
