package llm

import (
	"errors"
	"regexp"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrMalformed indicates the model returned empty or undecodable output.
var ErrMalformed = errors.New("malformed model output")

// RateLimitError signals a transient upstream rate-limit condition. The raw
// upstream message is kept private; callers only see a sanitized wait hint.
type RateLimitError struct {
	upstream string
}

func (e *RateLimitError) Error() string {
	return "model provider rate limited"
}

// WaitHint extracts a human-readable wait estimate from the upstream error
// text via a bounded pattern match, falling back to a generic hint.
func (e *RateLimitError) WaitHint() string {
	return parseWaitHint(e.upstream)
}

// NewRateLimitError wraps raw upstream rate-limit text. Used by tests and by
// the client's error classifier.
func NewRateLimitError(upstream string) *RateLimitError {
	return &RateLimitError{upstream: upstream}
}

// IsRateLimited reports whether err is a transient rate-limit condition that
// the failover policy should absorb.
func IsRateLimited(err error) bool {
	var rateLimited *RateLimitError
	return errors.As(err, &rateLimited)
}

// waitHintPattern matches "30s", "2 minutes", "1 hour" style durations.
// Bounded on purpose: digits plus a time-unit suffix, nothing fancier.
var waitHintPattern = regexp.MustCompile(`(?i)(\d+)\s*(seconds?|secs?|s|minutes?|mins?|m|hours?|h)\b`)

func parseWaitHint(upstream string) string {
	match := waitHintPattern.FindStringSubmatch(upstream)
	if match == nil {
		return "try again later"
	}

	unit := strings.ToLower(match[2])
	switch unit[0] {
	case 's':
		unit = "seconds"
	case 'm':
		unit = "minutes"
	case 'h':
		unit = "hours"
	}
	if match[1] == "1" {
		unit = strings.TrimSuffix(unit, "s")
	}
	return "retry in about " + match[1] + " " + unit
}

// classify converts an upstream client error into the pipeline taxonomy.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 {
			return &RateLimitError{upstream: apiErr.Message}
		}
		return err
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == 429 {
		return &RateLimitError{upstream: reqErr.Error()}
	}

	// Some gateways report limits as plain text without an HTTP 429.
	if strings.Contains(strings.ToLower(err.Error()), "rate limit") {
		return &RateLimitError{upstream: err.Error()}
	}

	return err
}

// MaskCredential renders a credential safe for internal logs: a short prefix
// and suffix only. The full value must never reach logs or API responses.
func MaskCredential(credential string) string {
	if len(credential) <= 8 {
		return "****"
	}
	return credential[:3] + "…" + credential[len(credential)-4:]
}
