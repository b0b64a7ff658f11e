package testgen

import "errors"

var (
	// ErrConfiguration indicates a missing or unusable API key. Fatal, no retry.
	ErrConfiguration = errors.New("provider configuration invalid")

	// ErrAuth indicates the provider rejected the credentials.
	ErrAuth = errors.New("provider authentication failed")

	// ErrRateLimited indicates the provider throttled the call.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrContentPolicy indicates the provider blocked the content.
	ErrContentPolicy = errors.New("content blocked by provider policy")

	// ErrModelUnavailable indicates a candidate model was not found or is
	// unavailable. Triggers fallback to the next candidate; only surfaced when
	// every candidate is exhausted.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrEmptyResponse indicates the provider returned no text.
	ErrEmptyResponse = errors.New("empty response from provider")

	// ErrMalformedResponse indicates provider output that could not be parsed
	// into test cases even after recovery.
	ErrMalformedResponse = errors.New("malformed provider response")

	// ErrUpload indicates a tracker write failure. Creates up to the failure
	// point are not rolled back.
	ErrUpload = errors.New("test case upload failed")

	ErrInvalidInput = errors.New("invalid input")
)

// AbortsRun reports whether an error must stop the remaining categories of a
// generation run instead of continuing with the next one. Auth, rate-limit and
// content-policy failures are not per-category problems: retrying the next
// category would hit the same wall.
func AbortsRun(err error) bool {
	return errors.Is(err, ErrAuth) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrContentPolicy) ||
		errors.Is(err, ErrConfiguration)
}
