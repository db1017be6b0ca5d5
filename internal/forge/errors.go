package forge

import "errors"

// RateLimitError reports that the hosting API's request quota is exhausted.
// It is fatal: the build cannot proceed until the quota resets or the user
// authenticates for a higher limit.
type RateLimitError struct {
	// Resource names the exhausted quota category (core, graphql, ...).
	Resource string
}

// Error implements the error interface with remediation guidance, since the
// fix (wait or authenticate) is on the user's side.
func (e *RateLimitError) Error() string {
	msg := "GitHub API rate limit exceeded"
	if e.Resource != "" {
		msg += " (" + e.Resource + ")"
	}
	return msg + ": try again later or authenticate by setting GITHUB_TOKEN. " +
		"See https://docs.github.com/en/rest/using-the-rest-api/rate-limits-for-the-rest-api"
}

// IsRateLimit reports whether err is, or wraps, a rate-limit error.
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
