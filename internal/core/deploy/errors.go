package deploy

import (
	"errors"
	"unicode/utf8"

	"blogsmith/internal/domain"
)

// maxErrorLen bounds what gets persisted as a deployment's last_error.
const maxErrorLen = 1000

var (
	ErrNotRetryable = errors.New("deployment is not in a retryable state")
	ErrNotReady     = errors.New("deployment is not ready for hosting")
)

// UserMessage translates a pipeline failure into the sentence shown to the
// user. Pure function over the structured error fields.
func UserMessage(err error) string {
	var pe *domain.PipelineError
	if !errors.As(err, &pe) {
		return "Deployment failed unexpectedly. Please retry."
	}

	switch pe.Kind {
	case domain.KindConfig:
		if errors.Is(pe.Err, domain.ErrMissingCredential) || errors.Is(pe.Err, domain.ErrCredentialsNotFound) {
			return "Required credentials are missing. Add them in settings and retry."
		}
		return "The provider rejected the request. Check your settings and site name, then retry."
	case domain.KindConflict:
		return "The repository changed while we were writing to it. Retry to pick up the new state."
	case domain.KindTransient:
		return "A temporary problem occurred talking to the provider. Retry in a moment."
	default:
		return "Deployment failed unexpectedly. Please retry."
	}
}

// formatLastError builds the persisted diagnostic: the user-facing message
// with the raw operation detail appended, truncated to the stored bound.
// Stack-trace-like dumps never reach the record.
func formatLastError(err error) string {
	msg := UserMessage(err)

	var pe *domain.PipelineError
	if errors.As(err, &pe) {
		msg += " [" + pe.Error() + "]"
	}

	return truncate(msg, maxErrorLen)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
