package errors

import "net/http"

// ErrorKind is the surface-level error classification returned to a Router
// caller, independent of the wire-level LLMError.Type string used for
// per-provider messages.
type ErrorKind string

const (
	KindBadRequest             ErrorKind = "BadRequest"
	KindUnauthorized           ErrorKind = "Unauthorized"
	KindNotFound               ErrorKind = "NotFound"
	KindRateLimited            ErrorKind = "RateLimited"
	KindTimeout                ErrorKind = "Timeout"
	KindServiceUnavailable     ErrorKind = "ServiceUnavailable"
	KindInternalServerError    ErrorKind = "InternalServerError"
	KindContextWindowExceeded  ErrorKind = "ContextWindowExceeded"
	KindContentPolicyViolation ErrorKind = "ContentPolicyViolation"
	KindNoDeploymentsAvailable ErrorKind = "NoDeploymentsAvailable"
	KindBudgetExceeded         ErrorKind = "BudgetExceeded"
	KindCancelled              ErrorKind = "Cancelled"
	KindCacheMiss              ErrorKind = "CacheMiss"
	KindDBUnavailable          ErrorKind = "DBUnavailable"
)

// Retriability names how a retriable-class error should be retried.
type Retriability string

const (
	// RetryNone means the error is terminal: surface to the caller, no retry.
	RetryNone Retriability = "none"
	// RetrySame means retry the same deployment after a backoff (429).
	RetrySame Retriability = "same"
	// RetryOther means cool the deployment down and try the next candidate.
	RetryOther Retriability = "other"
)

// KindFromStatus maps an HTTP status code and LLMError.Type to an ErrorKind,
// per spec.md §7. Type disambiguates the two kinds that share a status code
// with BadRequest (context-length-exceeded, content-policy-violation).
func KindFromStatus(statusCode int, errType string) ErrorKind {
	switch errType {
	case TypeContextLength:
		return KindContextWindowExceeded
	case TypeContentPolicy:
		return KindContentPolicyViolation
	}

	switch statusCode {
	case http.StatusBadRequest:
		return KindBadRequest
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusTooManyRequests:
		return KindRateLimited
	case http.StatusRequestTimeout:
		return KindTimeout
	case http.StatusServiceUnavailable:
		return KindServiceUnavailable
	}
	if statusCode >= 500 {
		return KindInternalServerError
	}
	return KindBadRequest
}

// Classify returns whether an ErrorKind is transient (should penalize
// deployment latency in MetricsRecorder) and how it should be retried by
// internal/retry.Engine, per spec.md §4.7/§7's classification table.
func Classify(kind ErrorKind) (transient bool, retry Retriability) {
	switch kind {
	case KindRateLimited:
		return true, RetrySame
	case KindTimeout, KindServiceUnavailable, KindInternalServerError:
		return true, RetryOther
	case KindUnauthorized, KindNotFound:
		// Deployment misconfigured, not a request problem: transient from
		// the selector's point of view (penalize + cool down), but the
		// underlying cause won't resolve itself on the same deployment.
		return true, RetryOther
	case KindBadRequest, KindContextWindowExceeded, KindContentPolicyViolation,
		KindBudgetExceeded, KindCancelled:
		return false, RetryNone
	default:
		return false, RetryNone
	}
}

// ClassifyError derives the ErrorKind and retry policy directly from an
// LLMError, the common case at provider-call boundaries.
func ClassifyError(err *LLMError) (kind ErrorKind, transient bool, retry Retriability) {
	kind = KindFromStatus(err.HTTPStatusCode(), err.Type)
	transient, retry = Classify(kind)
	return kind, transient, retry
}
