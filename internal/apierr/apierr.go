// Package apierr defines the error taxonomy shared by the order
// pipeline and the HTTP layer, so every rejection carries a stable
// kind and status code instead of being inferred from message text.
package apierr

import "net/http"

// Kind classifies an Error for HTTP status mapping and metrics.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindEngineRejection
	KindRiskRejection
	KindRateLimited
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindNotFound:
		return "NOT_FOUND"
	case KindEngineRejection:
		return "ENGINE_REJECTION"
	case KindRiskRejection:
		return "RISK_REJECTION"
	case KindRateLimited:
		return "RATE_LIMITED"
	case KindInternal:
		return "INTERNAL"
	default:
		return "UNKNOWN"
	}
}

// HTTPStatus maps a Kind to the status code the HTTP layer returns.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindEngineRejection:
		return http.StatusConflict
	case KindRiskRejection:
		return http.StatusUnprocessableEntity
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// Error is the structured error carried through the order pipeline.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

func Validation(msg string) *Error      { return &Error{Kind: KindValidation, Message: msg} }
func NotFound(msg string) *Error        { return &Error{Kind: KindNotFound, Message: msg} }
func EngineRejection(msg string) *Error { return &Error{Kind: KindEngineRejection, Message: msg} }
func RiskRejection(msg string) *Error   { return &Error{Kind: KindRiskRejection, Message: msg} }
func RateLimited(msg string) *Error     { return &Error{Kind: KindRateLimited, Message: msg} }

func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Cause: cause}
}

// As extracts an *Error from err, wrapping it as internal if err is of
// an unrecognized type so callers always get a Kind to switch on.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok {
		return e
	}
	return Internal("unexpected error", err)
}
