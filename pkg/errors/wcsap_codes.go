package errors

import "net/http"

// W-CSAP domain error codes. These are the stable, client-visible codes
// enumerated by the authentication core, carried by WCSAPError on top of
// BaseError (errors.go).
const (
	CodeChallengeNotFound    = "CHALLENGE_NOT_FOUND"
	CodeChallengeExpired     = "CHALLENGE_EXPIRED"
	CodeInvalidSignature     = "INVALID_SIGNATURE"
	CodeSessionExpired       = "SESSION_EXPIRED"
	CodeSessionNotFound      = "SESSION_NOT_FOUND"
	CodeInvalidSessionToken  = "INVALID_SESSION_TOKEN"
	CodeInvalidRefreshToken  = "INVALID_REFRESH_TOKEN"
	CodeWCSAPRateLimit       = "RATE_LIMIT_EXCEEDED"
	CodeInvalidWalletAddress = "INVALID_WALLET_ADDRESS"
	CodeWCSAPUnauthorized    = "UNAUTHORIZED"
	CodeWCSAPInternal        = "INTERNAL_ERROR"
	CodeWCSAPConfig          = "CONFIGURATION_ERROR"
	CodeStepUpRequired       = "STEP_UP_REQUIRED"
	CodeScopeDenied          = "SCOPE_DENIED"
	CodeDPoPRequired         = "DPOP_REQUIRED"
	CodeDPoPInvalid          = "DPOP_INVALID"
	CodeProofOfWorkRequired  = "PROOF_OF_WORK_REQUIRED"
	CodeProofOfWorkInvalid   = "PROOF_OF_WORK_INVALID"
)

// WCSAPError is the typed error the authentication core raises. The HTTP
// adapter maps it 1:1 onto the wire error envelope: it never leaks which
// internal sub-check failed (format vs MAC vs expiry) beyond Message.
type WCSAPError struct {
	*BaseError
	HTTPStatus int
	Field      string
	Details    map[string]interface{}
}

// NewWCSAPError builds a WCSAPError with an explicit HTTP status
// (400 validation, 401 auth, 403 scope, 404 not found, 429 limit,
// 500 internal).
func NewWCSAPError(code string, httpStatus int, message string) *WCSAPError {
	return &WCSAPError{
		BaseError: &BaseError{
			code:    code,
			message: message,
			stack:   captureStack(1),
		},
		HTTPStatus: httpStatus,
	}
}

// WithField attaches the offending request field to a validation error.
func (e *WCSAPError) WithField(field string) *WCSAPError {
	e.Field = field
	return e
}

// WithDetails attaches non-sensitive structured details to the envelope.
func (e *WCSAPError) WithDetails(details map[string]interface{}) *WCSAPError {
	e.Details = details
	return e
}

// WithCause attaches the underlying cause for internal logging. It is
// rendered by Error(), never by Message() or the client-facing
// envelope.
func (e *WCSAPError) WithCause(cause error) *WCSAPError {
	e.cause = cause
	return e
}

// Convenience constructors for the stable error codes. A missing and an
// expired challenge each have their own code; ErrInvalidSignature and
// ErrInvalidSessionToken are generic: the caller never learns which
// sub-check (format, MAC, signature or expiry) failed.
func ErrChallengeNotFound() *WCSAPError {
	return NewWCSAPError(CodeChallengeNotFound, http.StatusNotFound, "challenge not found")
}

func ErrChallengeExpired() *WCSAPError {
	return NewWCSAPError(CodeChallengeExpired, http.StatusUnauthorized, "challenge expired")
}

func ErrInvalidSignature() *WCSAPError {
	return NewWCSAPError(CodeInvalidSignature, http.StatusUnauthorized, "signature verification failed")
}

func ErrSessionExpired() *WCSAPError {
	return NewWCSAPError(CodeSessionExpired, http.StatusUnauthorized, "session expired")
}

func ErrSessionNotFound() *WCSAPError {
	return NewWCSAPError(CodeSessionNotFound, http.StatusUnauthorized, "session not found")
}

func ErrInvalidSessionToken() *WCSAPError {
	return NewWCSAPError(CodeInvalidSessionToken, http.StatusUnauthorized, "invalid session token")
}

func ErrInvalidRefreshToken() *WCSAPError {
	return NewWCSAPError(CodeInvalidRefreshToken, http.StatusUnauthorized, "invalid refresh token")
}

func ErrWCSAPRateLimited(retryAfterSeconds int) *WCSAPError {
	e := NewWCSAPError(CodeWCSAPRateLimit, http.StatusTooManyRequests, "rate limit exceeded")
	return e.WithDetails(map[string]interface{}{"retry_after": retryAfterSeconds})
}

func ErrInvalidWalletAddress(addr string) *WCSAPError {
	return NewWCSAPError(CodeInvalidWalletAddress, http.StatusBadRequest, "invalid wallet address").WithField("wallet_address")
}

func ErrWCSAPUnauthorized(message string) *WCSAPError {
	if message == "" {
		message = "unauthorized"
	}
	return NewWCSAPError(CodeWCSAPUnauthorized, http.StatusUnauthorized, message)
}

func ErrWCSAPInternal(message string) *WCSAPError {
	if message == "" {
		message = "internal error"
	}
	return NewWCSAPError(CodeWCSAPInternal, http.StatusInternalServerError, message)
}

func ErrWCSAPConfig(message string) *WCSAPError {
	return NewWCSAPError(CodeWCSAPConfig, http.StatusInternalServerError, message)
}

func ErrStepUpRequired(operation, riskLevel string) *WCSAPError {
	e := NewWCSAPError(CodeStepUpRequired, http.StatusForbidden, "step-up authentication required")
	return e.WithDetails(map[string]interface{}{"operation": operation, "risk_level": riskLevel})
}

func ErrScopeDenied(scope string) *WCSAPError {
	return NewWCSAPError(CodeScopeDenied, http.StatusForbidden, "insufficient scope").WithField(scope)
}

func ErrDPoPRequired() *WCSAPError {
	return NewWCSAPError(CodeDPoPRequired, http.StatusUnauthorized, "DPoP proof required")
}

func ErrDPoPInvalid(message string) *WCSAPError {
	if message == "" {
		message = "DPoP proof invalid"
	}
	return NewWCSAPError(CodeDPoPInvalid, http.StatusUnauthorized, message)
}

func ErrProofOfWorkRequired() *WCSAPError {
	return NewWCSAPError(CodeProofOfWorkRequired, http.StatusTooManyRequests, "proof-of-work challenge required")
}

func ErrProofOfWorkInvalid() *WCSAPError {
	return NewWCSAPError(CodeProofOfWorkInvalid, http.StatusBadRequest, "proof-of-work solution invalid")
}
