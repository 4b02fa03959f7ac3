// Package domain defines the core domain models for TradeGate.
package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// DomainError represents a business domain error with a structured error code.
//
// Codes follow the format TG-<AREA>-<NNNN>. The first three digits of the
// numeric part are the HTTP status the error maps to.
type DomainError struct {
	Code    string // Error code (e.g., "TG-AUTH-4013")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// HTTPStatus returns the HTTP status encoded in the error code.
func (e *DomainError) HTTPStatus() int {
	return StatusFromCode(e.Code)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// StatusFromCode maps an error code to its HTTP status.
// Codes that do not carry a valid status map to 500.
func StatusFromCode(code string) int {
	if len(code) < 4 {
		return http.StatusInternalServerError
	}
	n, err := strconv.Atoi(code[len(code)-4:])
	if err != nil {
		return http.StatusInternalServerError
	}
	status := n / 10
	if status < 400 || status > 599 || http.StatusText(status) == "" {
		return http.StatusInternalServerError
	}
	return status
}

// ============================================================================
// Authentication Errors (AUTH)
// ============================================================================

var (
	// ErrUnauthenticated is the only authentication error shown to clients.
	ErrUnauthenticated = NewDomainError("TG-AUTH-4010", "authentication required")

	// ErrInvalidSignature indicates the token signature does not verify.
	ErrInvalidSignature = NewDomainError("TG-AUTH-4011", "invalid token signature")

	// ErrMalformedToken indicates the token or its claims cannot be decoded.
	ErrMalformedToken = NewDomainError("TG-AUTH-4012", "malformed token")

	// ErrTokenExpired indicates the token is past its expiry.
	ErrTokenExpired = NewDomainError("TG-AUTH-4013", "token expired")

	// ErrUnknownSubject indicates the token subject no longer exists.
	ErrUnknownSubject = NewDomainError("TG-AUTH-4014", "unknown token subject")

	// ErrInvalidCredentials indicates a failed login.
	ErrInvalidCredentials = NewDomainError("TG-AUTH-4015", "invalid email or password")

	// ErrAdminRequired indicates the caller is not an administrator.
	ErrAdminRequired = NewDomainError("TG-AUTH-4030", "admin role required")

	// ErrLoginThrottled indicates too many login attempts for one account.
	ErrLoginThrottled = NewDomainError("TG-AUTH-4290", "too many login attempts")
)

// ============================================================================
// User Errors (USER)
// ============================================================================

var (
	// ErrUserValidation indicates registration data is invalid.
	ErrUserValidation = NewDomainError("TG-USER-4001", "user validation failed")

	// ErrUserNotFound indicates the user does not exist.
	ErrUserNotFound = NewDomainError("TG-USER-4040", "user not found")

	// ErrUserConflict indicates the email is already registered.
	ErrUserConflict = NewDomainError("TG-USER-4090", "email already registered")
)

// ============================================================================
// Exchange Credential Errors (CRED)
// ============================================================================

var (
	// ErrCredentialValidation indicates the credential payload is invalid.
	ErrCredentialValidation = NewDomainError("TG-CRED-4001", "credential validation failed")

	// ErrCredentialNotFound indicates the credential does not exist for the caller.
	ErrCredentialNotFound = NewDomainError("TG-CRED-4040", "credential not found")

	// ErrCredentialUnavailable indicates a stored credential could not be decrypted.
	ErrCredentialUnavailable = NewDomainError("TG-CRED-5001", "credential unavailable")
)

// ============================================================================
// Ledger Errors (LEDG)
// ============================================================================

var (
	// ErrTradeValidation indicates an order request is invalid.
	ErrTradeValidation = NewDomainError("TG-LEDG-4001", "trade validation failed")
)

// ============================================================================
// Webhook Errors (HOOK)
// ============================================================================

var (
	// ErrWebhookPayload indicates the signal body is not a valid signal.
	ErrWebhookPayload = NewDomainError("TG-HOOK-4001", "invalid signal payload")

	// ErrWebhookSignature indicates the X-Signature header does not match.
	ErrWebhookSignature = NewDomainError("TG-HOOK-4010", "invalid webhook signature")
)

// ============================================================================
// Request Defense Errors (SEC)
// ============================================================================

var (
	// ErrInvalidHeaders indicates the request headers failed validation.
	ErrInvalidHeaders = NewDomainError("TG-SEC-4000", "invalid security headers")

	// ErrIdentityBlocked indicates the client identity is on the blocklist.
	ErrIdentityBlocked = NewDomainError("TG-SEC-4030", "identity blocked")

	// ErrInjectionDetected indicates a request matched an injection heuristic.
	ErrInjectionDetected = NewDomainError("TG-SEC-4031", "attack attempt detected")

	// ErrBlockNotFound indicates the identity is not on the blocklist.
	ErrBlockNotFound = NewDomainError("TG-SEC-4040", "identity not blocked")

	// ErrRateLimited indicates the identity exceeded its request window.
	ErrRateLimited = NewDomainError("TG-SEC-4290", "too many requests")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrBadRequest indicates a malformed request.
	ErrBadRequest = NewDomainError("TG-SYS-4000", "bad request")

	// ErrNotFound indicates no route matches the request.
	ErrNotFound = NewDomainError("TG-SYS-4040", "not found")

	// ErrPayloadTooLarge indicates the request body exceeds the size limit.
	ErrPayloadTooLarge = NewDomainError("TG-SYS-4130", "request body too large")

	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("TG-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("TG-SYS-5001", "storage error")

	// ErrServiceUnavailable indicates the service is temporarily unavailable.
	ErrServiceUnavailable = NewDomainError("TG-SYS-5030", "service unavailable")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("TG-ARG-4001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("TG-ARG-4002", "missing required argument")
)
