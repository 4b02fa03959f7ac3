package defense

import (
	"net/http"

	"github.com/yndnr/tradegate-go/internal/core/domain"
)

// Reason identifies why a request was denied.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonBlocked
	ReasonRateLimited
	ReasonInvalidHeaders
	ReasonInjectionDetected
)

// String returns the reason label used in logs and metrics.
func (r Reason) String() string {
	switch r {
	case ReasonBlocked:
		return "blocked"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonInvalidHeaders:
		return "invalid_headers"
	case ReasonInjectionDetected:
		return "injection_detected"
	default:
		return "none"
	}
}

// Err returns the domain error clients receive for this reason.
func (r Reason) Err() *domain.DomainError {
	switch r {
	case ReasonBlocked:
		return domain.ErrIdentityBlocked
	case ReasonRateLimited:
		return domain.ErrRateLimited
	case ReasonInvalidHeaders:
		return domain.ErrInvalidHeaders
	case ReasonInjectionDetected:
		return domain.ErrInjectionDetected
	default:
		return domain.ErrInternalServer
	}
}

// Status returns the HTTP status for this reason.
func (r Reason) Status() int {
	if r == ReasonNone {
		return http.StatusOK
	}
	return r.Err().HTTPStatus()
}

// Code returns the error code for this reason.
func (r Reason) Code() string {
	return r.Err().Code
}

// Verdict is the outcome of evaluating a request.
type Verdict struct {
	Allowed bool
	Reason  Reason
	Detail  string // Human-readable detail, safe to return to the client
	Stage   string // Name of the deciding stage (set by Pipeline on deny)
}

// Allow returns an allowing verdict.
func Allow() Verdict {
	return Verdict{Allowed: true}
}

// Deny returns a denying verdict.
func Deny(reason Reason, detail string) Verdict {
	return Verdict{Reason: reason, Detail: detail}
}
