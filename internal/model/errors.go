package model

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// ErrorCode is the stable, machine-readable code carried in every problem.
// The thousands digit groups codes: 1 auth, 2 access, 3 resources,
// 4 input, 5 server.
type ErrorCode int

const (
	ErrCodeUnauthorized ErrorCode = 1001
	ErrCodeTokenExpired ErrorCode = 1002
	ErrCodeTokenInvalid ErrorCode = 1003
	ErrCodeLoginFailed  ErrorCode = 1004

	ErrCodeForbidden    ErrorCode = 2001
	ErrCodeStaffOnly    ErrorCode = 2002
	ErrCodeNotPermitted ErrorCode = 2003

	ErrCodeNotFound      ErrorCode = 3001
	ErrCodeAlreadyExists ErrorCode = 3002
	ErrCodeConflict      ErrorCode = 3003
	ErrCodeCapacityFull  ErrorCode = 3004

	ErrCodeValidation    ErrorCode = 4001
	ErrCodeInvalidInput  ErrorCode = 4002
	ErrCodeLimitExceeded ErrorCode = 4003 // rate limited
	ErrCodeInvalidFilter ErrorCode = 4004

	ErrCodeInternal      ErrorCode = 5001
	ErrCodeDatabase      ErrorCode = 5002
	ErrCodeExternalAPI   ErrorCode = 5003
	ErrCodeNotConfigured ErrorCode = 5004
)

const problemTypeBase = "https://shepherd-api.forgo.software/errors/"

// ProblemDetails is an RFC 9457 problem document
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`

	Code    ErrorCode `json:"code,omitempty"`
	Limit   *int      `json:"limit,omitempty"`   // capacity problems only
	Current *int      `json:"current,omitempty"` // capacity problems only
}

// FieldError names one invalid request field by its JSON name
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (p *ProblemDetails) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

// WriteJSON sends the problem as application/problem+json
func (p *ProblemDetails) WriteJSON(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// WithCode narrows the default code, e.g. an expired token on a 401
func (p *ProblemDetails) WithCode(code ErrorCode) *ProblemDetails {
	p.Code = code
	return p
}

// problemKind is the fixed part of each problem type
type problemKind struct {
	slug   string
	title  string
	status int
	code   ErrorCode
}

var (
	kindUnauthorized  = problemKind{"unauthorized", "Unauthorized", http.StatusUnauthorized, ErrCodeUnauthorized}
	kindForbidden     = problemKind{"forbidden", "Forbidden", http.StatusForbidden, ErrCodeForbidden}
	kindNotFound      = problemKind{"not-found", "Not Found", http.StatusNotFound, ErrCodeNotFound}
	kindConflict      = problemKind{"conflict", "Conflict", http.StatusConflict, ErrCodeConflict}
	kindCapacity      = problemKind{"capacity-full", "Capacity Reached", http.StatusConflict, ErrCodeCapacityFull}
	kindValidation    = problemKind{"validation", "Validation Error", http.StatusUnprocessableEntity, ErrCodeValidation}
	kindBadRequest    = problemKind{"bad-request", "Bad Request", http.StatusBadRequest, ErrCodeInvalidInput}
	kindInvalidFilter = problemKind{"invalid-filter", "Invalid Filter", http.StatusBadRequest, ErrCodeInvalidFilter}
	kindRateLimited   = problemKind{"rate-limited", "Too Many Requests", http.StatusTooManyRequests, ErrCodeLimitExceeded}
	kindMethod        = problemKind{"method-not-allowed", "Method Not Allowed", http.StatusMethodNotAllowed, ErrCodeInvalidInput}
	kindInternal      = problemKind{"internal", "Internal Server Error", http.StatusInternalServerError, ErrCodeInternal}
	kindUpstream      = problemKind{"upstream", "Bad Gateway", http.StatusBadGateway, ErrCodeExternalAPI}
	kindUnconfigured  = problemKind{"not-configured", "Service Unavailable", http.StatusServiceUnavailable, ErrCodeNotConfigured}
)

func (k problemKind) with(detail string) *ProblemDetails {
	return &ProblemDetails{
		Type:   problemTypeBase + k.slug,
		Title:  k.title,
		Status: k.status,
		Detail: detail,
		Code:   k.code,
	}
}

func NewUnauthorizedError(detail string) *ProblemDetails { return kindUnauthorized.with(detail) }
func NewForbiddenError(detail string) *ProblemDetails    { return kindForbidden.with(detail) }
func NewConflictError(detail string) *ProblemDetails     { return kindConflict.with(detail) }
func NewBadRequestError(detail string) *ProblemDetails   { return kindBadRequest.with(detail) }
func NewInvalidFilterError(detail string) *ProblemDetails {
	return kindInvalidFilter.with(detail)
}
func NewBadGatewayError(detail string) *ProblemDetails { return kindUpstream.with(detail) }

// NewServiceUnavailableError reports an integration (Stripe, Resend, AI)
// that is not configured on this deployment
func NewServiceUnavailableError(detail string) *ProblemDetails {
	return kindUnconfigured.with(detail)
}

// NewNotFoundError takes the resource name, e.g. "prayer request"
func NewNotFoundError(resource string) *ProblemDetails {
	return kindNotFound.with(resource + " not found")
}

// NewValidationError summarises the first field error in Detail
func NewValidationError(errs []FieldError) *ProblemDetails {
	detail := "One or more fields failed validation"
	switch {
	case len(errs) == 1:
		detail = errs[0].Field + ": " + errs[0].Message
	case len(errs) > 1:
		detail = fmt.Sprintf("%s: %s (and %d more errors)", errs[0].Field, errs[0].Message, len(errs)-1)
	}
	p := kindValidation.with(detail)
	p.Errors = errs
	return p
}

// NewCapacityError reports that a shift or event has no room left
func NewCapacityError(resource string, limit, current int) *ProblemDetails {
	p := kindCapacity.with(fmt.Sprintf("%s is full (%d of %d filled)", resource, current, limit))
	p.Limit, p.Current = &limit, &current
	return p
}

func NewInternalError(detail string) *ProblemDetails {
	if detail == "" {
		detail = "An unexpected error occurred"
	}
	return kindInternal.with(detail)
}

func NewMethodNotAllowedError(allowed string) *ProblemDetails {
	return kindMethod.with(fmt.Sprintf("Only %s method is allowed", allowed))
}

func NewRateLimitError(retryAfter int) *ProblemDetails {
	return kindRateLimited.with(fmt.Sprintf("Rate limit exceeded. Retry after %d seconds", retryAfter))
}
