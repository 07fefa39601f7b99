// Package errors provides the standardized error taxonomy for tuition checkout
// requests and its mapping onto HTTP responses.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Validation errors
const (
	ErrCodeMissingIdentifier    ErrorCode = "MISSING_IDENTIFIER"
	ErrCodeInvalidRequest       ErrorCode = "INVALID_REQUEST"
	ErrCodeInvalidAmount        ErrorCode = "INVALID_AMOUNT"
	ErrCodeAmountBelowMinimum   ErrorCode = "AMOUNT_BELOW_MINIMUM"
	ErrCodeAmountExceedsBalance ErrorCode = "AMOUNT_EXCEEDS_BALANCE"
	ErrCodeBalanceUnavailable   ErrorCode = "BALANCE_UNAVAILABLE"
	ErrCodeNoBalanceDue         ErrorCode = "NO_BALANCE_DUE"
)

// Not-found results
const (
	ErrCodeDealNotFound      ErrorCode = "DEAL_NOT_FOUND"
	ErrCodeContactNotFound   ErrorCode = "CONTACT_NOT_FOUND"
	ErrCodeNoDealsForContact ErrorCode = "NO_DEALS_FOR_CONTACT"
)

// Configuration and upstream errors
const (
	ErrCodeConfiguration    ErrorCode = "CONFIGURATION_ERROR"
	ErrCodeCRMAPIError      ErrorCode = "CRM_API_ERROR"
	ErrCodeCheckoutAPIError ErrorCode = "CHECKOUT_API_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = map[string]interface{}{}
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message, details string) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewMissingIdentifierError reports a checkout request without a deal id.
func NewMissingIdentifierError() *StandardError {
	return newError(ErrCodeMissingIdentifier, "A dealId is required to start a payment", "")
}

// NewInvalidRequestError reports query parameters that failed schema validation.
func NewInvalidRequestError(details string) *StandardError {
	return newError(ErrCodeInvalidRequest, "Invalid request parameters", details)
}

// NewValidationError creates a client-facing validation error with a specific reason.
func NewValidationError(code ErrorCode, message string) *StandardError {
	return newError(code, message, "")
}

// NewDealNotFoundError reports a deal id unknown to the CRM.
func NewDealNotFoundError(dealID string) *StandardError {
	return newError(ErrCodeDealNotFound, "We could not find that enrollment", fmt.Sprintf("dealId: %s", dealID))
}

// NewContactNotFoundError reports an email with no matching CRM contact.
func NewContactNotFoundError(email string) *StandardError {
	return newError(ErrCodeContactNotFound, "We could not find an account for that email address", fmt.Sprintf("email: %s", email))
}

// NewNoDealsForContactError reports a contact without any enrollments.
func NewNoDealsForContactError(contactID string) *StandardError {
	return newError(ErrCodeNoDealsForContact, "No enrollments are associated with that email address", fmt.Sprintf("contactId: %s", contactID))
}

// NewConfigurationError reports missing credentials for a collaborator.
func NewConfigurationError(details string) *StandardError {
	return newError(ErrCodeConfiguration, "Payment service is not configured", details)
}

// NewCRMAPIError wraps a failed CRM round trip.
func NewCRMAPIError(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCRMAPIError,
		Message:   "CRM request failed",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCheckoutAPIError wraps a failed checkout-session creation.
func NewCheckoutAPIError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCheckoutAPIError,
		Message:   "Checkout session could not be created",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInternalError wraps an unexpected failure.
func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err.Error())
}

// ==========================
// 3. HTTP Mapping
// ==========================

// HTTPStatus returns the response status for an error code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeMissingIdentifier,
		ErrCodeInvalidRequest,
		ErrCodeInvalidAmount,
		ErrCodeAmountBelowMinimum,
		ErrCodeAmountExceedsBalance,
		ErrCodeBalanceUnavailable,
		ErrCodeNoBalanceDue:
		return http.StatusBadRequest

	case ErrCodeDealNotFound,
		ErrCodeContactNotFound,
		ErrCodeNoDealsForContact:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// ==========================
// 4. Utility Functions
// ==========================

// Normalize ensures we always have a StandardError.
func Normalize(err error) *StandardError {
	if err == nil {
		return nil
	}
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr
	}
	return NewInternalError(err)
}

// IsUserFacing reports whether the message may be shown verbatim to the customer.
func IsUserFacing(code ErrorCode) bool {
	return HTTPStatus(code) < http.StatusInternalServerError
}

// IsNotFound reports whether err is one of the not-found results.
func IsNotFound(err error) bool {
	stdErr := Normalize(err)
	return stdErr != nil && HTTPStatus(stdErr.Code) == http.StatusNotFound
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.Contains(codeStr, "CONFIGURATION"):
		return "CONFIGURATION"
	case strings.Contains(codeStr, "NOT_FOUND") || strings.Contains(codeStr, "NO_DEALS"):
		return "NOT_FOUND"
	case strings.Contains(codeStr, "CRM") || strings.Contains(codeStr, "CHECKOUT"):
		return "UPSTREAM"
	case HTTPStatus(code) == http.StatusBadRequest:
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
