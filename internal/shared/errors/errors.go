// Package errors provides application-level error types and utilities.
// Every error surfaced to an HTTP caller is an *AppError carrying its status code.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation_error"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeForbidden    ErrorType = "forbidden"
	ErrorTypeInternal     ErrorType = "internal_error"
	ErrorTypeBadRequest   ErrorType = "bad_request"

	// Access and billing failures.
	ErrorTypeInvalidPriceIdentifier      ErrorType = "invalid_price_identifier"
	ErrorTypeMissingBillingConfiguration ErrorType = "missing_billing_configuration"
	ErrorTypePortalCustomerNotFound      ErrorType = "portal_customer_not_found"
	ErrorTypeBillingProvider             ErrorType = "billing_provider_error"
	ErrorTypeSubscriptionFetch           ErrorType = "subscription_fetch_error"
	ErrorTypeAuthResolution              ErrorType = "auth_resolution_error"
)

// AppError represents an application error with additional context
type AppError struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Code    int       `json:"code"`
	Details string    `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause attaches the underlying error so errors.Is keeps working across layers.
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func newAppError(t ErrorType, code int, message string, details []string) *AppError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Type:    t,
		Message: message,
		Code:    code,
		Details: detail,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeValidation, http.StatusBadRequest, message, details)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeNotFound, http.StatusNotFound, message, details)
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, details)
}

// NewForbiddenError creates a new forbidden error
func NewForbiddenError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeForbidden, http.StatusForbidden, message, details)
}

// NewInternalError creates a new internal error
func NewInternalError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeInternal, http.StatusInternalServerError, message, details)
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, details ...string) *AppError {
	return newAppError(ErrorTypeBadRequest, http.StatusBadRequest, message, details)
}

// NewInvalidPriceIdentifierError is returned when a checkout names a price outside the allowlist.
func NewInvalidPriceIdentifierError(details ...string) *AppError {
	return newAppError(ErrorTypeInvalidPriceIdentifier, http.StatusBadRequest, "Invalid price identifier", details)
}

// NewMissingBillingConfigurationError is returned when the billing secret is absent.
func NewMissingBillingConfigurationError(details ...string) *AppError {
	return newAppError(ErrorTypeMissingBillingConfiguration, http.StatusServiceUnavailable, "Billing is not configured", details)
}

// NewPortalCustomerNotFoundError is returned when no billing customer matches the account email.
func NewPortalCustomerNotFoundError(details ...string) *AppError {
	return newAppError(ErrorTypePortalCustomerNotFound, http.StatusNotFound, "No billing account found for this user", details)
}

// NewBillingProviderError wraps a failed call to the billing provider. The
// message stays generic; provider detail only travels in Details.
func NewBillingProviderError(details ...string) *AppError {
	return newAppError(ErrorTypeBillingProvider, http.StatusBadGateway, "Billing request failed, please try again", details)
}

func NewSubscriptionFetchError(details ...string) *AppError {
	return newAppError(ErrorTypeSubscriptionFetch, http.StatusServiceUnavailable, "Subscription status is unavailable", details)
}

func NewAuthResolutionError(details ...string) *AppError {
	return newAppError(ErrorTypeAuthResolution, http.StatusUnauthorized, "Unable to resolve identity", details)
}

// IsAppError checks if the error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == t
}

// IsNotFoundError checks if the error is a not found error
func IsNotFoundError(err error) bool {
	return IsType(err, ErrorTypeNotFound)
}

// IsValidationError checks if the error is a validation error
func IsValidationError(err error) bool {
	return IsType(err, ErrorTypeValidation)
}
