// Package validation provides input validation middleware and helpers for
// the scoring API.
package validation

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// MaxStringLength is the maximum length for free-form string fields
const MaxStringLength = 100

var (
	// merchantIDRegex validates merchant identifiers
	merchantIDRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-\.]{1,100}$`)
	// currencyRegex validates ISO 4217 alpha codes
	currencyRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)
	// countryRegex validates ISO 3166-1 alpha-2 codes
	countryRegex = regexp.MustCompile(`^[A-Za-z]{2}$`)
)

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidMerchantID checks if a string is an acceptable merchant identifier
func IsValidMerchantID(s string) bool {
	return merchantIDRegex.MatchString(s)
}

// IsValidCurrency checks if a string looks like an ISO 4217 currency code
func IsValidCurrency(s string) bool {
	return currencyRegex.MatchString(s)
}

// IsValidCountry checks if a string looks like an ISO 3166-1 alpha-2 code
func IsValidCountry(s string) bool {
	return countryRegex.MatchString(s)
}

// SanitizeString removes dangerous characters and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	s = strings.ReplaceAll(s, "\x00", "")
	return s
}

// ValidationError represents a single failed field check
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Field + ": " + e[0].Message
}

// Validate runs field validators and collects their errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errors ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errors = append(errors, *err)
		}
	}
	return errors
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "is required"}
		}
		return nil
	}
}

// ValidMerchantID checks the merchant identifier format. Empty values
// pass; use Required for required fields.
func ValidMerchantID(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidMerchantID(value) {
			return &ValidationError{Field: field, Message: "must be 1-100 alphanumeric, underscore, dash or dot characters"}
		}
		return nil
	}
}

// ValidCurrency checks the currency code format
func ValidCurrency(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidCurrency(value) {
			return &ValidationError{Field: field, Message: "must be a 3-letter ISO 4217 code"}
		}
		return nil
	}
}

// ValidCountry checks the country code format
func ValidCountry(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" {
			return nil
		}
		if !IsValidCountry(value) {
			return &ValidationError{Field: field, Message: "must be a 2-letter ISO 3166-1 code"}
		}
		return nil
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}
