package domain

import (
	"fmt"
	"strings"
	"time"
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
	ErrCodeKnowledgeBase  = "KNOWLEDGE_BASE_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents malformed input, such as an unknown enum value.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// KnowledgeBaseError lists every integrity violation found while building a
// knowledge base. It unwraps to ErrCorruptKnowledgeBase.
type KnowledgeBaseError struct {
	Violations []string `json:"violations"`
}

// Error implements the error interface
func (e *KnowledgeBaseError) Error() string {
	return fmt.Sprintf("%s: %s", ErrCorruptKnowledgeBase, strings.Join(e.Violations, "; "))
}

// Unwrap allows errors.Is(err, ErrCorruptKnowledgeBase).
func (e *KnowledgeBaseError) Unwrap() error {
	return ErrCorruptKnowledgeBase
}

// Addf records a violation.
func (e *KnowledgeBaseError) Addf(format string, args ...interface{}) {
	e.Violations = append(e.Violations, fmt.Sprintf(format, args...))
}

// OrNil returns e when it holds violations, nil otherwise.
func (e *KnowledgeBaseError) OrNil() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
