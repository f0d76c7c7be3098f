package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeGraph represents graph store errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeIngest represents per-record ingestion errors
	ErrorTypeIngest ErrorType = "ingest"
	// ErrorTypeClassify represents classification model errors
	ErrorTypeClassify ErrorType = "classify"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Graph Errors

// ErrGraphConnectionFailed is returned when the store cannot be reached
type ErrGraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *ErrGraphConnectionFailed {
	return &ErrGraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to graph store: %s", uri), err),
		URI:       uri,
	}
}

// ErrGraphQueryFailed is returned when a store operation fails
type ErrGraphQueryFailed struct {
	*BaseError
	Operation string
	Retryable bool
}

func NewGraphQueryFailed(operation string, retryable bool, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", operation), err),
		Operation: operation,
		Retryable: retryable,
	}
}

// ErrGraphEndpointNotFound is returned when an edge merge matched no endpoint pair.
// Repeating the merge cannot change the outcome, so it is never retried.
type ErrGraphEndpointNotFound struct {
	*BaseError
	Relationship string
	Source       string
	Target       string
}

func NewGraphEndpointNotFound(relationship, source, target string) *ErrGraphEndpointNotFound {
	return &ErrGraphEndpointNotFound{
		BaseError:    NewBaseError(ErrorTypeGraph, fmt.Sprintf("no endpoints matched for %s (%s -> %s)", relationship, source, target), nil),
		Relationship: relationship,
		Source:       source,
		Target:       target,
	}
}

// Ingest Errors

// ErrIngestMalformedRecord is returned when an input record cannot be used at all
type ErrIngestMalformedRecord struct {
	*BaseError
	Ordinal int
}

func NewIngestMalformedRecord(ordinal int, reason string) *ErrIngestMalformedRecord {
	return &ErrIngestMalformedRecord{
		BaseError: NewBaseError(ErrorTypeIngest, fmt.Sprintf("record %d malformed: %s", ordinal, reason), nil),
		Ordinal:   ordinal,
	}
}

// Classify Errors

// ErrClassifyFailed is returned when the scoring model fails for one text
type ErrClassifyFailed struct {
	*BaseError
	Model     string
	Attempts  int
	Retryable bool
}

func NewClassifyFailed(model string, attempts int, retryable bool, err error) *ErrClassifyFailed {
	return &ErrClassifyFailed{
		BaseError: NewBaseError(ErrorTypeClassify, fmt.Sprintf("scoring failed after %d attempts", attempts), err),
		Model:     model,
		Attempts:  attempts,
		Retryable: retryable,
	}
}

// ErrClassifyNoScores is returned when the model answered without usable scores
var ErrClassifyNoScores = NewBaseError(ErrorTypeClassify, "no scores in model response", nil)

// Context Errors

// ErrContextCancelled is returned when context is cancelled
type ErrContextCancelled struct {
	*BaseError
	Operation string
}

func NewContextCancelled(operation string, err error) *ErrContextCancelled {
	return &ErrContextCancelled{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context cancelled: %s", operation), err),
		Operation: operation,
	}
}

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), nil),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Helper functions

// typed is satisfied by every error in this package through the embedded BaseError.
type typed interface {
	errorType() ErrorType
}

func (e *BaseError) errorType() ErrorType { return e.Type }

// IsErrorType checks if an error, or anything it wraps, is of a specific type
func IsErrorType(err error, errType ErrorType) bool {
	for err != nil {
		if t, ok := err.(typed); ok && t.errorType() == errType {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var endpoint *ErrGraphEndpointNotFound
	if stderrors.As(err, &endpoint) {
		return false
	}
	var query *ErrGraphQueryFailed
	if stderrors.As(err, &query) {
		return query.Retryable
	}
	var classify *ErrClassifyFailed
	if stderrors.As(err, &classify) {
		return classify.Retryable
	}
	// Connection errors are retryable
	var conn *ErrGraphConnectionFailed
	return stderrors.As(err, &conn)
}
