package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so that
// wrapped sentinels compare equal with errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeCorruptState  = "CORRUPT_STATE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Input errors
var (
	ErrEmptyQuery        = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrNoDocuments       = NewDomainError(ErrCodeValidation, "no documents found to index")
	ErrEmptyInput        = NewDomainError(ErrCodeValidation, "no embeddings provided")
	ErrDimensionMismatch = NewDomainError(ErrCodeValidation, "embedding dimension mismatch")
	ErrInvalidCursor     = NewDomainError(ErrCodeValidation, "invalid pagination cursor")
	ErrNothingToExtract  = NewDomainError(ErrCodeValidation, "no text available for extraction")
	ErrTextTooLong       = NewDomainError(ErrCodeValidation, "text exceeds the extraction limit")
	ErrDocumentNotFound  = NewDomainError(ErrCodeNotFound, "document not found")
)

// State errors
var (
	ErrIndexNotInitialized = NewDomainError(ErrCodeInternalError, "vector index not initialized")
	ErrSnapshotNotFound    = NewDomainError(ErrCodeNotFound, "index snapshot not found")
	ErrCorruptSnapshot     = NewDomainError(ErrCodeCorruptState, "index snapshot is corrupt")
)

// NewProviderError wraps a failure returned by an embedding or language
// model provider.
func NewProviderError(provider string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeProvider, provider+" call failed", err)
}

// Code returns the DomainError code carried anywhere in err's chain, or
// ErrCodeInternalError when there is none.
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ErrCodeInternalError
}
