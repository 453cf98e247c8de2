package domain

import "fmt"

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

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeConfiguration = "CONFIGURATION_ERROR"
	ErrCodeArtifact      = "ARTIFACT_MISSING"
	ErrCodeGeneration    = "GENERATION_ERROR"
	ErrCodeExternalAPI   = "EXTERNAL_API_ERROR"
	ErrCodeLogging       = "LOGGING_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Build-time configuration errors are fatal and stop the build.
var (
	ErrMissingTextColumn = NewDomainError(ErrCodeConfiguration, "required column 'combined_text' not found, run 'ehrqad preprocess' first")
	ErrEmptyCorpus       = NewDomainError(ErrCodeConfiguration, "corpus contains no non-empty documents")
)

// Artifact errors instruct the operator to run the build step.
var (
	ErrEmbeddingsMissing = NewDomainError(ErrCodeArtifact, "embeddings artifact not found, run 'ehrqad build' first")
	ErrChunksMissing     = NewDomainError(ErrCodeArtifact, "chunk text artifact not found, run 'ehrqad build' first")
	ErrIndexMissing      = NewDomainError(ErrCodeArtifact, "similarity index not found, run 'ehrqad index' first")
	ErrIndexNotBuilt     = NewDomainError(ErrCodeArtifact, "similarity index queried before being built")
)

// Artifact consistency errors fail fast at load time.
var (
	ErrModelMismatch     = NewDomainError(ErrCodeValidation, "index was built with a different embedding model")
	ErrDimensionMismatch = NewDomainError(ErrCodeValidation, "vector dimension does not match the index")
	ErrChunkVectorSkew   = NewDomainError(ErrCodeValidation, "chunk line count does not match embedding vector count")
)

// Request validation errors
var (
	ErrEmptyQuestion = NewDomainError(ErrCodeValidation, "question must not be empty")
	ErrInvalidTopK   = NewDomainError(ErrCodeValidation, "top_k must be at least 1")
)
