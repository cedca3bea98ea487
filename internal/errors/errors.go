package errors

import "fmt"

// Error is a coded error. Details and Suggestion are optional context
// for logs and user-facing output; Cause preserves the chain for
// stdlib errors.Is/As.
type Error struct {
	Code       string
	Message    string
	Category   Category
	Severity   Severity
	Details    map[string]string
	Cause      error
	Retryable  bool
	Suggestion string
}

// New builds an Error for a code, deriving its classification.
func New(code, message string, cause error) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap promotes an existing error to a coded one, keeping it as the
// cause. Returns nil for a nil error.
func Wrap(code string, err error) *Error {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// NotFound builds a storage not-found error under the given code.
func NotFound(code, message string) *Error {
	return New(code, message, nil)
}

// InvalidInput builds a validation error. Rejected immediately, never
// retried.
func InvalidInput(message string) *Error {
	return New(ErrCodeInvalidInput, message, nil)
}

// ProviderFailure builds an error for a failed external collaborator
// call. The request fails whole; the caller may retry.
func ProviderFailure(code, message string, cause error) *Error {
	return New(code, message, cause)
}

// DimensionMismatch reports an index/embedding dimensionality conflict.
// Never auto-resolved once the index holds vectors.
func DimensionMismatch(indexDim, gotDim int) *Error {
	return New(ErrCodeDimensionMismatch,
		fmt.Sprintf("index dimension %d mismatches embedding length %d", indexDim, gotDim),
		nil,
	).WithSuggestion("delete the vector index snapshot and reingest documents")
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by code, so errors.Is works across separately constructed
// instances.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail attaches a key-value pair for logging.
func (e *Error) WithDetail(key, value string) *Error {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion attaches an actionable hint for the user.
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// IsRetryable reports whether the caller may retry the operation.
// False for nil and for plain errors.
func IsRetryable(err error) bool {
	if de, ok := err.(*Error); ok {
		return de.Retryable
	}
	return false
}

// IsNotFound reports whether an error is one of the not-found codes.
func IsNotFound(err error) bool {
	de, ok := err.(*Error)
	if !ok {
		return false
	}
	switch de.Code {
	case ErrCodeDocumentNotFound, ErrCodeSessionNotFound, ErrCodeChunkNotFound:
		return true
	default:
		return false
	}
}

// GetCode extracts the code, empty for plain errors.
func GetCode(err error) string {
	if de, ok := err.(*Error); ok {
		return de.Code
	}
	return ""
}
