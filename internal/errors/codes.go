// Package errors provides structured error handling for docrag.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Storage errors (missing documents, sessions, index files)
//   - 3XX: Provider errors (embedding, generation, reranking, lexical search)
//   - 4XX: Validation errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStorage indicates storage and not-found errors.
	CategoryStorage Category = "STORAGE"
	// CategoryProvider indicates external collaborator errors.
	CategoryProvider Category = "PROVIDER"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"

	// Storage errors (200-299)
	ErrCodeDocumentNotFound = "ERR_201_DOCUMENT_NOT_FOUND"
	ErrCodeSessionNotFound  = "ERR_202_SESSION_NOT_FOUND"
	ErrCodeChunkNotFound    = "ERR_203_CHUNK_NOT_FOUND"
	ErrCodeCorruptIndex     = "ERR_204_CORRUPT_INDEX"
	ErrCodeStorageFailed    = "ERR_205_STORAGE_FAILED"

	// Provider errors (300-399). Retryable by the caller, never internally.
	ErrCodeEmbeddingFailed  = "ERR_301_EMBEDDING_FAILED"
	ErrCodeGenerationFailed = "ERR_302_GENERATION_FAILED"
	ErrCodeRerankFailed     = "ERR_303_RERANK_FAILED"
	ErrCodeLexicalFailed    = "ERR_304_LEXICAL_SEARCH_FAILED"
	ErrCodeProviderTimeout  = "ERR_305_PROVIDER_TIMEOUT"

	// Validation errors (400-499)
	ErrCodeInvalidInput      = "ERR_401_INVALID_INPUT"
	ErrCodeDimensionMismatch = "ERR_402_DIMENSION_MISMATCH"
	ErrCodeQueryEmpty        = "ERR_403_QUERY_EMPTY"
	ErrCodeInvalidIdentifier = "ERR_404_INVALID_IDENTIFIER"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeIngestFailed = "ERR_502_INGEST_FAILED"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Extract leading digit of the numeric portion (e.g., "2" from "ERR_201_...")
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStorage
	case '3':
		return CategoryProvider
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	if code == ErrCodeCorruptIndex {
		return SeverityFatal
	}
	if isRetryableCode(code) {
		return SeverityWarning
	}
	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
// Provider failures and timeouts may succeed on a later attempt; the retry
// decision belongs to the caller, requests are never retried internally.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeEmbeddingFailed, ErrCodeGenerationFailed,
		ErrCodeRerankFailed, ErrCodeLexicalFailed, ErrCodeProviderTimeout:
		return true
	default:
		return false
	}
}
