package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		name      string
		code      string
		category  Category
		severity  Severity
		retryable bool
	}{
		{"config", ErrCodeConfigInvalid, CategoryConfig, SeverityError, false},
		{"storage", ErrCodeSessionNotFound, CategoryStorage, SeverityError, false},
		{"provider", ErrCodeEmbeddingFailed, CategoryProvider, SeverityWarning, true},
		{"timeout", ErrCodeProviderTimeout, CategoryProvider, SeverityWarning, true},
		{"validation", ErrCodeDimensionMismatch, CategoryValidation, SeverityError, false},
		{"internal", ErrCodeInternal, CategoryInternal, SeverityError, false},
		{"corrupt index is fatal", ErrCodeCorruptIndex, CategoryStorage, SeverityFatal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, "boom", nil)
			assert.Equal(t, tt.category, err.Category)
			assert.Equal(t, tt.severity, err.Severity)
			assert.Equal(t, tt.retryable, err.Retryable)
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrCodeGenerationFailed, fmt.Errorf("generate answer: %w", cause))

	require.NotNil(t, err)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsRetryable(err))
}

func TestError_IsMatchesByCode(t *testing.T) {
	a := New(ErrCodeSessionNotFound, "session abc not found", nil)
	b := New(ErrCodeSessionNotFound, "different message", nil)
	c := New(ErrCodeDocumentNotFound, "doc missing", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestDimensionMismatch(t *testing.T) {
	err := DimensionMismatch(768, 384)

	assert.Equal(t, ErrCodeDimensionMismatch, GetCode(err))
	assert.Contains(t, err.Message, "768")
	assert.Contains(t, err.Message, "384")
	assert.NotEmpty(t, err.Suggestion)
	assert.False(t, IsRetryable(err))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(NotFound(ErrCodeDocumentNotFound, "gone")))
	assert.True(t, IsNotFound(NotFound(ErrCodeSessionNotFound, "gone")))
	assert.False(t, IsNotFound(New(ErrCodeStorageFailed, "disk", nil)))
	assert.False(t, IsNotFound(stderrors.New("plain")))
	assert.False(t, IsNotFound(nil))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	var err *Error = Wrap(ErrCodeInternal, nil)
	assert.Nil(t, err)
}

func TestWithDetail(t *testing.T) {
	err := New(ErrCodeInvalidInput, "bad owner id", nil).
		WithDetail("owner_id", "").
		WithDetail("field", "owner_id")

	assert.Equal(t, "", err.Details["owner_id"])
	assert.Equal(t, "owner_id", err.Details["field"])
}
