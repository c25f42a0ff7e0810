package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Classes(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		format      bool
		consistency bool
		external    bool
	}{
		{"ErrUnsupportedFormat", ErrUnsupportedFormat, true, false, false},
		{"ErrMissingMarkup", ErrMissingMarkup, true, false, false},
		{"ErrAmbiguousMarkup", ErrAmbiguousMarkup, true, false, false},
		{"ErrMalformedMarkup", ErrMalformedMarkup, true, false, false},
		{"ErrIncompleteListing", ErrIncompleteListing, true, false, false},
		{"ErrMultipleParents", ErrMultipleParents, false, true, false},
		{"ErrManualPartsMetadata", ErrManualPartsMetadata, false, true, false},
		{"ErrManualParts", ErrManualParts, false, true, false},
		{"ErrStaffMismatch", ErrStaffMismatch, false, true, false},
		{"ErrDuplicateDerivative", ErrDuplicateDerivative, false, true, false},
		{"ErrNotScore", ErrNotScore, false, true, false},
		{"ErrRendererNotFound", ErrRendererNotFound, false, false, true},
		{"ErrRenderFailed", ErrRenderFailed, false, false, true},
		{"ErrNotFound", ErrNotFound, false, false, false},
		{"ErrCursorExpired", ErrCursorExpired, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotEmpty(t, tt.err.Error())
			assert.Equal(t, tt.format, IsFormatError(tt.err))
			assert.Equal(t, tt.consistency, IsConsistencyError(tt.err))
			assert.Equal(t, tt.external, IsExternalError(tt.err))
		})
	}
}

func TestErrors_ClassSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("reconcile %s: %w", "file-1", ErrMultipleParents)

	assert.True(t, IsConsistencyError(err))
	assert.True(t, errors.Is(err, ErrMultipleParents))
	assert.False(t, IsFormatError(err))
}

func TestIsFormatError_Nil(t *testing.T) {
	assert.False(t, IsFormatError(nil))
	assert.False(t, IsConsistencyError(nil))
	assert.False(t, IsExternalError(nil))
}
