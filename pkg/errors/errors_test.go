package errors

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrInput, "duration must be positive")

	assert.True(t, stderrors.Is(err, ErrInput))
	assert.False(t, stderrors.Is(err, ErrNotFound))
	assert.Equal(t, "duration must be positive", err.Message)
	assert.Equal(t, "invalid input", ErrInput.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)
	require.NotNil(t, appErr)
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestFromErrorKeepsTypedThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("detect: %w", Inputf("range %d invalid", 3))
	appErr := FromError(wrapped)
	assert.Equal(t, ErrInput.Code, appErr.Code)
	assert.Equal(t, "range 3 invalid", appErr.Message)
}
