package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorKeepsDomainErrors(t *testing.T) {
	wrapped := fmt.Errorf("submit: %w", Clone(ErrConflict, "You have already submitted this assignment."))

	appErr := FromError(wrapped)

	assert.Equal(t, ErrConflict.Code, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.Status)
	assert.Equal(t, "You have already submitted this assignment.", appErr.Message)
}

func TestFromErrorDefaultsToInternal(t *testing.T) {
	appErr := FromError(sql.ErrConnDone)

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)
}

func TestCloneLeavesOriginalUntouched(t *testing.T) {
	clone := Clone(ErrNotFound, "Journal entry not found or access denied.")

	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.Equal(t, "Journal entry not found or access denied.", clone.Message)
	assert.True(t, IsCode(clone, ErrNotFound.Code))
	assert.False(t, IsCode(sql.ErrNoRows, ErrNotFound.Code))
}
