package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesOriginalByCode(t *testing.T) {
	err := Clone(ErrNotFound, "student not found")
	assert.True(t, stdErrors.Is(err, ErrNotFound))
	assert.False(t, stdErrors.Is(err, ErrConflict))
	assert.Equal(t, "student not found", err.Message)
}

func TestWrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := Wrap(cause, ErrTransport.Code, ErrTransport.Status, "GET /students failed")
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsRemote(err))
	assert.Equal(t, "GET /students failed: dial tcp: refused", err.Error())
}

func TestValidationJoinsMessagesInFieldOrder(t *testing.T) {
	err := Validation(map[string]string{"name": "name is required", "email": "email is required"})
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.Equal(t, "email is required; name is required", err.Message)
	assert.Len(t, err.Fields, 2)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(fmt.Errorf("boom"))
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Nil(t, FromError(nil))
}
