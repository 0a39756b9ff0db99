package apperr

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("create reservation: %w", Business(CodeSeatAlreadyReserved, "the seat %s is already reserved", "A12"))

	assert.Equal(t, KindBusiness, KindOf(err))
	assert.Equal(t, CodeSeatAlreadyReserved, CodeOf(err))
	assert.Equal(t, http.StatusConflict, HTTPStatus(err))
	assert.Contains(t, err.Error(), "the seat A12 is already reserved")
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, HTTPStatus(NotFound("screening", 4)))
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(Invalid("rows must be positive")))
	assert.Equal(t, http.StatusForbidden, HTTPStatus(Forbidden("not yours")))
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(fmt.Errorf("boom")))
	assert.False(t, Is(nil, KindNotFound))
	assert.Equal(t, "screening not found with id 4", NotFound("screening", 4).Error())
}

func TestWithCodeKeepsKind(t *testing.T) {
	err := Invalid("rows must be between 1 and %d", 50).WithCode(CodeRoomSizeOutOfBounds)

	assert.Equal(t, KindInvalid, KindOf(err))
	assert.Equal(t, CodeRoomSizeOutOfBounds, CodeOf(err))
	assert.Equal(t, http.StatusUnauthorized, HTTPStatus(Unauthorized("invalid credentials")))
}
