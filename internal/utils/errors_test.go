package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{E(CodeInvalidArgument, "op", "bad", nil), http.StatusBadRequest},
		{E(CodeUnauthorized, "op", "no", nil), http.StatusUnauthorized},
		{E(CodeForbidden, "op", "no", nil), http.StatusForbidden},
		{E(CodeNotFound, "op", "missing", nil), http.StatusNotFound},
		{E(CodeConflict, "op", "taken", ErrAlreadyAssigned), http.StatusConflict},
		{E(CodeInternal, "op", "boom", nil), http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", ErrNotFound), http.StatusNotFound},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatus(tc.err), tc.err.Error())
	}
}

func TestAppErrorUnwrapAndMessage(t *testing.T) {
	err := E(CodeConflict, "AssignmentService.Claim", "already assigned", ErrAlreadyAssigned)

	assert.ErrorIs(t, err, ErrAlreadyAssigned)
	assert.True(t, IsCode(err, CodeConflict))
	assert.False(t, IsCode(err, CodeNotFound))
	assert.Equal(t, CodeConflict, CodeOf(fmt.Errorf("ctx: %w", err)))
	assert.Equal(t, "AssignmentService.Claim: already assigned: conversation already assigned", err.Error())
	assert.Equal(t, CodeInternal, CodeOf(errors.New("x")))
}
