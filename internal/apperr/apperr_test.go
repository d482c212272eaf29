package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOfAndStatus(t *testing.T) {
	cases := []struct {
		err    error
		kind   Kind
		status int
	}{
		{Validation("title required"), KindValidation, http.StatusBadRequest},
		{Conflict("Email already in use"), KindConflict, http.StatusConflict},
		{Auth("Invalid credentials"), KindAuth, http.StatusUnauthorized},
		{Authz("Admin authorization required"), KindAuthz, http.StatusForbidden},
		{Infra("Import failed", errors.New("disk")), KindInfra, http.StatusInternalServerError},
		{errors.New("bare"), KindInfra, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			assert.Equal(t, tc.kind, KindOf(tc.err))
			assert.Equal(t, tc.status, StatusOf(KindOf(tc.err)))
		})
	}
}

func TestInfraUnwrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("listing: %w", Infra("Failed to load movies", cause))

	assert.ErrorIs(t, err, cause)
	assert.True(t, Is(err, KindInfra))
	assert.False(t, Is(err, KindValidation))
	assert.Equal(t, "listing: Failed to load movies: connection refused", err.Error())
}
