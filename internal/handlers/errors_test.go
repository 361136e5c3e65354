package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/equipdesk/backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToAppError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"invalid input keeps detail", fmt.Errorf("%w: name is required", services.ErrInvalidInput), http.StatusBadRequest, "invalid input: name is required"},
		{"not found keeps detail", fmt.Errorf("%w: hospital not found", services.ErrNotFound), http.StatusNotFound, "not found: hospital not found"},
		{"conflict", fmt.Errorf("%w: email already registered", services.ErrAlreadyExists), http.StatusConflict, "already exists: email already registered"},
		{"credentials collapse", fmt.Errorf("%w: user 3", services.ErrInvalidCredentials), http.StatusUnauthorized, msgInvalidCredentials},
		{"invalid token", services.ErrInvalidToken, http.StatusUnauthorized, msgInvalidToken},
		{"reuse looks like invalid token", services.ErrReuseDetected, http.StatusUnauthorized, msgInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr, ok := toAppError(tt.err)
			require.True(t, ok)
			assert.Equal(t, tt.status, appErr.HTTPStatus)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}

	_, ok := toAppError(errors.New("connection reset"))
	assert.False(t, ok)
}

func TestRespondError_UnmappedIsGeneric(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/lists", nil)

	respondError(c, errors.New("pq: relation \"lists\" does not exist"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "relation")
	assert.Contains(t, w.Body.String(), "internal server error")
}
