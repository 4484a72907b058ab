package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_StatusMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", NewValidationError("content", "must not be empty"), http.StatusBadRequest, "BAD_REQUEST"},
		{"forbidden", fmt.Errorf("wrap: %w", ErrForbidden), http.StatusForbidden, "FORBIDDEN"},
		{"not found", ErrNotificationNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"delivery", &DeliveryError{Op: "send", Cause: CauseTimeout}, http.StatusServiceUnavailable, "DELIVERY_FAILED"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			WriteError(c, tt.err, "failed")

			assert.Equal(t, tt.status, w.Code)
			var body struct {
				Error ErrorInfo `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Error.Code)
		})
	}
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	err := NewValidationError("content", "must not be empty")
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestDeliveryError_Message(t *testing.T) {
	assert.Contains(t, (&DeliveryError{Cause: CauseNetwork}).Message(), "unreachable")
	assert.Contains(t, (&DeliveryError{Cause: CauseServer}).Message(), "error")
}
