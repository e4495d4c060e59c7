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

func TestStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"branch not found", fmt.Errorf("lookup: %w", ErrBranchNotFound), http.StatusNotFound},
		{"post not found", ErrPostNotFound, http.StatusNotFound},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"protected branch", ErrProtectedBranch, http.StatusConflict},
		{"merge into main", ErrMergeIntoMain, http.StatusConflict},
		{"merge conflict", ErrMergeConflict, http.StatusConflict},
		{"store failure inside merge", fmt.Errorf("%w: a -> b: %w", ErrMergeFailed, ErrStoreFailure), http.StatusInternalServerError},
		{"expired token", ErrExpiredToken, http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFromError(tt.err))
		})
	}
}

func TestErrorResponse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ErrorResponse(c, http.StatusConflict, "Cannot delete", ErrProtectedBranch)

	assert.Equal(t, http.StatusConflict, w.Code)
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
	assert.Equal(t, "Cannot delete", resp.Error.Message)
	assert.Equal(t, ErrProtectedBranch.Error(), resp.Error.Details)
}

func TestSuccessResponse_Meta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	SuccessResponse(c, []string{"a"}, &Meta{PostID: 42, Total: 1, Cached: true})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":["a"],"meta":{"post_id":42,"total":1,"cached":true}}`, w.Body.String())
}
