package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFail(t *testing.T) {
	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-Id", "abc")
	req := httptest.NewRequest(http.MethodGet, "/api/views/1", nil)

	require.NoError(t, Fail(rec, req, http.StatusNotFound, CodeViewNotFound, "view not found"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.JSONEq(t, `{"code":"VIEW_NOT_FOUND","message":"view not found","meta":{"path":"/api/views/1","request_id":"abc"}}`, rec.Body.String())
}

func TestWriteFieldErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteFieldErrors(rec, map[string]string{"files": "Too large."}))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"errors":{"files":"Too large."}}`, rec.Body.String())
}

func TestWriteJSON_NilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusNoContent, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.NoError(t, WriteJSON(nil, http.StatusOK, "x"))
}
