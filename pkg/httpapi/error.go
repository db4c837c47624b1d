// Package httpapi renders the JSON bodies of the console API.
package httpapi

import (
	"encoding/json"
	"net/http"
)

const (
	CodeNotFound           = "NOT_FOUND"
	CodeMethodNotAllowed   = "METHOD_NOT_ALLOWED"
	CodeRateLimited        = "RATE_LIMITED"
	CodeInternal           = "INTERNAL_SERVER_ERROR"
	CodeUnknownResource    = "UNKNOWN_RESOURCE"
	CodeViewNotFound       = "VIEW_NOT_FOUND"
	CodeVersionConflict    = "VERSION_CONFLICT"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeInvalidQuery       = "INVALID_QUERY"
	CodeInvalidSelection   = "INVALID_SELECTION"
	CodePreviewFailed      = "PREVIEW_FAILED"
	CodePreviewNotFound    = "PREVIEW_NOT_FOUND"
	CodeUploadUnsupported  = "UPLOAD_NOT_SUPPORTED"
	CodeUploadFailed       = "UPLOAD_FAILED"
)

// ErrorEnvelope is the body of every non-2xx console API answer except
// rejected uploads, which use FieldErrors.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// FieldErrors mirrors the backend's validation shape so the browser renders
// both the same way.
type FieldErrors struct {
	Errors map[string]string `json:"errors"`
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// Fail writes an envelope whose meta carries the request path and the
// request id assigned by the logging middleware.
func Fail(w http.ResponseWriter, r *http.Request, status int, code, message string) error {
	return WriteError(w, status, code, message, RequestMeta(w, r))
}

func RequestMeta(w http.ResponseWriter, r *http.Request) map[string]string {
	meta := map[string]string{}
	if r != nil {
		meta["path"] = r.URL.Path
	}
	if w != nil {
		if id := w.Header().Get("X-Request-Id"); id != "" {
			meta["request_id"] = id
		}
	}
	return meta
}

func WriteFieldErrors(w http.ResponseWriter, fields map[string]string) error {
	return WriteJSON(w, http.StatusUnprocessableEntity, &FieldErrors{Errors: fields})
}
