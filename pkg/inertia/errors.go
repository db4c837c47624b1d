package inertia

import (
	"fmt"
	"sort"
	"strings"
)

// VersionConflictError is returned when the backend answers 409: the asset
// version moved and the browser has to perform a full page load of Location.
type VersionConflictError struct {
	Location string
}

func (e *VersionConflictError) Error() string {
	return fmt.Sprintf("inertia: asset version conflict, reload %s", e.Location)
}

// StatusError carries a non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("inertia: backend responded %d", e.Code)
	}
	return fmt.Sprintf("inertia: backend responded %d: %s", e.Code, e.Body)
}

// ValidationError carries field-scoped messages reported by the backend.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "inertia: validation failed: " + strings.Join(parts, "; ")
}
