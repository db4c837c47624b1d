package controllers

import (
	"net/http"

	"github.com/iota-uz/bookings-admin/pkg/httpapi"
)

func NotFound() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.Fail(w, r, http.StatusNotFound, httpapi.CodeNotFound, "not found")
	}
}

func MethodNotAllowed() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = httpapi.Fail(w, r, http.StatusMethodNotAllowed, httpapi.CodeMethodNotAllowed, "method not allowed")
	}
}
