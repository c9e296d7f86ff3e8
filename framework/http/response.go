package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/km-arc/go-scoped/framework/scope"
)

// Response wraps http.ResponseWriter with Laravel-style JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	msg := first(message, "Server Error.")
	res.JSON(http.StatusInternalServerError, envelope{"message": msg})
}

// ── Scope errors ──────────────────────────────────────────────────────────────

// ScopeError maps a proxy dispatch failure to the matching HTTP response:
// a missing activation is a 503 (the request pipeline is misconfigured, the
// scope middleware never ran), a method outside the proxy's contract is a
// 501, anything else a 500.
func (res *Response) ScopeError(err error) {
	var methodErr *scope.MethodError
	switch {
	case errors.Is(err, scope.ErrScopeUnavailable):
		res.Error(http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &methodErr):
		res.Error(http.StatusNotImplemented, err.Error())
	default:
		res.Error(http.StatusInternalServerError, err.Error())
	}
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
