// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"sheetcharts/internal/auth"
	"sheetcharts/internal/chart"
	"sheetcharts/internal/core"
	"sheetcharts/internal/log"
	"sheetcharts/internal/services"
	"sheetcharts/internal/sheets/google"
	"sheetcharts/internal/storage"
	"sheetcharts/internal/tabular"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	raw        []byte
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets a value to be encoded as JSON.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Raw sets a non-JSON body; the caller sets Content-Type.
func (b *JSONResponseBuilder) Raw(data []byte) *JSONResponseBuilder {
	b.raw = data
	return b
}

// Write sends the built response to the http.ResponseWriter. Encoding failures
// are logged with the request logger and answered with a generic 500.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter, r *http.Request) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.raw != nil {
		w.WriteHeader(b.statusCode)
		_, _ = w.Write(b.raw)
		return
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		ctx := r.Context()
		log.FromContext(ctx).ErrorContext(ctx, "Failed to encode response",
			log.FieldStatusCode, b.statusCode,
			log.FieldError, err.Error())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal server error")
}

// statusFor maps a service error to its HTTP status. Unknown errors are 500.
func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrEmailTaken), errors.Is(err, services.ErrFileNotReady):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedFile):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, tabular.ErrDecode),
		errors.Is(err, tabular.ErrEmptyInput),
		errors.Is(err, chart.ErrColumnNotFound):
		return http.StatusUnprocessableEntity
	case errors.Is(err, tabular.ErrRead),
		errors.Is(err, core.ErrInvalidEmail),
		errors.Is(err, core.ErrEmptyFullName),
		errors.Is(err, core.ErrWeakPassword),
		errors.Is(err, core.ErrEmptyFile),
		errors.Is(err, core.ErrEmptyColumn),
		errors.Is(err, core.ErrTitleTooLong),
		errors.Is(err, core.ErrInvalidChartKind),
		errors.Is(err, chart.ErrUnknownKind),
		errors.Is(err, google.ErrInvalidSpreadsheet),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrSheetsDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err and writes the mapped error response. Internal errors
// are logged in full but reported generically.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	ctx := r.Context()
	logger := log.FromContext(ctx)
	status := statusFor(err)

	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.ErrorContext(ctx, "Request failed",
			log.FieldOperation, op,
			log.FieldStatusCode, status,
			log.FieldError, err.Error())
		if status == http.StatusGatewayTimeout {
			ErrorResponse(status, "request timed out").Write(w, r)
			return
		}
		InternalServerError().Write(w, r)
		return
	}

	logger.WarnContext(ctx, "Request rejected",
		log.FieldOperation, op,
		log.FieldStatusCode, status,
		log.FieldError, err.Error())
	ErrorResponse(status, err.Error()).Write(w, r)
}
