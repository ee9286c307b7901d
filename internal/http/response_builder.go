// Package http provides HTTP server and handler implementations.
//
// This file implements the Builder Pattern for constructing HTMX responses
// and maps pipeline failures onto HTTP status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/render"

	"formalizacion/internal/core"
	"formalizacion/internal/services"
)

// HTMXResponseBuilder provides a fluent API for building HTMX responses.
// It encapsulates the construction of HX-Trigger headers and response bodies.
type HTMXResponseBuilder struct {
	triggers   map[string]any
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewHTMXResponse creates a new response builder with default 200 status.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		triggers:   make(map[string]any),
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.statusCode = code
	return b
}

// Trigger adds a named trigger with optional data to the HX-Trigger header.
func (b *HTMXResponseBuilder) Trigger(name string, data any) *HTMXResponseBuilder {
	b.triggers[name] = data
	return b
}

// TriggerDashboardUpdated tells the page which selection the panel now shows.
func (b *HTMXResponseBuilder) TriggerDashboardUpdated(view services.View) *HTMXResponseBuilder {
	return b.Trigger("dashboard:updated", map[string]any{
		"start":       view.Range.Start.String(),
		"end":         view.Range.End.String(),
		"granularity": string(view.Granularity),
		"category":    string(view.Category),
		"rows":        view.Rows,
	})
}

// NotificationType represents the type of notification to display.
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
	NotificationWarning NotificationType = "warning"
)

// TriggerNotification adds a show-notification trigger with the specified parameters.
func (b *HTMXResponseBuilder) TriggerNotification(notifType NotificationType, message string, durationMs int) *HTMXResponseBuilder {
	return b.Trigger("show-notification", map[string]any{
		"type":     string(notifType),
		"message":  message,
		"duration": durationMs,
	})
}

// TriggerErrorNotification is a convenience method for error notifications.
func (b *HTMXResponseBuilder) TriggerErrorNotification(message string) *HTMXResponseBuilder {
	return b.TriggerNotification(NotificationError, message, 5000)
}

// Header adds a custom header to the response.
func (b *HTMXResponseBuilder) Header(name, value string) *HTMXResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the response body as bytes.
func (b *HTMXResponseBuilder) Body(content []byte) *HTMXResponseBuilder {
	b.body = content
	return b
}

// BodyString sets the response body as a string.
func (b *HTMXResponseBuilder) BodyString(content string) *HTMXResponseBuilder {
	b.body = []byte(content)
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *HTMXResponseBuilder) BodyHTML(html string) *HTMXResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if len(b.triggers) > 0 {
		triggerJSON, err := json.Marshal(b.triggers)
		if err == nil {
			w.Header().Set("HX-Trigger", string(triggerJSON))
		}
	}

	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates a standard error response with HTML formatting.
// The message is HTML-escaped for safety.
func ErrorResponse(statusCode int, message string) *HTMXResponseBuilder {
	escapedMsg := template.HTMLEscapeString(message)
	return NewHTMXResponse().
		Status(statusCode).
		BodyHTML(`<div class="error" role="alert">` + escapedMsg + `</div>`)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

// UnprocessableEntityError creates a 422 Unprocessable Entity error response.
func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

// ServiceUnavailableError creates a 503 Service Unavailable error response.
func ServiceUnavailableError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusServiceUnavailable, message)
}

// InternalServerError creates a 500 Internal Server Error response.
func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

// APIError is the JSON error body of the /api routes.
type APIError struct {
	StatusCode int          `json:"status_code"`
	ErrorCode  string       `json:"error_code"`
	Message    string       `json:"message"`
	Details    []services.ParamError `json:"details,omitempty"`
	RequestID  string       `json:"request_id,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// classify maps a pipeline error to a status, a stable code and a user-facing message.
func classify(err error) (int, string, string) {
	switch {
	case errors.Is(err, services.ErrInvalidQuery):
		return http.StatusBadRequest, "INVALID_PARAMETERS", "Parámetros inválidos: " + err.Error()
	case errors.Is(err, core.ErrInvalidRange):
		return http.StatusUnprocessableEntity, "INVALID_RANGE", "La fecha inicial debe ser anterior o igual a la fecha final."
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "La consulta tardó demasiado. Intente de nuevo."
	case errors.Is(err, core.ErrEmptyResult):
		return http.StatusServiceUnavailable, "EMPTY_DATASET", "El conjunto de datos no contiene registros para el municipio: " + err.Error()
	case core.IsLoadError(err):
		return http.StatusServiceUnavailable, "DATASET_UNAVAILABLE", "No fue posible cargar el conjunto de datos: " + err.Error()
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Error interno del servidor."
	}
}

// statusFor returns the HTTP status for err.
func statusFor(err error) int {
	status, _, _ := classify(err)
	return status
}

// newAPIError builds the JSON body for err.
func newAPIError(err error, requestID string) *APIError {
	status, code, message := classify(err)
	apiErr := &APIError{StatusCode: status, ErrorCode: code, Message: message, RequestID: requestID}
	var perrs services.ParamErrors
	if errors.As(err, &perrs) {
		apiErr.Details = perrs
	}
	return apiErr
}
