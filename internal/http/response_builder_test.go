package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"formalizacion/internal/core"
	"formalizacion/internal/services"
)

func TestHTMXResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewHTMXResponse().
		Status(http.StatusOK).
		BodyString("test").
		Write(w)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test", w.Body.String())
	assert.Empty(t, w.Header().Get("HX-Trigger"))
}

func TestHTMXResponseBuilder_Triggers(t *testing.T) {
	w := httptest.NewRecorder()
	view := services.View{
		Range:       core.DateRange{Start: core.NewDate(2020, 1, 1), End: core.NewDate(2020, 3, 31)},
		Granularity: core.Month,
		Category:    core.CategoryGender,
		Rows:        42,
	}

	NewHTMXResponse().
		TriggerDashboardUpdated(view).
		TriggerErrorNotification("algo falló").
		Header("HX-Push-Url", "/?granularity=month").
		Write(w)

	trigger := w.Header().Get("HX-Trigger")
	for _, part := range []string{
		`"dashboard:updated"`,
		`"start":"2020-01-01"`,
		`"end":"2020-03-31"`,
		`"granularity":"month"`,
		`"rows":42`,
		`"show-notification"`,
		`"type":"error"`,
	} {
		assert.Contains(t, trigger, part)
	}
	assert.Equal(t, "/?granularity=month", w.Header().Get("HX-Push-Url"))
}

func TestErrorResponse_EscapesMessage(t *testing.T) {
	w := httptest.NewRecorder()
	BadRequestError(`<script>alert("x")</script>`).Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.False(t, strings.Contains(w.Body.String(), "<script>"))
	assert.Contains(t, w.Body.String(), `class="error"`)
}

func TestErrorHelpers(t *testing.T) {
	tests := []struct {
		builder *HTMXResponseBuilder
		status  int
	}{
		{UnprocessableEntityError("x"), http.StatusUnprocessableEntity},
		{ServiceUnavailableError("x"), http.StatusServiceUnavailable},
		{InternalServerError("x"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		tt.builder.Write(w)
		assert.Equal(t, tt.status, w.Code)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"param errors", services.ParamErrors{{Field: "start", Message: "bad"}}, http.StatusBadRequest, "INVALID_PARAMETERS"},
		{"wrapped bad request", fmt.Errorf("%w: category is required", services.ErrInvalidQuery), http.StatusBadRequest, "INVALID_PARAMETERS"},
		{"invalid range", fmt.Errorf("%w: end before start", core.ErrInvalidRange), http.StatusUnprocessableEntity, "INVALID_RANGE"},
		{"timeout", fmt.Errorf("load: %w", context.DeadlineExceeded), http.StatusGatewayTimeout, "TIMEOUT"},
		{"fetch", fmt.Errorf("%w: status 500", core.ErrFetch), http.StatusServiceUnavailable, "DATASET_UNAVAILABLE"},
		{"schema", core.ErrSchema, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE"},
		{"no mode", core.ErrNoMode, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE"},
		{"date parse", core.ErrDateParse, http.StatusServiceUnavailable, "DATASET_UNAVAILABLE"},
		{"empty result", core.ErrEmptyResult, http.StatusServiceUnavailable, "EMPTY_DATASET"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, message := classify(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, message)
			assert.Equal(t, tt.status, statusFor(tt.err))
		})
	}
}

func TestNewAPIError_CarriesParamDetails(t *testing.T) {
	err := services.ParamErrors{{Field: "granularity", Message: "granularidad desconocida"}}
	apiErr := newAPIError(err, "req-1")

	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "req-1", apiErr.RequestID)
	assert.Equal(t, []services.ParamError(err), apiErr.Details)
	assert.Equal(t, apiErr.Message, apiErr.Error())
}
