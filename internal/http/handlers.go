package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/render"

	"formalizacion/internal/chart"
	"formalizacion/internal/core"
	"formalizacion/internal/export"
	"formalizacion/internal/log"
	"formalizacion/internal/middleware/trace"
	"formalizacion/internal/services"
)

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports 503 until the base table has been loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if s.svc.Ready() {
		_, _ = w.Write([]byte("ok"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	msg := "dataset not loaded"
	if err := s.svc.LastLoadError(); err != nil {
		msg += ": " + err.Error()
	}
	_, _ = w.Write([]byte(msg))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes. Intente de nuevo en unos segundos.").Write(w)
}

// dashboard parses the selector parameters and computes the view.
func (s *Server) dashboard(r *http.Request) (services.View, error) {
	q, err := services.ParseQuery(r.URL.Query())
	if err != nil {
		return services.View{}, err
	}
	return s.svc.Dashboard(r.Context(), q)
}

// handleIndex renders the full dashboard page. Failures are shown on the page itself.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if isHTMX(r) {
		s.handlePanel(w, r)
		return
	}
	view, err := s.dashboard(r)
	if err != nil {
		status, _, message := classify(err)
		s.logFailure(r, err, status)
		data := pageData{Error: message, RequestID: trace.GetRequestID(r.Context())}
		data.View.Municipality = s.svc.Municipality()
		s.renderTemplate(w, r, status, "dashboard_page.html", data)
		return
	}
	s.renderTemplate(w, r, http.StatusOK, "dashboard_page.html", newPageData(view))
}

// handlePanel renders the htmx partial swapped in when a selector changes.
func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard(r)
	if err != nil {
		status, _, message := classify(err)
		s.logFailure(r, err, status)
		ErrorResponse(status, message).TriggerErrorNotification(message).Write(w)
		return
	}

	data := newPageData(view)
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "dashboard_panel.html", data); err != nil {
		s.logFailure(r, err, http.StatusInternalServerError)
		InternalServerError("Error al generar el panel.").Write(w)
		return
	}
	sel := view.Selection().Values()
	NewHTMXResponse().
		TriggerDashboardUpdated(view).
		Header("HX-Push-Url", "/?"+sel.Encode()).
		BodyHTML(buf.String()).
		Write(w)
}

func (s *Server) handleTimeSeriesChart(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard(r)
	if err != nil {
		s.writeHTMLError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := chart.TimeSeriesPNG(&buf, chart.TimeSeriesTitle(view.Granularity), view.Granularity, view.Series); err != nil {
		s.writeHTMLError(w, r, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) handleCategoriesChart(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard(r)
	if err != nil {
		s.writeHTMLError(w, r, err)
		return
	}
	if !view.ShowCategories() {
		s.writeHTMLError(w, r, fmt.Errorf("%w: category is required", services.ErrInvalidQuery))
		return
	}
	var buf bytes.Buffer
	if err := chart.CategoriesPNG(&buf, chart.CategoriesTitle(view.Category), view.Counts); err != nil {
		s.writeHTMLError(w, r, err)
		return
	}
	writePNG(w, buf.Bytes())
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard(r)
	if err != nil {
		s.writeHTMLError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := export.Write(&buf, view); err != nil {
		s.writeHTMLError(w, r, err)
		return
	}
	filename := fmt.Sprintf("formalizacion_%s_%s.xlsx", view.Range.Start, view.Range.End)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(buf.Bytes())
}

type boundsResponse struct {
	Municipality string    `json:"municipality"`
	Start        core.Date `json:"start"`
	End          core.Date `json:"end"`
}

type seriesResponse struct {
	Start       core.Date        `json:"start"`
	End         core.Date        `json:"end"`
	Granularity core.Granularity `json:"granularity"`
	Total       int              `json:"total"`
	Buckets     []core.Bucket    `json:"buckets"`
}

type categoriesResponse struct {
	Start    core.Date            `json:"start"`
	End      core.Date            `json:"end"`
	Category core.Category        `json:"category"`
	Total    int                  `json:"total"`
	Counts   []core.CategoryCount `json:"counts"`
}

type dashboardResponse struct {
	Municipality string               `json:"municipality"`
	Bounds       boundsResponse       `json:"bounds"`
	Start        core.Date            `json:"start"`
	End          core.Date            `json:"end"`
	Granularity  core.Granularity     `json:"granularity"`
	Category     core.Category        `json:"category"`
	Rows         int                  `json:"rows"`
	Series       []core.Bucket        `json:"series"`
	Counts       []core.CategoryCount `json:"counts"`
}

func (s *Server) handleBounds(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.Bounds(r.Context())
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	render.JSON(w, r, boundsResponse{Municipality: s.svc.Municipality(), Start: b.Start, End: b.End})
}

func (s *Server) handleTimeSeries(w http.ResponseWriter, r *http.Request) {
	q, rng, err := s.resolve(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	buckets, err := s.svc.TimeSeries(r.Context(), rng, q.Granularity)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	render.JSON(w, r, seriesResponse{
		Start:       rng.Start,
		End:         rng.End,
		Granularity: q.Granularity,
		Total:       core.SeriesTotal(buckets),
		Buckets:     nonNil(buckets),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	q, rng, err := s.resolve(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	counts, err := s.svc.Categories(r.Context(), rng, q.Category)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	render.JSON(w, r, categoriesResponse{
		Start:    rng.Start,
		End:      rng.End,
		Category: q.Category,
		Total:    core.CountsTotal(counts),
		Counts:   nonNil(counts),
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard(r)
	if err != nil {
		s.writeAPIError(w, r, err)
		return
	}
	render.JSON(w, r, dashboardResponse{
		Municipality: view.Municipality,
		Bounds:       boundsResponse{Municipality: view.Municipality, Start: view.Bounds.Start, End: view.Bounds.End},
		Start:        view.Range.Start,
		End:          view.Range.End,
		Granularity:  view.Granularity,
		Category:     view.Category,
		Rows:         view.Rows,
		Series:       nonNil(view.Series),
		Counts:       nonNil(view.Counts),
	})
}

// resolve parses the selectors and applies the service defaults.
func (s *Server) resolve(r *http.Request) (services.Query, core.DateRange, error) {
	q, err := services.ParseQuery(r.URL.Query())
	if err != nil {
		return q, core.DateRange{}, err
	}
	q, _, err = s.svc.Resolve(r.Context(), q)
	if err != nil {
		return q, core.DateRange{}, err
	}
	return q, core.DateRange{Start: q.Start, End: q.End}, nil
}

func (s *Server) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logFailure(r, err, http.StatusInternalServerError)
		InternalServerError("Error al generar la página.").Write(w)
		return
	}
	NewHTMXResponse().Status(status).BodyHTML(buf.String()).Write(w)
}

func (s *Server) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := newAPIError(err, trace.GetRequestID(r.Context()))
	s.logFailure(r, err, apiErr.StatusCode)
	_ = render.Render(w, r, apiErr)
}

func (s *Server) writeHTMLError(w http.ResponseWriter, r *http.Request, err error) {
	status, _, message := classify(err)
	s.logFailure(r, err, status)
	ErrorResponse(status, message).Write(w)
}

func (s *Server) logFailure(r *http.Request, err error, status int) {
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "Request failed", log.FieldError, err, log.FieldStatusCode, status)
		return
	}
	logger.WarnContext(r.Context(), "Request rejected", log.FieldError, err, log.FieldStatusCode, status)
}

func writePNG(w http.ResponseWriter, b []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	_, _ = w.Write(b)
}

// nonNil keeps empty results encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
