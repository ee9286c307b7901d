// Selector parameters arrive as strings from the dashboard, the JSON API and
// the export command; this file turns them into a Query.

package services

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"formalizacion/internal/core"
)

// ErrInvalidQuery marks selector parameters that could not be understood.
var ErrInvalidQuery = errors.New("invalid query")

const monthLayout = "2006-01"

// queryParams mirrors the query string before conversion to domain types.
type queryParams struct {
	Start       string `query:"start" validate:"omitempty,dateparam"`
	End         string `query:"end" validate:"omitempty,dateparam"`
	Granularity string `query:"granularity" validate:"omitempty,granularity"`
	Category    string `query:"category" validate:"omitempty,category"`
}

// ParamError describes one rejected query parameter.
type ParamError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ParamErrors lists every rejected parameter of a request.
type ParamErrors []ParamError

func (e ParamErrors) Error() string {
	parts := make([]string, len(e))
	for i, p := range e {
		parts[i] = p.Field + ": " + p.Message
	}
	return strings.Join(parts, "; ")
}

func (e ParamErrors) Unwrap() error {
	return ErrInvalidQuery
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("query"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	must(v.RegisterValidation("dateparam", isDateParam))
	must(v.RegisterValidation("granularity", isGranularity))
	must(v.RegisterValidation("category", isCategory))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func isDateParam(fl validator.FieldLevel) bool {
	_, err := parseDateParam(fl.Field().String(), false)
	return err == nil
}

func isGranularity(fl validator.FieldLevel) bool {
	_, err := core.ParseGranularity(fl.Field().String())
	return err == nil
}

func isCategory(fl validator.FieldLevel) bool {
	_, err := core.ParseCategory(fl.Field().String())
	return err == nil
}

// parseDateParam accepts YYYY-MM-DD or YYYY-MM. A bare month resolves to its
// first day, or to its last day when end is set.
func parseDateParam(s string, end bool) (core.Date, error) {
	s = strings.TrimSpace(s)
	if d, err := core.ParseDate(s); err == nil {
		return d, nil
	}
	t, err := time.Parse(monthLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("%q is not a YYYY-MM-DD or YYYY-MM date", s)
	}
	first := core.NewDate(t.Year(), int(t.Month()), 1)
	if end {
		return core.DateOf(first.AddDate(0, 1, -1)), nil
	}
	return first, nil
}

// ParseQuery converts the selector parameters into a Query.
// Missing parameters stay zero so Resolve can apply its defaults.
func ParseQuery(q url.Values) (Query, error) {
	p := queryParams{
		Start:       strings.TrimSpace(q.Get("start")),
		End:         strings.TrimSpace(q.Get("end")),
		Granularity: strings.TrimSpace(q.Get("granularity")),
		Category:    strings.TrimSpace(q.Get("category")),
	}

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return Query{}, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
		out := make(ParamErrors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ParamError{Field: fe.Field(), Message: paramMessage(fe)})
		}
		return Query{}, out
	}

	var query Query
	if p.Start != "" {
		query.Start, _ = parseDateParam(p.Start, false)
	}
	if p.End != "" {
		query.End, _ = parseDateParam(p.End, true)
	}
	if p.Granularity != "" {
		query.Granularity, _ = core.ParseGranularity(p.Granularity)
	}
	if p.Category != "" {
		query.Category, _ = core.ParseCategory(p.Category)
	}
	return query, nil
}

// paramMessage formats a validation failure for display.
func paramMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "dateparam":
		return fmt.Sprintf("fecha inválida %q, use AAAA-MM-DD o AAAA-MM", fe.Value())
	case "granularity":
		return fmt.Sprintf("granularidad desconocida %q", fe.Value())
	case "category":
		return fmt.Sprintf("categoría desconocida %q", fe.Value())
	default:
		return fmt.Sprintf("falló la validación %s", fe.Tag())
	}
}

// Values encodes q back into query parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	if !q.Start.IsZero() {
		v.Set("start", q.Start.String())
	}
	if !q.End.IsZero() {
		v.Set("end", q.End.String())
	}
	if q.Granularity != "" {
		v.Set("granularity", string(q.Granularity))
	}
	if q.Category != "" {
		v.Set("category", string(q.Category))
	}
	return v
}
