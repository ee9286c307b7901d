package log

import "time"

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldSource      = "source"
	FieldAttempt     = "attempt"
	FieldRows        = "rows"
	FieldRowsKept    = "rows_kept"
	FieldStart       = "start"
	FieldEnd         = "end"
	FieldGranularity = "granularity"
	FieldCategory    = "category"
	FieldColumn      = "column"
	FieldMode        = "mode"
	FieldReplaced    = "replaced"
	FieldCache       = "cache"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentDataset = "dataset"
	ComponentSource  = "source"
	ComponentReport  = "report"
	ComponentCache   = "cache"
	ComponentExport  = "export"
)

// Operations defines standard operation names
const (
	OpFetch     = "fetch"
	OpClean     = "clean"
	OpLoad      = "load"
	OpFilter    = "filter"
	OpAggregate = "aggregate"
	OpExport    = "export"
	OpStartup   = "startup"
	OpShutdown  = "shutdown"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSelection adds the dashboard selector values
func (f LogFields) WithSelection(start, end, granularity, category string) LogFields {
	f[FieldStart] = start
	f[FieldEnd] = end
	f[FieldGranularity] = granularity
	f[FieldCategory] = category
	return f
}

// WithDuration adds the elapsed time in milliseconds
func (f LogFields) WithDuration(d time.Duration) LogFields {
	f[FieldDuration] = d.Milliseconds()
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
