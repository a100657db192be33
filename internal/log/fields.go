package log

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldTripID       = "trip_id"
	FieldUserID       = "user_id"
	FieldSource       = "source"
	FieldRecords      = "records"
	FieldCurrencyID   = "currency_id"
	FieldCurrencyCode = "currency_code"
	FieldTotal        = "total_estimated_cost"
	FieldAlerts       = "alerts"
	FieldUnconverted  = "unconverted"
	FieldSharedToken  = "shared_token"
	FieldRatesFile    = "rates_file"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentBudget   = "budget"
	ComponentFetcher  = "fetcher"
	ComponentCurrency = "currency"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentCache    = "cache"
	ComponentRates    = "rates_file"
	ComponentShare    = "share"
	ComponentCLI      = "cli"
)

// Operations defines standard operation names
const (
	OpCompute    = "compute_budget"
	OpSummaries  = "list_summaries"
	OpFetch      = "fetch"
	OpConvert    = "convert"
	OpResolve    = "resolve_currency"
	OpInvalidate = "invalidate_cache"
	OpRefresh    = "refresh_currencies"
	OpShare      = "share"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
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

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
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

// WithTrip adds trip and user fields
func (f LogFields) WithTrip(tripID, userID string) LogFields {
	f[FieldTripID] = tripID
	if userID != "" {
		f[FieldUserID] = userID
	}
	return f
}

// WithSource adds the cost source name
func (f LogFields) WithSource(source string) LogFields {
	f[FieldSource] = source
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
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
