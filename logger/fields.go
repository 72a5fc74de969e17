package logger

// Field keys shared by every gears package.
const (
	FieldComponent    = "component"
	FieldTraceID      = "trace_id"
	FieldSpanID       = "span_id"
	FieldRequestID    = "request_id"
	FieldPipeline     = "pipeline"
	FieldRegistration = "registration"
	FieldStep         = "step"
	FieldReader       = "reader"
	FieldMode         = "mode"
	FieldOperation    = "operation"
	FieldStatus       = "status"
	FieldError        = "error"
	FieldDuration     = "duration_ms"
	FieldLevel        = "pipeline_level"
)

// Fields pairs up alternating keys and values. Non-string keys and a
// trailing key without a value are skipped.
//
//	log.Info("registered", logger.Fields(logger.FieldRegistration, id))
func Fields(kvs ...any) map[string]any {
	m := make(map[string]any, len(kvs)/2)
	for i := 1; i < len(kvs); i += 2 {
		if key, ok := kvs[i-1].(string); ok {
			m[key] = kvs[i]
		}
	}
	return m
}

// ErrorFields tags a failed operation.
func ErrorFields(op string, err error) map[string]any {
	return Fields(FieldOperation, op, FieldError, err.Error())
}
