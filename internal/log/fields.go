package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldUserID    = "user_id"
	FieldRevision  = "revision"
	FieldOperation = "operation"
	FieldDuration  = "duration_ms"
	FieldError     = "error"
	FieldErrorType = "error_type"
	FieldCreated   = "created"
	FieldRangeFrom = "from"
	FieldRangeTo   = "to"
	FieldSheetsRef = "sheets_ref"
)

// Standard component names
const (
	ComponentApp     = "app"
	ComponentCLI     = "cli"
	ComponentLedger  = "ledger"
	ComponentPlan    = "plan"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentCache   = "cache"
	ComponentBackend = "backend"
)

// Standard operation names
const (
	OpSave      = "save"
	OpApply     = "apply"
	OpExpand    = "expand"
	OpNormalize = "normalize"
	OpSync      = "sync"
	OpPublish   = "publish"
	OpImport    = "import"
	OpReset     = "reset"
)

// Error type categories
const (
	ErrorTypeConflict = "conflict_error"
	ErrorTypeCorrupt  = "corrupt_document"
)

// LogFields builds a set of structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithUser(userID string) LogFields {
	f[FieldUserID] = userID
	return f
}

func (f LogFields) WithRevision(rev int64) LogFields {
	f[FieldRevision] = rev
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRange adds an inclusive ISO date range.
func (f LogFields) WithRange(from, to string) LogFields {
	f[FieldRangeFrom] = from
	f[FieldRangeTo] = to
	return f
}

// ToSlice flattens the fields into slog key/value arguments.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
