package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldError     = "error"
	FieldDuration  = "duration"
	FieldTxID      = "tx_id"
	FieldSheetID   = "sheet_id"
	FieldCount     = "count"
	FieldPath      = "path"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentSync    = "sync"
	ComponentSession = "session"
	ComponentAssist  = "assist"
	ComponentProfile = "profile"
	ComponentCLI     = "cli"
)

// Operations defines standard operation names
const (
	OpAdd     = "add"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpImport  = "import"
	OpRestore = "restore"
	OpBackup  = "backup"
	OpPush    = "push"
	OpScan    = "scan"
	OpAdvise  = "advise"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithTx(id string) LogFields {
	f[FieldTxID] = id
	return f
}

func (f LogFields) WithSheet(id string) LogFields {
	f[FieldSheetID] = id
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
