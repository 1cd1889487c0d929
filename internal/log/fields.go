package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldAccountID   = "account_id"
	FieldContoID     = "conto_id"
	FieldTxID        = "transaction_id"
	FieldTxType      = "transaction_type"
	FieldAmount      = "amount"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldRowNumber   = "row"
	FieldSheetsRef   = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentImporter  = "importer"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
)
