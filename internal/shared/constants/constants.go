package constants

const (
	// Environment constants
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"

	// HTTP Headers
	HeaderContentType   = "Content-Type"
	HeaderAuthorization = "Authorization"
	HeaderXRequestID    = "X-Request-ID"

	// Context keys
	ContextKeyUserID    = "user_id"
	ContextKeyRequestID = "request_id"

	// Database table names
	TableUsers               = "users"
	TableTransactionMappings = "transaction_mappings"
	TableWebhookEvents       = "webhook_events"
	TableNotificationLogs    = "notification_logs"
)
