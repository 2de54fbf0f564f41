package models

const (
	// UserIDHeader carries the client-asserted identity of the caller.
	UserIDHeader = "X-Sharer-User-Id"

	// DefaultPageSize is used by the server when a listing omits size.
	DefaultPageSize = 20

	// DefaultGatewayPageSize is used by the gateway when a listing omits size.
	DefaultGatewayPageSize = 10

	// DefaultRateLimitRequests requests per user within DefaultRateLimitWindow.
	DefaultRateLimitRequests = 120

	// DefaultRateLimitWindow in seconds.
	DefaultRateLimitWindow = 60
)

const (
	OutboxPending   = "pending"
	OutboxRetry     = "retry"
	OutboxCompleted = "completed"
	OutboxFailed    = "failed"
)
