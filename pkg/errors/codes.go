package errors

// Error codes shared across transports
const (
	ErrInternal        = "INTERNAL"
	ErrNotFound        = "NOT_FOUND"
	ErrInvalidArgument = "INVALID_ARGUMENT"
	ErrUnauthenticated = "UNAUTHENTICATED"
	ErrUnauthorized    = "UNAUTHORIZED"
	ErrConflict        = "CONFLICT"
	ErrTimeout         = "TIMEOUT"
	ErrNotImplemented  = "NOT_IMPLEMENTED"
	// ErrUnprocessable marks source data the translator refuses to convert
	ErrUnprocessable = "UNPROCESSABLE"
	// ErrUpstream marks a failure reported by the CRM or billing platform
	ErrUpstream = "UPSTREAM"
)
