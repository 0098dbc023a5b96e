package constants

// Context keys set by middleware and read by handlers
const (
	// Request context keys
	ContextKeyRequestID = "requestID"
	ContextKeyRawBody   = "rawBody"

	// Contact context keys
	ContextKeySubmission = "submission"
)

// MaxBodyBytes caps request bodies on the mail route
const MaxBodyBytes = 16 << 10
