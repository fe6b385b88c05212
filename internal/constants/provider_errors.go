package constants

// Provider error codes
const (
	ErrCodeNotConfigured    = "NOT_CONFIGURED"
	ErrCodeNetworkError     = "NETWORK_ERROR"
	ErrCodeUpstreamStatus   = "UPSTREAM_STATUS"
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodeCircuitOpen      = "CIRCUIT_OPEN"
	ErrCodeRateLimited      = "RATE_LIMITED"
	ErrCodeResourceNotFound = "RESOURCE_NOT_FOUND"
)

var providerErrorMessages = map[string]string{
	ErrCodeNotConfigured:    "The tracker feed URL is not configured",
	ErrCodeNetworkError:     "Could not reach the tracker feed",
	ErrCodeUpstreamStatus:   "The tracker feed returned an error",
	ErrCodeInvalidPayload:   "The tracker feed returned an unreadable payload",
	ErrCodeCircuitOpen:      "The tracker feed is failing; requests are paused",
	ErrCodeRateLimited:      "The tracker feed is rate limiting requests",
	ErrCodeResourceNotFound: "The tracker feed URL does not exist",
}

// GetErrorMessage returns the human-readable message for a provider error code.
func GetErrorMessage(code string) string {
	if msg, ok := providerErrorMessages[code]; ok {
		return msg
	}
	return "Unknown provider error"
}
