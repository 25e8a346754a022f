package resp

// Machine-readable codes carried in API error and status bodies.
const (
	CodeBadRequest      = "bad_request"
	CodeInternalError   = "internal_error"
	CodeQueued          = "queued"
	CodeNotConnected    = "not_connected"
	CodeTooManyRequests = "too_many_requests"
	CodeNotLoggedIn     = "not_logged_in"
)
