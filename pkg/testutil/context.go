package testutil

import (
	"net/http"

	"identitypulse/pkg/requestcontext"
)

// WithRequestID adds a request ID to the request context, as the request ID
// middleware would. Use it when calling a handler method directly.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
