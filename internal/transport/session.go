package transport

import (
	"context"
	"net/http"
	"strings"
)

// SessionHeader carries the MCP session id on streamable HTTP requests.
const SessionHeader = "Mcp-Session-Id"

type sessionKey struct{}

// SessionIDFromContext returns the MCP session id of the request, if any.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionKey{}).(string)
	return id, ok && id != ""
}

// SessionMiddleware records the MCP session id for request logging. Requests
// without one, like the first initialize call, pass through unchanged.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(SessionHeader))
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}
