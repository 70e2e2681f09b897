package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionMiddleware(t *testing.T) {
	var got string
	var ok bool
	handler := SessionMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got, ok = SessionIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set(SessionHeader, " sess-42 ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.True(t, ok)
	require.Equal(t, "sess-42", got)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/mcp", nil))
	require.False(t, ok)
	require.Empty(t, got)

	req = httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set(SessionHeader, "   ")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	require.False(t, ok)
}
