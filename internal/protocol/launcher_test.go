// internal/protocol/launcher_test.go
package protocol

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveWebSocketURLPassesThroughWS(t *testing.T) {
	got, err := ResolveWebSocketURL(context.Background(), "ws://127.0.0.1:9222/devtools/browser/abc")
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:9222/devtools/browser/abc", got)
}

func TestResolveWebSocketURLQueriesDiscovery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/version", r.URL.Path)
		_, _ = w.Write([]byte(`{"Browser":"Chrome/140.0","webSocketDebuggerUrl":"ws://127.0.0.1:41001/devtools/browser/xyz"}`))
	}))
	defer server.Close()
	defer http.DefaultClient.CloseIdleConnections()

	got, err := ResolveWebSocketURL(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:41001/devtools/browser/xyz", got)
}

func TestResolveWebSocketURLRejectsBadScheme(t *testing.T) {
	_, err := ResolveWebSocketURL(context.Background(), "ftp://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scheme")
}

func TestResolveWebSocketURLMissingEndpoint(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"Browser":"Chrome/140.0"}`))
	}))
	defer server.Close()
	defer http.DefaultClient.CloseIdleConnections()

	_, err := ResolveWebSocketURL(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webSocketDebuggerUrl")
}

func TestAwaitEndpointParsesAnnouncement(t *testing.T) {
	stderr := strings.NewReader(
		"[WARNING] something unrelated\n" +
			"DevTools listening on ws://127.0.0.1:33445/devtools/browser/deadbeef\n")
	got, err := awaitEndpoint(context.Background(), stderr)
	require.NoError(t, err)
	assert.Equal(t, "ws://127.0.0.1:33445/devtools/browser/deadbeef", got)
}

func TestAwaitEndpointProcessExit(t *testing.T) {
	stderr := strings.NewReader("browser crashed on startup\n")
	_, err := awaitEndpoint(context.Background(), stderr)
	require.Error(t, err)
}
