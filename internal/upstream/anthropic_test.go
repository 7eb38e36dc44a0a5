package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamMessageRequiresAPIKey(t *testing.T) {
	client := NewClient("")
	_, err := client.StreamMessage(context.Background(), "hello")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")
}

func TestStreamMessageSendsPinnedRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/messages", r.URL.Path)
		require.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		require.Equal(t, Model, payload["model"])
		require.Equal(t, float64(MaxTokens), payload["max_tokens"])
		require.Equal(t, true, payload["stream"])

		messages := payload["messages"].([]any)
		require.Len(t, messages, 1)
		msg := messages[0].(map[string]any)
		require.Equal(t, "user", msg["role"])
		require.Equal(t, "write me a landing page", msg["content"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = w.Write([]byte("event: message_start\ndata: {}\n\n"))
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	body, err := client.StreamMessage(context.Background(), "write me a landing page")
	require.NoError(t, err)
	defer body.Close()

	streamed, err := io.ReadAll(body)
	require.NoError(t, err)
	require.Contains(t, string(streamed), "message_start")
}

func TestStreamMessageSurfacesUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`))
	}))
	defer server.Close()

	client := NewClient("bad-key")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	_, err := client.StreamMessage(context.Background(), "hello")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Equal(t, "invalid x-api-key", statusErr.Message)
}

func TestStreamMessageToleratesMalformedErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>gateway woes</html>"))
	}))
	defer server.Close()

	client := NewClient("test-key")
	client.BaseURL = server.URL
	client.HTTPClient = server.Client()

	_, err := client.StreamMessage(context.Background(), "hello")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, "upstream error", statusErr.Message)
}
