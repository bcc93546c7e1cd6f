package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSendPostsJSON(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	svc := NewWebhookService()
	err := svc.Send(context.Background(), srv.URL, map[string]any{
		"content":   "BTCUSDT percent-up",
		"timestamp": "2024-03-01 10:00:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT percent-up", got["content"])
}

func TestWebhookSendNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	svc := NewWebhookService()
	err := svc.Send(context.Background(), srv.URL, map[string]any{"content": "x"})
	assert.Error(t, err)
}
