package notifier

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookNotifierPostsPayload(t *testing.T) {
	var got map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := &WebhookNotifier{WebhookURL: srv.URL}

	require.NoError(t, n.Notify("downloaded 5 of 6 assets"))
	assert.Equal(t, "downloaded 5 of 6 assets", got["text"])
}

func TestWebhookNotifierRejectsFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	n := &WebhookNotifier{WebhookURL: srv.URL}

	assert.Error(t, n.Notify("message"))
}

func TestWebhookNotifierEmptyURL(t *testing.T) {
	n := &WebhookNotifier{}

	assert.Error(t, n.Notify("message"))
}
