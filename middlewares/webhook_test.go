package middlewares

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/ofelia/core"
)

func TestNewWebhook_RequiresNameAndURL(t *testing.T) {
	_, err := NewWebhook(&WebhookConfig{})
	require.ErrorIs(t, err, ErrWebhookNameEmpty)

	_, err = NewWebhook(&WebhookConfig{Name: "n"})
	require.ErrorIs(t, err, ErrMissingPresetOrURL)
}

func TestNewWebhook_NilConfigReturnsNilMiddleware(t *testing.T) {
	m, err := NewWebhook(nil)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestNewWebhook_RejectsNonHTTPScheme(t *testing.T) {
	_, err := NewWebhook(&WebhookConfig{Name: "n", URL: "ftp://example.com"})
	require.ErrorIs(t, err, ErrInvalidURLScheme)
}

func TestNewWebhook_EnforcesAllowedHosts(t *testing.T) {
	_, err := NewWebhook(&WebhookConfig{Name: "n", URL: "http://evil.example.com", AllowedHosts: []string{"good.example.com"}})
	require.ErrorIs(t, err, ErrHostNotAllowed)
}

func TestWebhook_PostsPayloadOnCompletion(t *testing.T) {
	var received webhookPayloadProbe
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, err := NewWebhook(&WebhookConfig{Name: "n", URL: srv.URL})
	require.NoError(t, err)

	jc := newTestJobContext(t, "deploy")
	_, err = m.Call(func(*core.JobContext) (any, error) { return nil, nil }, jc)
	require.NoError(t, err)

	assert.Equal(t, "n", received.WebhookName)
	assert.Equal(t, "deploy", received.RouteName)
}

func TestWebhook_OnlyOnErrorSkipsSuccess(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, err := NewWebhook(&WebhookConfig{Name: "n", URL: srv.URL, OnlyOnError: true})
	require.NoError(t, err)

	jc := newTestJobContext(t, "deploy")
	_, err = m.Call(func(*core.JobContext) (any, error) { return nil, nil }, jc)
	require.NoError(t, err)
	assert.False(t, called)
}

type webhookPayloadProbe struct {
	WebhookName string `json:"webhook_name"`
	RouteName   string `json:"route_name"`
}
