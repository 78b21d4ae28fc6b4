package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netresearch/ofelia/core"
)

func TestNewSlack_EmptyConfigReturnsNilMiddleware(t *testing.T) {
	m := NewSlack(&SlackConfig{})
	assert.Nil(t, m)
}

func TestSlack_PostsOnFailure(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewSlack(&SlackConfig{SlackWebhook: srv.URL})
	require.NotNil(t, m)

	jc := newTestJobContext(t, "deploy")
	_, err := m.Call(func(*core.JobContext) (any, error) { return nil, errors.New("boom") }, jc)
	require.Error(t, err)
	assert.True(t, called)
}

func TestSlack_OnlyOnErrorSkipsSuccess(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := NewSlack(&SlackConfig{SlackWebhook: srv.URL, SlackOnlyOnError: true})
	require.NotNil(t, m)

	jc := newTestJobContext(t, "deploy")
	_, err := m.Call(func(*core.JobContext) (any, error) { return nil, nil }, jc)
	require.NoError(t, err)
	assert.False(t, called)
}

func TestSlack_InvalidWebhookURLSkipsSilently(t *testing.T) {
	m := NewSlack(&SlackConfig{SlackWebhook: "not a url"})
	require.NotNil(t, m)

	jc := newTestJobContext(t, "deploy")
	_, err := m.Call(func(*core.JobContext) (any, error) { return nil, errors.New("boom") }, jc)
	require.Error(t, err)
}
