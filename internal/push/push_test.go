package push

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DisabledOrUnconfigured_ReturnsNil(t *testing.T) {
	assert.Nil(t, New(Config{Enabled: false, BaseURL: "http://x", APIKey: "k"}))
	assert.Nil(t, New(Config{Enabled: true, APIKey: "k"}))
	assert.Nil(t, New(Config{Enabled: true, BaseURL: "http://x"}))
}

func TestNilService_MethodsAreNoOps(t *testing.T) {
	var s *Service
	assert.NotPanics(t, func() {
		s.NotifyDailySummary(context.Background(), "u1", 3)
		s.NotifyReminder(context.Background(), "u1", "m1", "Sync")
	})
}

func TestNotifyDailySummary_PostsExpectedPayload(t *testing.T) {
	var calls int32
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := New(Config{Enabled: true, BaseURL: srv.URL, APIKey: "secret"})
	require.NotNil(t, s)

	s.NotifyDailySummary(context.Background(), "u1", 4)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "u1", captured["user_id"])
	payload := captured["payload"].(map[string]any)
	assert.Equal(t, "daily_summary", payload["data"].(map[string]any)["type"])
}

func TestNotifyReminder_NonBlockingOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := New(Config{Enabled: true, BaseURL: srv.URL, APIKey: "secret"})
	require.NotNil(t, s)
	assert.NotPanics(t, func() {
		s.NotifyReminder(context.Background(), "u1", "m1", "Sync")
	})
}
