package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func TestReplayPostsEveryMessage(t *testing.T) {
	var (
		mu  sync.Mutex
		got []webhookPayload
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, webhookPath, r.URL.Path)
		assert.Equal(t, "s3cret", r.Header.Get("X-Webhook-Secret"))
		var p webhookPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true,"leadId":1}`))
	}))
	defer srv.Close()

	sim := newSimulator(srv.URL+"/", "s3cret")
	failed := sim.replay(context.Background(), conversations[2], 0)

	assert.Zero(t, failed)
	require.Len(t, got, 2)
	assert.Equal(t, "5551977777777", got[0].Phone)
	assert.Equal(t, "Pedro Costa", got[0].Name)
	assert.True(t, strings.HasPrefix(got[0].MessageID, "sim-"))
	assert.NotEqual(t, got[0].MessageID, got[1].MessageID)
}

func TestSendReportsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"success":false,"error":"lead store unavailable"}`))
	}))
	defer srv.Close()

	assert.False(t, newSimulator(srv.URL, "").send(context.Background(), "5551234567", "Ana", "Hi"))
}

func TestSendNonJSONResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := newSimulator(srv.URL, "").post(context.Background(), webhookPayload{Phone: "1"})
	assert.ErrorContains(t, err, "status 404")
}
