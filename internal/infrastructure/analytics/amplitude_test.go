package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lumina/internal/shared/config"
	"lumina/internal/shared/logger"
)

func newTracker(endpoint, apiKey string) *AmplitudeTracker {
	return NewAmplitudeTracker(&config.AnalyticsConfig{
		AmplitudeAPIKey: apiKey,
		Endpoint:        endpoint,
	}, logger.NewLogger())
}

func TestTrack_SendsEvent(t *testing.T) {
	var received amplitudePayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tracker := newTracker(server.URL, "test-key")

	ok := tracker.Track(context.Background(), "usr_abc", "notification_sent", map[string]interface{}{
		"channel": "email",
	})

	assert.True(t, ok)
	assert.Equal(t, "test-key", received.APIKey)
	require.Len(t, received.Events, 1)
	assert.Equal(t, "usr_abc", received.Events[0].UserID)
	assert.Equal(t, "notification_sent", received.Events[0].EventType)
	assert.Equal(t, "email", received.Events[0].EventProperties["channel"])
}

func TestTrack_SkipsWithoutAPIKey(t *testing.T) {
	tracker := newTracker("http://localhost:0", "")

	ok := tracker.Track(context.Background(), "usr_abc", "notification_sent", nil)

	assert.False(t, ok)
}

func TestTrack_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	tracker := newTracker(server.URL, "test-key")

	ok := tracker.Track(context.Background(), "usr_abc", "event", nil)

	assert.False(t, ok)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTrack_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tracker := newTracker(server.URL, "test-key")

	ok := tracker.Track(context.Background(), "usr_abc", "event", nil)

	assert.True(t, ok)
	assert.Equal(t, int32(3), calls.Load())
}
