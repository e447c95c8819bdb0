package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"lumina/internal/shared/config"
	"lumina/internal/shared/logger"
)

const (
	defaultEndpoint = "https://api2.amplitude.com/2/httpapi"
	maxAttempts     = 3
	retryDelay      = 500 * time.Millisecond
)

// AmplitudeTracker sends events to the Amplitude HTTP API v2. Tracking is
// best effort: failures are logged and swallowed so analytics never breaks
// the flow that emitted the event.
type AmplitudeTracker struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     logger.Interface
}

func NewAmplitudeTracker(cfg *config.AnalyticsConfig, log logger.Interface) *AmplitudeTracker {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}

	return &AmplitudeTracker{
		apiKey:     cfg.AmplitudeAPIKey,
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     log.With("component", "analytics.amplitude"),
	}
}

type amplitudeEvent struct {
	UserID          string                 `json:"user_id"`
	EventType       string                 `json:"event_type"`
	EventProperties map[string]interface{} `json:"event_properties"`
	Time            int64                  `json:"time"`
	// InsertID makes retried sends idempotent on the Amplitude side.
	InsertID string `json:"insert_id"`
}

type amplitudePayload struct {
	APIKey string           `json:"api_key"`
	Events []amplitudeEvent `json:"events"`
}

// Track sends one event. It retries server errors with backoff, gives up on
// client errors, and returns whether the event was accepted.
func (t *AmplitudeTracker) Track(ctx context.Context, userID, eventType string, properties map[string]interface{}) bool {
	if t.apiKey == "" {
		t.logger.Debugw("amplitude api key not configured, skipping event", "event_type", eventType)
		return false
	}

	if properties == nil {
		properties = map[string]interface{}{}
	}

	payload := amplitudePayload{
		APIKey: t.apiKey,
		Events: []amplitudeEvent{
			{
				UserID:          userID,
				EventType:       eventType,
				EventProperties: properties,
				Time:            time.Now().UnixMilli(),
				InsertID:        uuid.NewString(),
			},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		t.logger.Errorw("failed to marshal amplitude payload", "event_type", eventType, "error", err)
		return false
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		accepted, retryable := t.send(ctx, body, eventType, userID, attempt)
		if accepted {
			return true
		}
		if !retryable || attempt == maxAttempts {
			return false
		}

		select {
		case <-time.After(retryDelay * time.Duration(attempt)):
		case <-ctx.Done():
			return false
		}
	}

	return false
}

func (t *AmplitudeTracker) send(ctx context.Context, body []byte, eventType, userID string, attempt int) (accepted, retryable bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		t.logger.Errorw("failed to create amplitude request", "event_type", eventType, "error", err)
		return false, false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.logger.Errorw("amplitude request failed",
			"event_type", eventType, "user_id", userID, "attempt", attempt, "error", err)
		return false, true
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		t.logger.Debugw("amplitude event sent", "event_type", eventType, "user_id", userID)
		return true, false
	}

	t.logger.Errorw(fmt.Sprintf("amplitude api error (status %d)", resp.StatusCode),
		"event_type", eventType, "user_id", userID, "attempt", attempt)

	// Client errors will not succeed on retry.
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return false, false
	}

	return false, true
}
