package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const webhookTimeout = 10 * time.Second

// WebhookPayload is the JSON body posted to the alert webhook.
type WebhookPayload struct {
	Event           string  `json:"event"`
	DeviceID        string  `json:"device_id"`
	LAeqDBFS        float64 `json:"laeq_dbfs"`
	ThresholdDBFS   float64 `json:"threshold_dbfs"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	Message         string  `json:"message"`
	Timestamp       string  `json:"timestamp"`
}

// SendAlertWebhook posts an episode-start notification.
func SendAlertWebhook(url, deviceID string, level, threshold float64) error {
	return postWebhook(url, WebhookPayload{
		Event:         "noise_alert",
		DeviceID:      deviceID,
		LAeqDBFS:      level,
		ThresholdDBFS: threshold,
		Message:       fmt.Sprintf("LAeq %.1f dBFS exceeded threshold %.1f dBFS on %s", level, threshold, deviceID),
		Timestamp:     timestampUTC(),
	})
}

// SendRecoveryWebhook posts an episode-end notification.
func SendRecoveryWebhook(url, deviceID string, level, threshold, episodeSecs float64) error {
	return postWebhook(url, WebhookPayload{
		Event:           "noise_recovered",
		DeviceID:        deviceID,
		LAeqDBFS:        level,
		ThresholdDBFS:   threshold,
		DurationSeconds: episodeSecs,
		Message:         fmt.Sprintf("LAeq %.1f dBFS back below threshold %.1f dBFS on %s after %.0fs", level, threshold, deviceID, episodeSecs),
		Timestamp:       timestampUTC(),
	})
}

func postWebhook(url string, payload WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	client := &http.Client{Timeout: webhookTimeout}
	resp, err := client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
