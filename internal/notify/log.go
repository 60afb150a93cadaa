package notify

import (
	"encoding/json"
	"fmt"
	"os"
)

// alertLogEntry is one JSON line in the alert log file.
type alertLogEntry struct {
	Timestamp       string  `json:"timestamp"`
	Event           string  `json:"event"`
	DeviceID        string  `json:"device_id"`
	LAeqDBFS        float64 `json:"laeq_dbfs"`
	ThresholdDBFS   float64 `json:"threshold_dbfs"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// LogAlertStart appends an episode-start entry to the alert log.
func LogAlertStart(path, deviceID string, level, threshold float64) error {
	return appendAlertEntry(path, alertLogEntry{
		Timestamp:     timestampUTC(),
		Event:         "noise_alert",
		DeviceID:      deviceID,
		LAeqDBFS:      level,
		ThresholdDBFS: threshold,
	})
}

// LogAlertEnd appends an episode-end entry to the alert log.
func LogAlertEnd(path, deviceID string, level, threshold, episodeSecs float64) error {
	return appendAlertEntry(path, alertLogEntry{
		Timestamp:       timestampUTC(),
		Event:           "noise_recovered",
		DeviceID:        deviceID,
		LAeqDBFS:        level,
		ThresholdDBFS:   threshold,
		DurationSeconds: episodeSecs,
	})
}

func appendAlertEntry(path string, entry alertLogEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal alert entry: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open alert log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write alert entry: %w", err)
	}
	return nil
}
