// Package eventlog provides unified event logging for the monitor.
// It captures cycle events (complete, failed, sleep skipped) and alert
// events in a single JSON lines file for downstream batch processing.
package eventlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

// Cycle event types.
const (
	CycleComplete EventType = "cycle_complete"
	CycleFailed   EventType = "cycle_failed"
	SleepSkipped  EventType = "sleep_skipped"
)

// Alert event types.
const (
	AlertStart EventType = "alert_start"
	AlertEnd   EventType = "alert_end"
)

// Event represents a single log entry with type-specific details.
type Event struct {
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Message   string    `json:"msg,omitempty"`
	Details   any       `json:"details,omitempty"`
}

// CycleDetails carries measurement context for cycle events.
type CycleDetails struct {
	BaseName  string  `json:"base_name,omitempty"`
	LAeqDBFS  float64 `json:"laeq_dbfs,omitempty"`
	DeviceID  string  `json:"device_id,omitempty"`
	Error     string  `json:"error,omitempty"`
	OverrunMs int64   `json:"overrun_ms,omitempty"`
}

// AlertDetails carries threshold context for alert events.
type AlertDetails struct {
	LAeqDBFS     float64 `json:"laeq_dbfs"`
	ThresholdDB  float64 `json:"threshold_dbfs"`
	DurationSecs float64 `json:"duration_seconds,omitempty"`
}

// Logger writes events to a JSON lines file. It is safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
}

// NewLogger creates an event logger appending to the file at filePath.
func NewLogger(filePath string) (*Logger, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	return &Logger{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	return l.encoder.Encode(event)
}

// LogCycle logs a cycle event with its measurement context.
func (l *Logger) LogCycle(eventType EventType, message string, details *CycleDetails) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Message:   message,
		Details:   details,
	})
}

// LogAlert logs an alert start or end event.
func (l *Logger) LogAlert(eventType EventType, level, threshold, durationSecs float64) error {
	return l.Log(&Event{
		Timestamp: time.Now(),
		Type:      eventType,
		Details: &AlertDetails{
			LAeqDBFS:     level,
			ThresholdDB:  threshold,
			DurationSecs: durationSecs,
		},
	})
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
