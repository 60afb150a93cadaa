// Package types defines shared data types used across the monitor.
package types

import "time"

// MonitorState represents the scheduler's position in the duty cycle.
type MonitorState string

// Duty cycle states.
const (
	StateIdle       MonitorState = "idle"
	StateCapturing  MonitorState = "capturing"
	StateProcessing MonitorState = "processing"
	StateStoring    MonitorState = "storing"
	StateSleeping   MonitorState = "sleeping"
	StateStopped    MonitorState = "stopped"
)

// Measurement is the durable output of one measurement cycle: a single
// A-weighted equivalent level plus the burst's provenance.
type Measurement struct {
	// DeviceID is the configured identifier of the physical unit.
	DeviceID string `json:"device_id"`
	// CaptureDevice is the transient audio device the burst came from.
	CaptureDevice string `json:"capture_device"`
	// Timestamp is the burst start time.
	Timestamp time.Time `json:"timestamp"`
	// Duration is the burst length.
	Duration time.Duration `json:"duration"`
	// SampleRate is the capture sample rate in Hz.
	SampleRate int `json:"sample_rate"`
	// Channels is the channel count (always 1 for this monitor).
	Channels int `json:"channels"`
	// LAeqDBFS is the A-weighted equivalent level in dB relative to
	// digital full scale. Serialized values are clamped to a floor.
	LAeqDBFS float64 `json:"laeq_dbfs"`
}

// RecordingUnit is the persisted pair of artifacts for one burst.
// Both paths share a timestamp-derived base name.
type RecordingUnit struct {
	BaseName     string `json:"base_name"`
	AudioPath    string `json:"audio_path"`
	MetadataPath string `json:"metadata_path"`
}

// MonitorStatus is a point-in-time snapshot of the scheduler for the
// status API.
type MonitorStatus struct {
	State           MonitorState `json:"state"`
	Uptime          string       `json:"uptime"`
	CyclesCompleted int64        `json:"cycles_completed"`
	CyclesFailed    int64        `json:"cycles_failed"`
	LastError       string       `json:"last_error,omitempty"`
	LastMeasurement *Measurement `json:"last_measurement,omitempty"`
}

// Timing constants for subprocess lifecycle management.
const (
	// ShutdownTimeout is the duration to wait for a capture or encode
	// subprocess to exit gracefully before it is killed.
	ShutdownTimeout = 3000 * time.Millisecond
)
