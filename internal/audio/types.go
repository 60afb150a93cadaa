// Package audio provides input device discovery, selection and
// fixed-duration burst capture from the host audio subsystem.
package audio

import (
	"errors"
	"time"
)

// Sentinel errors for device and capture operations.
var (
	// ErrNoInputDevice is returned when no input-capable device exists.
	ErrNoInputDevice = errors.New("no audio input device available")

	// ErrStreamLost is returned when a capture stream ends before the
	// requested duration was collected. A cycle either gets a complete
	// burst or none.
	ErrStreamLost = errors.New("capture stream lost before burst completed")
)

// Device represents an audio input endpoint as exposed by the host.
// Devices are re-enumerated every cycle and never cached: USB
// microphones come and go between cycles.
type Device struct {
	// ID is the backend-specific device identifier.
	ID string `json:"id"`
	// Name is the device display name.
	Name string `json:"name"`
	// Channels is the input channel count reported by the backend,
	// or 0 if unknown.
	Channels int `json:"channels,omitempty"`
	// Input reports whether the device can capture.
	Input bool `json:"input"`
}

// Burst is one fixed-duration mono capture window, owned by the cycle
// that produced it. Samples are normalized to [-1, 1).
type Burst struct {
	Samples    []float64
	SampleRate int
	Start      time.Time
	Device     Device
}

// Duration returns the burst length derived from its sample count.
func (b *Burst) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(len(b.Samples)) / float64(b.SampleRate) * float64(time.Second))
}
