package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/soundscape-labs/noisewatch/internal/types"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// Backend abstracts the host audio subsystem: anything that can list
// input devices and record a fixed-duration mono burst satisfies it.
// Alternate backends can be substituted without touching the DSP or
// storage logic.
type Backend interface {
	// Devices enumerates input-capable devices. Called fresh every
	// cycle; implementations must not cache across calls.
	Devices(ctx context.Context) ([]Device, error)

	// Capture records duration worth of mono samples at sampleRate from
	// the given device. It blocks for the full duration and returns
	// either a complete Burst or an error, never a partial one.
	Capture(ctx context.Context, device Device, sampleRate int, duration time.Duration) (*Burst, error)
}

// SystemBackend captures through the platform audio toolchain: arecord
// on Linux, FFmpeg (avfoundation/dshow) elsewhere.
type SystemBackend struct {
	ffmpegPath string
}

// NewSystemBackend returns a SystemBackend. ffmpegPath is used on
// platforms that capture through FFmpeg; pass the resolved binary path.
func NewSystemBackend(ffmpegPath string) *SystemBackend {
	return &SystemBackend{ffmpegPath: ffmpegPath}
}

// Devices enumerates input devices via the platform listing command.
// When enumeration yields nothing but the platform has a well-known
// default input, that default is offered so capture can still be tried.
func (b *SystemBackend) Devices(ctx context.Context) ([]Device, error) {
	return withDefaultDevice(listDevices(ctx, platformDeviceList())), nil
}

// withDefaultDevice appends the platform default input when enumeration
// came back empty, so capture can still be tried against it.
func withDefaultDevice(devices []Device) []Device {
	if len(devices) == 0 && defaultDeviceID != "" {
		devices = append(devices, Device{
			ID:    defaultDeviceID,
			Name:  "System Default Input",
			Input: true,
		})
	}
	return devices
}

// Capture opens the device, collects exactly duration worth of samples
// and tears the capture process down before returning, on every path.
func (b *SystemBackend) Capture(ctx context.Context, device Device, sampleRate int, duration time.Duration) (*Burst, error) {
	frames := int(float64(sampleRate) * duration.Seconds())
	if frames <= 0 {
		return nil, fmt.Errorf("invalid burst length: %v at %d Hz", duration, sampleRate)
	}

	command := captureCommand
	if usesFFmpeg && b.ffmpegPath != "" {
		command = b.ffmpegPath
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, buildCaptureArgs(device.ID, sampleRate)...)
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, util.WrapError("create capture pipe", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, util.WrapError("start capture process", err)
	}

	raw := make([]byte, frames*2) // S16LE, mono
	_, readErr := io.ReadFull(stdout, raw)
	ctxErr := ctx.Err() // before our own cancel, so it only reflects the caller's

	// The burst is complete (or lost); stop the process either way.
	cancel()
	_ = cmd.Wait()

	if readErr != nil {
		if ctxErr != nil {
			return nil, ctxErr
		}
		if detail := util.ExtractLastError(stderr.String()); detail != "" {
			return nil, fmt.Errorf("%w: %s", ErrStreamLost, detail)
		}
		return nil, fmt.Errorf("%w: %v", ErrStreamLost, readErr)
	}

	samples := make([]float64, frames)
	for i := range samples {
		samples[i] = float64(int16(binary.LittleEndian.Uint16(raw[2*i:]))) / 32768.0
	}

	return &Burst{
		Samples:    samples,
		SampleRate: sampleRate,
		Start:      start,
		Device:     device,
	}, nil
}
