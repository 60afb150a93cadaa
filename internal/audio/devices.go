package audio

import (
	"context"
	"log/slog"
	"os/exec"
	"regexp"
	"strings"
)

// deviceListConfig defines how to enumerate audio input devices for a
// platform: the command to run, markers delimiting the audio section of
// its output, and a pattern extracting one device per line.
type deviceListConfig struct {
	// Command and args to list devices.
	Command []string

	// AudioStartMarker indicates the start of the audio devices section.
	AudioStartMarker string

	// AudioStopMarker indicates the end of the audio devices section (optional).
	AudioStopMarker string

	// DevicePattern is the regex extracting device info from a line.
	DevicePattern *regexp.Regexp

	// ParseDevice converts regex matches to a Device.
	ParseDevice func(matches []string) *Device
}

// listDevices runs the platform enumeration command and parses its
// output. Enumeration failures yield an empty list, not an error; the
// selector decides whether that is fatal for the cycle.
func listDevices(ctx context.Context, cfg deviceListConfig) []Device {
	if len(cfg.Command) == 0 || cfg.DevicePattern == nil {
		return nil
	}

	cmd := exec.CommandContext(ctx, cfg.Command[0], cfg.Command[1:]...)
	output, err := cmd.CombinedOutput()
	if err != nil && len(output) == 0 {
		slog.Error("failed to list audio devices", "command", cfg.Command[0], "error", err)
		return nil
	}

	return parseDeviceList(string(output), cfg)
}

// parseDeviceList extracts devices from enumeration command output.
func parseDeviceList(output string, cfg deviceListConfig) []Device {
	var devices []Device
	inAudioSection := cfg.AudioStartMarker == ""

	for line := range strings.Lines(output) {
		line = strings.TrimRight(line, "\r\n")
		if cfg.AudioStartMarker != "" && strings.Contains(line, cfg.AudioStartMarker) {
			inAudioSection = true
			continue
		}
		if cfg.AudioStopMarker != "" && strings.Contains(line, cfg.AudioStopMarker) {
			inAudioSection = false
			continue
		}
		if !inAudioSection {
			continue
		}

		// DirectShow repeats each device on an "Alternative name" line.
		if strings.Contains(line, "Alternative name") {
			continue
		}

		matches := cfg.DevicePattern.FindStringSubmatch(line)
		if len(matches) > 0 && cfg.ParseDevice != nil {
			if dev := cfg.ParseDevice(matches); dev != nil {
				dev.Input = true
				devices = append(devices, *dev)
			}
		}
	}

	return devices
}
