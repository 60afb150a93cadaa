//go:build darwin

package audio

import (
	"fmt"
	"regexp"
)

// captureCommand is overridden by the resolved FFmpeg path at runtime.
const captureCommand = "ffmpeg"

const usesFFmpeg = true

// buildCaptureArgs returns FFmpeg arguments capturing raw mono S16LE
// from an AVFoundation device to stdout.
func buildCaptureArgs(device string, sampleRate int) []string {
	return []string{
		"-f", "avfoundation",
		"-i", device,
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"pipe:1",
	}
}

const defaultDeviceID = ":0"

var avfoundationPattern = regexp.MustCompile(`\[AVFoundation[^\]]*\]\s*\[(\d+)\]\s*(.+)`)

func platformDeviceList() deviceListConfig {
	return deviceListConfig{
		Command:          []string{"ffmpeg", "-hide_banner", "-f", "avfoundation", "-list_devices", "true", "-i", ""},
		AudioStartMarker: "AVFoundation audio devices:",
		AudioStopMarker:  "AVFoundation video devices:",
		DevicePattern:    avfoundationPattern,
		ParseDevice: func(matches []string) *Device {
			if len(matches) < 3 {
				return nil
			}
			return &Device{
				ID:   ":" + matches[1],
				Name: matches[2],
			}
		},
	}
}
