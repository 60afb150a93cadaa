//go:build windows

package audio

import (
	"fmt"
	"regexp"
	"strings"
)

const captureCommand = "ffmpeg"

const usesFFmpeg = true

// buildCaptureArgs returns FFmpeg arguments capturing raw mono S16LE
// from a DirectShow device to stdout.
func buildCaptureArgs(device string, sampleRate int) []string {
	return []string{
		"-f", "dshow",
		"-i", device,
		"-hide_banner",
		"-loglevel", "warning",
		"-vn",
		"-f", "s16le",
		"-ac", "1",
		"-ar", fmt.Sprintf("%d", sampleRate),
		"pipe:1",
	}
}

// Windows has no safe default input; enumeration must succeed.
const defaultDeviceID = ""

// Matches lines like: [dshow @ addr] "Device Name" (audio)
var dshowPattern = regexp.MustCompile(`\[dshow[^\]]*\]\s*"([^"]+)"\s*\(audio\)`)

func platformDeviceList() deviceListConfig {
	return deviceListConfig{
		// No section markers: FFmpeg versions vary in output format, so
		// filter by the "(audio)" suffix instead.
		Command:       []string{"ffmpeg", "-hide_banner", "-f", "dshow", "-list_devices", "true", "-i", "dummy"},
		DevicePattern: dshowPattern,
		ParseDevice: func(matches []string) *Device {
			if len(matches) < 2 {
				return nil
			}
			name := strings.TrimSpace(matches[1])
			return &Device{
				ID:   "audio=" + name,
				Name: name,
			}
		},
	}
}
