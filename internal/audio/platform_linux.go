//go:build linux

package audio

import (
	"fmt"
	"regexp"
)

// captureCommand is the executable used for burst capture on Linux.
const captureCommand = "arecord"

// usesFFmpeg reports whether this platform captures through FFmpeg.
const usesFFmpeg = false

// buildCaptureArgs returns arecord arguments producing raw mono S16LE
// on stdout at the requested sample rate.
func buildCaptureArgs(device string, sampleRate int) []string {
	return []string{
		"-D", device,
		"-f", "S16_LE",
		"-r", fmt.Sprintf("%d", sampleRate),
		"-c", "1",
		"-t", "raw",
		"-q",
		"-",
	}
}

// defaultDeviceID is used when enumeration finds nothing usable but a
// default input may still exist.
const defaultDeviceID = "default"

var alsaCardPattern = regexp.MustCompile(`card\s+(\d+):\s+(\w+)\s+\[([^\]]+)\]`)

func platformDeviceList() deviceListConfig {
	return deviceListConfig{
		Command:       []string{"arecord", "-l"},
		DevicePattern: alsaCardPattern,
		ParseDevice: func(matches []string) *Device {
			if len(matches) < 4 {
				return nil
			}
			return &Device{
				ID:   "default:CARD=" + matches[2],
				Name: matches[3],
			}
		},
	}
}
