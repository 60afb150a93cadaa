package audio

import (
	"errors"
	"regexp"
	"testing"
)

func TestSelectInputNoDevices(t *testing.T) {
	if _, err := SelectInput(nil, "", nil); !errors.Is(err, ErrNoInputDevice) {
		t.Errorf("SelectInput(nil) error = %v, want ErrNoInputDevice", err)
	}

	// Output-only devices don't count.
	outputs := []Device{{ID: "hdmi", Name: "HDMI Out", Input: false}}
	if _, err := SelectInput(outputs, "", nil); !errors.Is(err, ErrNoInputDevice) {
		t.Errorf("SelectInput(outputs only) error = %v, want ErrNoInputDevice", err)
	}
}

func TestSelectInputExplicitID(t *testing.T) {
	devices := []Device{
		{ID: "default", Name: "Default Input", Input: true},
		{ID: "hw:1", Name: "USB Microphone", Input: true},
	}

	dev, err := SelectInput(devices, "hw:1", nil)
	if err != nil {
		t.Fatalf("SelectInput: %v", err)
	}
	if dev.ID != "hw:1" {
		t.Errorf("selected %q, want hw:1", dev.ID)
	}
}

func TestSelectInputExplicitIDMissing(t *testing.T) {
	devices := []Device{
		{ID: "default", Name: "Default Input", Input: true},
		{ID: "hw:1", Name: "USB Microphone", Input: true},
	}

	// A configured device that got unplugged falls back to the match
	// policy so monitoring continues on whatever input remains.
	dev, err := SelectInput(devices, "hw:9", []string{"usb"})
	if err != nil {
		t.Fatalf("SelectInput: %v", err)
	}
	if dev.ID != "hw:1" {
		t.Errorf("selected %q, want fallback hw:1", dev.ID)
	}
}

func TestSelectInputMatchSubstring(t *testing.T) {
	devices := []Device{
		{ID: "hw:0", Name: "HDA Intel PCH", Input: true},
		{ID: "hw:1", Name: "Blue USB Microphone", Input: true},
	}

	dev, err := SelectInput(devices, "", []string{"usb", "mic"})
	if err != nil {
		t.Fatalf("SelectInput: %v", err)
	}
	if dev.ID != "hw:1" {
		t.Errorf("selected %q, want hw:1 (matched by name substring)", dev.ID)
	}
}

func TestSelectInputMatchIsCaseInsensitive(t *testing.T) {
	devices := []Device{
		{ID: "hw:0", Name: "HDA Intel PCH", Input: true},
		{ID: "hw:1", Name: "SAMSON MIC", Input: true},
	}

	dev, err := SelectInput(devices, "", []string{"mic"})
	if err != nil {
		t.Fatalf("SelectInput: %v", err)
	}
	if dev.ID != "hw:1" {
		t.Errorf("selected %q, want hw:1", dev.ID)
	}
}

func TestSelectInputFallsBackToFirstInput(t *testing.T) {
	devices := []Device{
		{ID: "hdmi", Name: "HDMI Out", Input: false},
		{ID: "hw:0", Name: "Onboard Audio", Input: true},
		{ID: "hw:1", Name: "Second Card", Input: true},
	}

	dev, err := SelectInput(devices, "", []string{"usb"})
	if err != nil {
		t.Fatalf("SelectInput: %v", err)
	}
	if dev.ID != "hw:0" {
		t.Errorf("selected %q, want first input hw:0", dev.ID)
	}
}

func TestParseDeviceListSectionsAndPattern(t *testing.T) {
	cfg := deviceListConfig{
		AudioStartMarker: "AUDIO DEVICES",
		AudioStopMarker:  "OTHER DEVICES",
		DevicePattern:    mustPattern(t, `^\s*\[(\d+)\]\s+(.+)$`),
		ParseDevice: func(matches []string) *Device {
			return &Device{ID: matches[1], Name: matches[2]}
		},
	}

	output := "header noise\n" +
		"AUDIO DEVICES\n" +
		" [0] Built-in Microphone\n" +
		" [1] USB Audio Device\n" +
		"   Alternative name [1] USB Audio Device\n" +
		"OTHER DEVICES\n" +
		" [2] Not An Audio Device\n"

	devices := parseDeviceList(output, cfg)
	if len(devices) != 2 {
		t.Fatalf("parsed %d devices, want 2: %+v", len(devices), devices)
	}
	if devices[0].Name != "Built-in Microphone" || devices[1].ID != "1" {
		t.Errorf("unexpected parse result: %+v", devices)
	}
	for _, d := range devices {
		if !d.Input {
			t.Errorf("device %q not marked as input", d.Name)
		}
	}
}

func TestWithDefaultDevice(t *testing.T) {
	devices := withDefaultDevice(nil)
	if defaultDeviceID == "" {
		if len(devices) != 0 {
			t.Fatalf("got %d devices, want none on a platform without a default input", len(devices))
		}
		return
	}
	if len(devices) != 1 {
		t.Fatalf("got %d devices, want the platform default", len(devices))
	}
	if devices[0].ID != defaultDeviceID || !devices[0].Input {
		t.Errorf("unexpected default device: %+v", devices[0])
	}

	// A non-empty enumeration is passed through untouched.
	listed := []Device{{ID: "hw:1", Name: "USB Microphone", Input: true}}
	if got := withDefaultDevice(listed); len(got) != 1 || got[0].ID != "hw:1" {
		t.Errorf("enumerated devices were altered: %+v", got)
	}
}

func TestParseDeviceListCRLF(t *testing.T) {
	cfg := deviceListConfig{
		DevicePattern: mustPattern(t, `^\s*\[(\d+)\]\s+(.+)$`),
		ParseDevice: func(matches []string) *Device {
			return &Device{ID: matches[1], Name: matches[2]}
		},
	}

	output := " [0] Microphone Array\r\n [1] Line In\r\n"

	devices := parseDeviceList(output, cfg)
	if len(devices) != 2 {
		t.Fatalf("parsed %d devices, want 2: %+v", len(devices), devices)
	}
	if devices[0].Name != "Microphone Array" {
		t.Errorf("name = %q, want %q (no trailing CR)", devices[0].Name, "Microphone Array")
	}
}

func mustPattern(t *testing.T, expr string) *regexp.Regexp {
	t.Helper()
	re, err := regexp.Compile(expr)
	if err != nil {
		t.Fatalf("compile %q: %v", expr, err)
	}
	return re
}
