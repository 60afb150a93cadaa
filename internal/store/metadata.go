package store

import (
	"encoding/xml"
	"os"
	"time"

	"github.com/soundscape-labs/noisewatch/internal/dsp"
	"github.com/soundscape-labs/noisewatch/internal/types"
)

// Metadata is the XML sidecar document for one burst. Field names are
// stable across units for downstream batch processing.
type Metadata struct {
	XMLName         xml.Name `xml:"recording"`
	DeviceID        string   `xml:"device_id"`
	CaptureDevice   string   `xml:"capture_device,omitempty"`
	Timestamp       string   `xml:"timestamp"`
	DurationSeconds float64  `xml:"duration_seconds"`
	SampleRate      int      `xml:"sample_rate"`
	Channels        int      `xml:"channels"`
	LAeqDBFS        float64  `xml:"laeq_dbfs"`
}

// metadataFor converts a measurement to its sidecar document. The level
// is clamped to the serialization floor so silence never produces an
// unrepresentable -Inf in the document.
func metadataFor(m types.Measurement) Metadata {
	return Metadata{
		DeviceID:        m.DeviceID,
		CaptureDevice:   m.CaptureDevice,
		Timestamp:       m.Timestamp.UTC().Format(time.RFC3339),
		DurationSeconds: m.Duration.Seconds(),
		SampleRate:      m.SampleRate,
		Channels:        m.Channels,
		LAeqDBFS:        dsp.ClampLevel(m.LAeqDBFS),
	}
}

// writeMetadata writes the sidecar to path and syncs it to disk before
// the caller renames it into place.
func writeMetadata(path string, m types.Measurement) error {
	data, err := xml.MarshalIndent(metadataFor(m), "", "  ")
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(xml.Header); err != nil {
		_ = f.Close()
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// ReadMetadata parses a sidecar document from disk.
func ReadMetadata(path string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, err
	}
	var m Metadata
	if err := xml.Unmarshal(data, &m); err != nil {
		return Metadata{}, err
	}
	return m, nil
}
