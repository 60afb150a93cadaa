// Package store persists recording units: a FLAC audio artifact and an
// XML metadata sidecar written under a shared timestamp-derived base
// name. Units are written temp-first and renamed into place, so a crash
// or mid-cycle termination never leaves a truncated artifact under its
// canonical name.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soundscape-labs/noisewatch/internal/audio"
	"github.com/soundscape-labs/noisewatch/internal/types"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// ErrEncodeFailed is returned when the audio encode subprocess fails.
var ErrEncodeFailed = errors.New("audio encode failed")

// Encoder turns a raw burst into a lossless compressed audio file at
// the given path. Implementations must not leave a partial file behind
// on failure.
type Encoder interface {
	Encode(ctx context.Context, path string, burst *audio.Burst) error
}

// baseNameTimeLayout is UTC, sortable and unique to the second.
const baseNameTimeLayout = "20060102T150405Z"

// Store writes recording units into a single output directory.
type Store struct {
	dir      string
	tempDir  string
	deviceID string
	enc      Encoder
}

// New returns a Store writing into dir. The temp staging directory is
// created up front so the first cycle cannot fail on it.
func New(dir, deviceID string, enc Encoder) (*Store, error) {
	tempDir := filepath.Join(dir, ".tmp")
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, util.WrapError("create staging directory", err)
	}
	return &Store{
		dir:      dir,
		tempDir:  tempDir,
		deviceID: sanitizeName(deviceID),
		enc:      enc,
	}, nil
}

// Dir returns the output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Persist encodes the raw (unweighted) burst and writes the metadata
// sidecar, then renames both into place. The pair is created together
// or not at all: any failure removes whatever was already staged or
// renamed, and the cycle reports a single store error.
func (s *Store) Persist(ctx context.Context, burst *audio.Burst, m types.Measurement) (types.RecordingUnit, error) {
	base := s.baseName(m)
	audioTmp := filepath.Join(s.tempDir, base+".flac")
	metaTmp := filepath.Join(s.tempDir, base+".xml")
	audioFinal := filepath.Join(s.dir, base+".flac")
	metaFinal := filepath.Join(s.dir, base+".xml")

	if err := s.enc.Encode(ctx, audioTmp, burst); err != nil {
		_ = os.Remove(audioTmp)
		return types.RecordingUnit{}, util.WrapError("encode audio", err)
	}

	if err := writeMetadata(metaTmp, m); err != nil {
		_ = os.Remove(audioTmp)
		_ = os.Remove(metaTmp)
		return types.RecordingUnit{}, util.WrapError("write metadata", err)
	}

	// Audio first; if the sidecar rename fails the audio file comes
	// back out so no half unit survives under its final name.
	if err := os.Rename(audioTmp, audioFinal); err != nil {
		_ = os.Remove(audioTmp)
		_ = os.Remove(metaTmp)
		return types.RecordingUnit{}, util.WrapError("finalize audio", err)
	}
	if err := os.Rename(metaTmp, metaFinal); err != nil {
		_ = os.Remove(audioFinal)
		_ = os.Remove(metaTmp)
		return types.RecordingUnit{}, util.WrapError("finalize metadata", err)
	}

	return types.RecordingUnit{
		BaseName:     base,
		AudioPath:    audioFinal,
		MetadataPath: metaFinal,
	}, nil
}

// baseName derives the shared base name from the measurement timestamp.
// A same-second collision appends a numeric disambiguator rather than
// overwriting the earlier unit.
func (s *Store) baseName(m types.Measurement) string {
	stem := fmt.Sprintf("noisewatch-%s-%s", s.deviceID, m.Timestamp.UTC().Format(baseNameTimeLayout))
	name := stem
	for n := 1; s.unitExists(name); n++ {
		name = fmt.Sprintf("%s-%d", stem, n)
	}
	return name
}

// unitExists reports whether either artifact of a unit is already in
// the output directory under its final name.
func (s *Store) unitExists(base string) bool {
	for _, ext := range []string{".flac", ".xml"} {
		if _, err := os.Stat(filepath.Join(s.dir, base+ext)); err == nil {
			return true
		}
	}
	return false
}

// sanitizeName keeps device identifiers filename-safe.
func sanitizeName(name string) string {
	result := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			result = append(result, c)
		case c == ' ':
			result = append(result, '-')
		}
	}
	if len(result) == 0 {
		return "unit"
	}
	return string(result)
}
