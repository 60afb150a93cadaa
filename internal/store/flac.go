package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"os/exec"

	"github.com/soundscape-labs/noisewatch/internal/audio"
	"github.com/soundscape-labs/noisewatch/internal/types"
	"github.com/soundscape-labs/noisewatch/internal/util"
)

// FFmpegEncoder encodes bursts to FLAC through an FFmpeg subprocess fed
// raw S16LE on stdin, the same toolchain the capture side uses.
type FFmpegEncoder struct {
	path string
}

// NewFFmpegEncoder returns an encoder using the given FFmpeg binary.
func NewFFmpegEncoder(ffmpegPath string) *FFmpegEncoder {
	return &FFmpegEncoder{path: ffmpegPath}
}

// Encode writes the burst to path as a mono FLAC file. On failure the
// partial output is removed.
func (e *FFmpegEncoder) Encode(ctx context.Context, path string, burst *audio.Burst) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	args := []string{
		"-f", "s16le",
		"-ar", fmt.Sprintf("%d", burst.SampleRate),
		"-ac", "1",
		"-i", "pipe:0",
		"-c:a", "flac",
		"-f", "flac",
		"-hide_banner",
		"-loglevel", "warning",
		"-y",
		path,
	}

	cmd := exec.CommandContext(ctx, e.path, args...)
	cmd.Cancel = func() error {
		return util.GracefulSignal(cmd.Process)
	}
	cmd.WaitDelay = types.ShutdownTimeout

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return util.WrapError("create encoder pipe", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return util.WrapError("start encoder process", err)
	}

	_, writeErr := stdin.Write(pcmBytes(burst.Samples))
	_ = stdin.Close()

	waitErr := cmd.Wait()
	if waitErr != nil || writeErr != nil {
		_ = os.Remove(path)
		if msg := util.ExtractLastError(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", ErrEncodeFailed, msg)
		}
		if waitErr != nil {
			return fmt.Errorf("%w: %v", ErrEncodeFailed, waitErr)
		}
		return fmt.Errorf("%w: %v", ErrEncodeFailed, writeErr)
	}

	return nil
}

// pcmBytes converts normalized float samples back to the S16LE wire
// form they were captured in. Values outside [-1, 1) are clipped.
func pcmBytes(samples []float64) []byte {
	buf := make([]byte, len(samples)*2)
	for i, x := range samples {
		v := x * 32768
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(v)))
	}
	return buf
}
