// Package decode normalizes arbitrary audio inputs to canonical mono PCM WAV
// by shelling out to an external decoder binary.
package decode

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	// DefaultBinary is the decoder invoked when nothing overrides it.
	DefaultBinary = "ffmpeg"

	// EnvBinary names the environment variable that overrides the decoder
	// binary for one invocation.
	EnvBinary = "FFMPEG"

	// TargetSampleRate is the canonical sample rate the decoder resamples to.
	TargetSampleRate = 44100

	canonicalExt = ".wav"
)

// Handle references canonical PCM data for one input.
//
// An owned handle points at a temporary file created by the decoder and must
// be released with Cleanup; a borrowed handle points at the caller's own file
// and Cleanup leaves it alone. Callers defer Cleanup immediately after a
// successful Normalize so the temporary file is removed on every exit path.
type Handle struct {
	Path  string
	owned bool
}

// Owned reports whether Cleanup will delete the underlying file.
func (h *Handle) Owned() bool {
	return h != nil && h.owned
}

// Cleanup removes the temporary file backing an owned handle. Safe to call on
// nil or borrowed handles, and safe to call more than once.
func (h *Handle) Cleanup() error {
	if h == nil || !h.owned {
		return nil
	}
	h.owned = false
	if err := os.Remove(h.Path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cleanup decoded audio: %w", err)
	}
	return nil
}

// DecodeError reports a failed or missing decoder. Output carries the
// decoder's diagnostic text when the process ran and exited non-zero.
type DecodeError struct {
	Binary string
	Output string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s failed to decode input: %s", e.Binary, e.Output)
	}
	return fmt.Sprintf("%s failed to decode input: %v", e.Binary, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Binary resolves the decoder binary name: environment override first, then
// the configured name, then the default.
func Binary(configured string) string {
	if env := os.Getenv(EnvBinary); env != "" {
		return env
	}
	if configured != "" {
		return configured
	}
	return DefaultBinary
}

// LookupDecoder verifies the decoder binary is available on PATH. Run at
// startup so a missing dependency is reported before any work begins.
func LookupDecoder(binary string) error {
	if _, err := exec.LookPath(binary); err != nil {
		return &DecodeError{Binary: binary, Err: fmt.Errorf("decoder not found: %w", err)}
	}
	return nil
}

// Normalize produces a Handle referencing mono PCM WAV at the given sample
// rate for the given input file. A non-positive sampleRate falls back to
// TargetSampleRate.
//
// A file already in the canonical container (by extension, case-insensitive)
// is returned as a borrowed handle with no decode step. Anything else is
// decoded into a fresh temporary file, which the returned owned handle deletes
// on Cleanup. On decoder failure the partial temporary file is removed and a
// *DecodeError carrying the decoder's stderr is returned.
func Normalize(ctx context.Context, inputPath, binary string, sampleRate int) (*Handle, error) {
	if strings.EqualFold(filepath.Ext(inputPath), canonicalExt) {
		return &Handle{Path: inputPath}, nil
	}

	bin := Binary(binary)
	if sampleRate <= 0 {
		sampleRate = TargetSampleRate
	}

	tmp, err := os.CreateTemp("", "beatgrid-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("create temp wav: %w", err)
	}

	args := []string{
		"-y",
		"-hide_banner",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "wav",
		tmpPath,
	}
	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		os.Remove(tmpPath)
		return nil, &DecodeError{
			Binary: bin,
			Output: strings.TrimSpace(string(output)),
			Err:    err,
		}
	}

	return &Handle{Path: tmpPath, owned: true}, nil
}
