// Package config loads beatgrid's TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Decoder configures the external decoder boundary.
type Decoder struct {
	// Binary is the decoder executable name or path. The FFMPEG environment
	// variable overrides it at runtime.
	Binary string `toml:"binary"`
}

// Analysis configures the beat tracking stage.
type Analysis struct {
	SampleRate  int     `toml:"sample_rate"`
	HopLength   int     `toml:"hop_length"`
	BeatsPerBar int     `toml:"beats_per_bar"`
	MinBPM      float64 `toml:"min_bpm"`
	MaxBPM      float64 `toml:"max_bpm"`
}

// Config is the full tool configuration.
type Config struct {
	Decoder  Decoder  `toml:"decoder"`
	Analysis Analysis `toml:"analysis"`
}

const (
	defaultDecoderBinary = "ffmpeg"
	defaultSampleRate    = 44100
	defaultHopLength     = 512
	defaultBeatsPerBar   = 4
	defaultMinBPM        = 60.0
	defaultMaxBPM        = 200.0
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Decoder: Decoder{
			Binary: defaultDecoderBinary,
		},
		Analysis: Analysis{
			SampleRate:  defaultSampleRate,
			HopLength:   defaultHopLength,
			BeatsPerBar: defaultBeatsPerBar,
			MinBPM:      defaultMinBPM,
			MaxBPM:      defaultMaxBPM,
		},
	}
}

// Load reads a TOML config file layered over defaults. An empty path, or a
// path that does not exist, yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Analysis.SampleRate <= 0 {
		return fmt.Errorf("analysis.sample_rate must be positive, got %d", c.Analysis.SampleRate)
	}
	if c.Analysis.HopLength <= 0 {
		return fmt.Errorf("analysis.hop_length must be positive, got %d", c.Analysis.HopLength)
	}
	if c.Analysis.BeatsPerBar < 1 {
		return fmt.Errorf("analysis.beats_per_bar must be at least 1, got %d", c.Analysis.BeatsPerBar)
	}
	if c.Analysis.MinBPM <= 0 || c.Analysis.MaxBPM <= c.Analysis.MinBPM {
		return fmt.Errorf("analysis BPM range [%v, %v] is invalid", c.Analysis.MinBPM, c.Analysis.MaxBPM)
	}
	return nil
}
