package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Decoder.Binary != "ffmpeg" {
		t.Errorf("Decoder.Binary = %q, want ffmpeg", cfg.Decoder.Binary)
	}
	if cfg.Analysis.SampleRate != 44100 {
		t.Errorf("Analysis.SampleRate = %d, want 44100", cfg.Analysis.SampleRate)
	}
	if cfg.Analysis.HopLength != 512 {
		t.Errorf("Analysis.HopLength = %d, want 512", cfg.Analysis.HopLength)
	}
	if cfg.Analysis.BeatsPerBar != 4 {
		t.Errorf("Analysis.BeatsPerBar = %d, want 4", cfg.Analysis.BeatsPerBar)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config fails validation: %v", err)
	}
}

func TestLoad(t *testing.T) {
	t.Run("empty path gives defaults", func(t *testing.T) {
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg != Default() {
			t.Errorf("Load(\"\") = %+v, want defaults", cfg)
		}
	})

	t.Run("missing file gives defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg != Default() {
			t.Errorf("Load(missing) = %+v, want defaults", cfg)
		}
	})

	t.Run("file values layer over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "beatgrid.toml")
		content := `
[decoder]
binary = "/usr/local/bin/ffmpeg"

[analysis]
beats_per_bar = 3
max_bpm = 180.0
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		if cfg.Decoder.Binary != "/usr/local/bin/ffmpeg" {
			t.Errorf("Decoder.Binary = %q", cfg.Decoder.Binary)
		}
		if cfg.Analysis.BeatsPerBar != 3 {
			t.Errorf("BeatsPerBar = %d, want 3", cfg.Analysis.BeatsPerBar)
		}
		if cfg.Analysis.MaxBPM != 180.0 {
			t.Errorf("MaxBPM = %v, want 180", cfg.Analysis.MaxBPM)
		}
		// Untouched keys keep defaults
		if cfg.Analysis.HopLength != 512 {
			t.Errorf("HopLength = %d, want default 512", cfg.Analysis.HopLength)
		}
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.toml")
		if err := os.WriteFile(path, []byte("analysis = {{"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load(malformed) succeeded, want error")
		}
	})

	t.Run("invalid values rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "invalid.toml")
		if err := os.WriteFile(path, []byte("[analysis]\nhop_length = -1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load(invalid hop) succeeded, want error")
		}
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.Analysis.SampleRate = 0 }},
		{"negative hop", func(c *Config) { c.Analysis.HopLength = -512 }},
		{"zero beats per bar", func(c *Config) { c.Analysis.BeatsPerBar = 0 }},
		{"inverted bpm range", func(c *Config) { c.Analysis.MinBPM = 200; c.Analysis.MaxBPM = 60 }},
		{"zero min bpm", func(c *Config) { c.Analysis.MinBPM = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}
