// Package pipeline runs the full beat-grid analysis for one input file:
// normalize to canonical PCM, run the analysis engine, and assemble the grid.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/tempolab/beatgrid/internal/audio"
	"github.com/tempolab/beatgrid/internal/config"
	"github.com/tempolab/beatgrid/internal/decode"
	"github.com/tempolab/beatgrid/internal/engine"
	"github.com/tempolab/beatgrid/internal/grid"
)

// Variant selects the pipeline flavor.
type Variant int

const (
	// V1 derives the onset envelope directly from the raw samples and
	// emits no downbeats.
	V1 Variant = iota + 1

	// V2 derives the onset envelope from a log-power mel spectrogram and
	// adds heuristic downbeats.
	V2
)

// AnalyzerTag returns the provenance tag written into the result.
func (v Variant) AnalyzerTag() string {
	if v == V2 {
		return grid.AnalyzerV2
	}
	return grid.AnalyzerV1
}

// AnalysisError wraps a failure inside the analysis stage (unreadable PCM,
// engine failure) as opposed to the decode stage.
type AnalysisError struct {
	Path string
	Err  error
}

func (e *AnalysisError) Error() string {
	return fmt.Sprintf("analysis failed for %s: %v", e.Path, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Options configures one analysis run.
type Options struct {
	Variant Variant

	// PreferStem is a forward-compatible hint (drums, instrumental, none).
	// Reserved: it is carried through but has no effect in this version.
	PreferStem string

	// Engine overrides the built-in detector; nil selects the variant's
	// default tracker.
	Engine engine.Engine

	Config config.Config
}

// Result bundles the assembled grid with run metadata for reporting.
type Result struct {
	Grid grid.Grid

	InputPath   string
	SampleRate  int
	ClipSeconds float64
	DecodeTime  time.Duration
	AnalyzeTime time.Duration
}

// Analyze computes the beat grid for one audio file.
//
// The temporary file created by the normalizer (if any) is released on every
// exit path, including engine failures. Decode failures surface as
// *decode.DecodeError, everything after decode as *AnalysisError.
func Analyze(ctx context.Context, inputPath string, opts Options) (*Result, error) {
	if opts.Variant == 0 {
		opts.Variant = V2
	}
	eng := opts.Engine
	if eng == nil {
		if opts.Variant == V2 {
			eng = tunedTracker(engine.NewMelTracker(), opts.Config)
		} else {
			eng = tunedTracker(engine.NewOnsetTracker(), opts.Config)
		}
	}

	hop := opts.Config.Analysis.HopLength
	if hop <= 0 {
		hop = config.Default().Analysis.HopLength
	}
	beatsPerBar := opts.Config.Analysis.BeatsPerBar
	if beatsPerBar < 1 {
		beatsPerBar = grid.DefaultBeatsPerBar
	}

	decodeStart := time.Now()
	handle, err := decode.Normalize(ctx, inputPath, opts.Config.Decoder.Binary, opts.Config.Analysis.SampleRate)
	if err != nil {
		return nil, err
	}
	defer handle.Cleanup()
	decodeTime := time.Since(decodeStart)

	// Load PCM at the canonical file's native sample rate
	clip, err := audio.LoadWAV(handle.Path)
	if err != nil {
		return nil, &AnalysisError{Path: inputPath, Err: err}
	}

	analyzeStart := time.Now()
	raw, err := eng.Analyze(clip.Samples, clip.SampleRate, hop)
	if err != nil {
		return nil, &AnalysisError{Path: inputPath, Err: err}
	}
	analyzeTime := time.Since(analyzeStart)

	beatTimes := engine.FramesToTime(raw.BeatFrames, clip.SampleRate, hop)
	g := grid.Assemble(raw.Tempo, beatTimes, beatsPerBar, opts.Variant.AnalyzerTag(), opts.Variant == V2)

	return &Result{
		Grid:        g,
		InputPath:   inputPath,
		SampleRate:  clip.SampleRate,
		ClipSeconds: clip.Duration(),
		DecodeTime:  decodeTime,
		AnalyzeTime: analyzeTime,
	}, nil
}

// tunedTracker applies configured tempo bounds to a built-in tracker.
func tunedTracker(t *engine.Tracker, cfg config.Config) *engine.Tracker {
	if cfg.Analysis.MinBPM > 0 {
		t.MinBPM = cfg.Analysis.MinBPM
	}
	if cfg.Analysis.MaxBPM > t.MinBPM {
		t.MaxBPM = cfg.Analysis.MaxBPM
	}
	return t
}
