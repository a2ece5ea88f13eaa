package engine

import (
	"errors"
	"math"
)

// Tracker is the built-in beat detector. It derives an onset-strength
// envelope from a time-frequency transform, estimates tempo from the
// envelope's autocorrelation, and places beats by locking a periodic grid to
// the envelope peaks.
type Tracker struct {
	// MinBPM and MaxBPM bound the tempo search.
	MinBPM float64
	MaxBPM float64

	// PriorBPM centers the log-normal tempo prior that resolves octave
	// ambiguity (a 120 BPM pulse autocorrelates equally at 60 BPM).
	PriorBPM float64

	// FFTSize is the analysis window in samples.
	FFTSize int

	// MelBands enables the log-power mel onset envelope when positive;
	// zero means spectral flux over the raw magnitude spectrogram.
	MelBands int
}

const (
	defaultMinBPM   = 60.0
	defaultMaxBPM   = 200.0
	defaultPriorBPM = 120.0
	defaultFFTSize  = 2048
	defaultMelBands = 40

	// priorBandwidth is the prior's standard deviation in octaves.
	priorBandwidth = 1.0

	// silenceThreshold is the onset-envelope peak below which the input is
	// treated as having no detectable pulse at all.
	silenceThreshold = 1e-9
)

// NewOnsetTracker returns the variant 1 detector: spectral flux computed
// directly from the magnitude spectrogram of the raw samples.
func NewOnsetTracker() *Tracker {
	return &Tracker{
		MinBPM:   defaultMinBPM,
		MaxBPM:   defaultMaxBPM,
		PriorBPM: defaultPriorBPM,
		FFTSize:  defaultFFTSize,
	}
}

// NewMelTracker returns the variant 2 detector: spectral flux computed from a
// log-power mel spectrogram, a stronger onset signal for full mixes where
// percussive transients compete with sustained harmonic energy.
func NewMelTracker() *Tracker {
	t := NewOnsetTracker()
	t.MelBands = defaultMelBands
	return t
}

// Analyze implements Engine.
//
// A silent or pulse-free input is not an error: it yields a zero tempo and no
// beat frames, which the pipeline reports as "no tempo detected".
func (t *Tracker) Analyze(samples []float64, sampleRate, hopLength int) (Result, error) {
	if sampleRate <= 0 {
		return Result{}, errors.New("analyze: sample rate must be positive")
	}
	if hopLength <= 0 {
		return Result{}, errors.New("analyze: hop length must be positive")
	}
	if len(samples) == 0 {
		return Result{}, errors.New("analyze: no samples")
	}

	env := t.onsetEnvelope(samples, sampleRate, hopLength)

	peak := 0.0
	for _, v := range env {
		if v > peak {
			peak = v
		}
	}
	if peak < silenceThreshold {
		return Result{}, nil
	}

	period := t.bestLag(env, sampleRate, hopLength)
	if period <= 0 {
		return Result{}, nil
	}

	tempo := 60.0 * float64(sampleRate) / (float64(hopLength) * period)
	beats := pickBeats(env, period)

	return Result{Tempo: tempo, BeatFrames: beats}, nil
}

// onsetEnvelope computes the per-frame onset strength: the sum of positive
// spectral differences between consecutive frames (spectral flux).
func (t *Tracker) onsetEnvelope(samples []float64, sampleRate, hopLength int) []float64 {
	spec := stft(samples, t.FFTSize, hopLength)
	if t.MelBands > 0 {
		spec = logMelSpectrogram(spec, melFilterbank(t.MelBands, t.FFTSize, sampleRate))
	}

	env := make([]float64, len(spec))
	for i := 1; i < len(spec); i++ {
		flux := 0.0
		for k := range spec[i] {
			if d := spec[i][k] - spec[i-1][k]; d > 0 {
				flux += d
			}
		}
		env[i] = flux
	}
	return env
}

// bestLag finds the beat period in frames by scoring the envelope's
// autocorrelation over the tempo search range, weighted by a log-normal
// prior centered on PriorBPM. Returns the lag refined by parabolic
// interpolation, or 0 when no usable peak exists.
func (t *Tracker) bestLag(env []float64, sampleRate, hopLength int) float64 {
	framesPerSecond := float64(sampleRate) / float64(hopLength)
	minLag := int(math.Floor(60.0 * framesPerSecond / t.MaxBPM))
	maxLag := int(math.Ceil(60.0 * framesPerSecond / t.MinBPM))
	if minLag < 1 {
		minLag = 1
	}
	if maxLag >= len(env) {
		maxLag = len(env) - 1
	}
	if maxLag <= minLag {
		return 0
	}

	score := make([]float64, maxLag+1)
	bestLag, bestScore := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < len(env); i++ {
			sum += env[i] * env[i+lag]
		}
		ac := sum / float64(len(env)-lag)

		bpm := 60.0 * framesPerSecond / float64(lag)
		octaves := math.Log2(bpm / t.PriorBPM)
		prior := math.Exp(-0.5 * (octaves / priorBandwidth) * (octaves / priorBandwidth))

		score[lag] = ac * prior
		if score[lag] > bestScore {
			bestScore = score[lag]
			bestLag = lag
		}
	}

	if bestLag == 0 || bestScore <= 0 {
		return 0
	}

	// Parabolic interpolation around the winning lag recovers sub-frame
	// period resolution, which matters once the grid extrapolates over
	// many bars
	lag := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		y0, y1, y2 := score[bestLag-1], score[bestLag], score[bestLag+1]
		denom := y0 - 2*y1 + y2
		if denom != 0 {
			shift := 0.5 * (y0 - y2) / denom
			if math.Abs(shift) < 1 {
				lag += shift
			}
		}
	}
	return lag
}

// pickBeats places a periodic grid over the onset envelope: it tries every
// integer phase within one period, keeps the phase whose grid positions
// collect the most onset energy, then snaps each grid position to the local
// envelope maximum. Returned frames are strictly increasing.
func pickBeats(env []float64, period float64) []int {
	intPeriod := int(period)
	if intPeriod < 1 {
		intPeriod = 1
	}

	bestPhase, bestEnergy := 0, -1.0
	for phase := 0; phase < intPeriod; phase++ {
		energy := 0.0
		for pos := float64(phase); int(pos+0.5) < len(env); pos += period {
			energy += env[int(pos+0.5)]
		}
		if energy > bestEnergy {
			bestEnergy = energy
			bestPhase = phase
		}
	}

	// Snapping tolerance: a sixteenth of the period, at least one frame
	tol := int(period / 16)
	if tol < 1 {
		tol = 1
	}

	var beats []int
	last := -1
	for pos := float64(bestPhase); int(pos+0.5) < len(env); pos += period {
		frame := int(pos + 0.5)

		lo, hi := frame-tol, frame+tol
		if lo < 0 {
			lo = 0
		}
		if hi >= len(env) {
			hi = len(env) - 1
		}
		best := frame
		for f := lo; f <= hi; f++ {
			if env[f] > env[best] {
				best = f
			}
		}

		if best > last {
			beats = append(beats, best)
			last = best
		}
	}
	return beats
}
