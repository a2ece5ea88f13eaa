// Package grid builds beat-grid descriptions from tempo and beat-time estimates.
//
// All functions in this package are pure: they take immutable inputs, perform
// no I/O, and always produce the same output for the same input. This keeps
// the grid construction directly unit-testable without audio fixtures.
package grid

import "math"

// Analyzer tags identify the pipeline variant that produced a grid. Downstream
// consumers branch on this field to know whether downbeats are present.
const (
	AnalyzerV1 = "beatgrid_v1"
	AnalyzerV2 = "beatgrid_v2_beats_downbeats"
)

// DefaultBeatsPerBar assumes common time. Pieces in other meters get a wrong
// but adjustable default; the value is surfaced in the output for the consumer.
const DefaultBeatsPerBar = 4

// snapThreshold is the offset magnitude below which the grid phase is treated
// as measurement noise and snapped to zero (20 ms).
const snapThreshold = 0.02

// epsilon guards the confidence division against a zero mean interval.
const epsilon = 1e-6

// Grid is the final beat-grid record emitted as JSON.
//
// BPM and Confidence are pointers so that "not detected" serializes as null
// rather than 0. DownbeatTimesSec uses omitzero: a nil slice (variant 1) omits
// the field entirely, while an empty non-nil slice (variant 2, no beats) still
// serializes as [].
type Grid struct {
	BPM              *float64  `json:"bpm"`
	GridOffsetSec    float64   `json:"gridOffsetSec"`
	BeatsPerBar      int       `json:"beatsPerBar"`
	BeatTimesSec     []float64 `json:"beatTimesSec"`
	DownbeatTimesSec []float64 `json:"downbeatTimesSec,omitzero"`
	Confidence       *float64  `json:"confidence"`
	Analyzer         string    `json:"analyzer"`
}

// ErrorResult is emitted on stderr instead of a Grid when any stage fails.
type ErrorResult struct {
	Error string `json:"error"`
}

// RoundTempo rounds a raw tempo estimate to one decimal place for stability.
func RoundTempo(tempo float64) float64 {
	return math.Round(tempo*10) / 10
}

// GridOffset computes the sub-beat-period phase offset of the grid: the first
// detected beat time modulo the beat period, in [0, 60/bpm).
//
// Offsets under 20 ms are snapped to zero, since they are indistinguishable
// from detection jitter. A missing tempo or empty beat sequence yields 0.
func GridOffset(bpm float64, beatTimes []float64) float64 {
	if bpm <= 0 || len(beatTimes) == 0 {
		return 0.0
	}

	period := 60.0 / bpm
	raw := math.Mod(beatTimes[0], period)
	if raw < 0 {
		raw += period
	}

	if math.Abs(raw) < snapThreshold {
		return 0.0
	}
	return raw
}

// Downbeats returns every beatsPerBar-th beat time starting at index 0.
//
// This is a heuristic, not a true downbeat detector: it assumes the first
// detected beat falls on a downbeat and that bars are metrically uniform.
// It never analyzes accent strength, so pieces that begin mid-bar get a
// shifted bar grid. Known approximation, not a defect.
func Downbeats(beatTimes []float64, beatsPerBar int) []float64 {
	downbeats := []float64{}
	if len(beatTimes) == 0 || beatsPerBar < 1 {
		return downbeats
	}

	for i := 0; i < len(beatTimes); i += beatsPerBar {
		downbeats = append(downbeats, beatTimes[i])
	}
	return downbeats
}

// Confidence scores beat-interval regularity in [0, 1], rewarding low relative
// variance in beat spacing (steadier tempo, higher confidence).
//
// Returns nil with fewer than 3 beats (insufficient data) or when any
// inter-beat interval is non-positive. A non-monotonic sequence should not
// occur given an ordered input, but is checked rather than assumed.
func Confidence(beatTimes []float64) *float64 {
	if len(beatTimes) < 3 {
		return nil
	}

	intervals := make([]float64, len(beatTimes)-1)
	for i := 1; i < len(beatTimes); i++ {
		d := beatTimes[i] - beatTimes[i-1]
		if d <= 0 {
			return nil
		}
		intervals[i-1] = d
	}

	mean := 0.0
	for _, d := range intervals {
		mean += d
	}
	mean /= float64(len(intervals))

	variance := 0.0
	for _, d := range intervals {
		variance += (d - mean) * (d - mean)
	}
	variance /= float64(len(intervals))

	score := 1.0 - math.Sqrt(variance)/(mean+epsilon)
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return &score
}

// Assemble packages a tempo estimate and beat times into a complete Grid.
//
// A non-positive tempo is treated as "no tempo detected": bpm serializes as
// null and the grid offset stays 0. withDownbeats selects the variant 2
// schema, which always carries the downbeat field.
func Assemble(tempo float64, beatTimes []float64, beatsPerBar int, analyzer string, withDownbeats bool) Grid {
	if beatTimes == nil {
		beatTimes = []float64{}
	}

	g := Grid{
		BeatsPerBar:  beatsPerBar,
		BeatTimesSec: beatTimes,
		Confidence:   Confidence(beatTimes),
		Analyzer:     analyzer,
	}

	if tempo > 0 {
		bpm := RoundTempo(tempo)
		g.BPM = &bpm
		g.GridOffsetSec = GridOffset(bpm, beatTimes)
	}

	if withDownbeats {
		g.DownbeatTimesSec = Downbeats(beatTimes, beatsPerBar)
	}

	return g
}
