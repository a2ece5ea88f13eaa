package grid

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
)

const floatTolerance = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < floatTolerance
}

func TestGridOffset(t *testing.T) {
	tests := []struct {
		name      string
		bpm       float64
		beatTimes []float64
		want      float64
	}{
		{
			name:      "no tempo",
			bpm:       0,
			beatTimes: []float64{0.5, 1.0},
			want:      0.0,
		},
		{
			name:      "negative tempo",
			bpm:       -120,
			beatTimes: []float64{0.5, 1.0},
			want:      0.0,
		},
		{
			name:      "no beats",
			bpm:       120,
			beatTimes: nil,
			want:      0.0,
		},
		{
			// 0.50 mod 0.5 = 0.0: first beat lands exactly on the grid
			name:      "beat on grid at 120bpm",
			bpm:       120.0,
			beatTimes: []float64{0.50, 1.00, 1.50, 2.00},
			want:      0.0,
		},
		{
			// 0.015 mod 0.46875 = 0.015 < 20ms, snapped to zero
			name:      "sub-20ms offset snaps to zero",
			bpm:       128.0,
			beatTimes: []float64{0.015, 0.483, 0.951},
			want:      0.0,
		},
		{
			// 0.70 mod 0.5 = 0.20, a genuine phase offset
			name:      "real offset preserved",
			bpm:       120.0,
			beatTimes: []float64{0.70, 1.20, 1.70},
			want:      0.20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GridOffset(tt.bpm, tt.beatTimes)
			if !almostEqual(got, tt.want) {
				t.Errorf("GridOffset(%v, %v) = %v, want %v", tt.bpm, tt.beatTimes, got, tt.want)
			}
		})
	}
}

func TestGridOffsetWithinPeriod(t *testing.T) {
	// For any positive bpm and non-empty beat sequence the offset must stay
	// in [0, 60/bpm).
	bpms := []float64{60, 97.3, 120, 128, 174, 200}
	firstBeats := []float64{0.0, 0.013, 0.25, 0.4999, 1.7, 12.34}

	for _, bpm := range bpms {
		period := 60.0 / bpm
		for _, first := range firstBeats {
			offset := GridOffset(bpm, []float64{first, first + period})
			if offset < 0 || offset >= period {
				t.Errorf("GridOffset(%v, first=%v) = %v, outside [0, %v)", bpm, first, offset, period)
			}
		}
	}
}

func TestDownbeats(t *testing.T) {
	nine := []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4}

	tests := []struct {
		name        string
		beatTimes   []float64
		beatsPerBar int
		want        []float64
	}{
		{
			name:        "nine beats in fours",
			beatTimes:   nine,
			beatsPerBar: 4,
			want:        []float64{0, 2, 4},
		},
		{
			name:        "two beats yields first only",
			beatTimes:   []float64{0.25, 0.75},
			beatsPerBar: 4,
			want:        []float64{0.25},
		},
		{
			name:        "empty beats",
			beatTimes:   nil,
			beatsPerBar: 4,
			want:        []float64{},
		},
		{
			name:        "invalid beats per bar",
			beatTimes:   nine,
			beatsPerBar: 0,
			want:        []float64{},
		},
		{
			name:        "three beat bars",
			beatTimes:   nine,
			beatsPerBar: 3,
			want:        []float64{0, 1.5, 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Downbeats(tt.beatTimes, tt.beatsPerBar)
			if len(got) != len(tt.want) {
				t.Fatalf("Downbeats() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !almostEqual(got[i], tt.want[i]) {
					t.Errorf("Downbeats()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDownbeatsAreSubsequence(t *testing.T) {
	beats := []float64{0.1, 0.6, 1.1, 1.6, 2.1, 2.6, 3.1}
	downbeats := Downbeats(beats, 4)

	// Every downbeat must exist in the beat sequence, in order, with no
	// invented elements.
	j := 0
	for _, d := range downbeats {
		found := false
		for ; j < len(beats); j++ {
			if almostEqual(beats[j], d) {
				found = true
				j++
				break
			}
		}
		if !found {
			t.Errorf("downbeat %v not found in order within beat sequence", d)
		}
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		beatTimes []float64
		wantNil   bool
		want      float64
	}{
		{
			name:      "fewer than three beats",
			beatTimes: []float64{0.5, 1.0},
			wantNil:   true,
		},
		{
			name:      "empty",
			beatTimes: nil,
			wantNil:   true,
		},
		{
			name:      "perfectly regular",
			beatTimes: []float64{0.50, 1.00, 1.50, 2.00},
			want:      1.0,
		},
		{
			name:      "non-monotonic sequence",
			beatTimes: []float64{0.5, 1.0, 0.9, 1.5},
			wantNil:   true,
		},
		{
			name:      "duplicate timestamps",
			beatTimes: []float64{0.5, 0.5, 1.0},
			wantNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.beatTimes)
			if tt.wantNil {
				if got != nil {
					t.Fatalf("Confidence(%v) = %v, want nil", tt.beatTimes, *got)
				}
				return
			}
			if got == nil {
				t.Fatalf("Confidence(%v) = nil, want %v", tt.beatTimes, tt.want)
			}
			if math.Abs(*got-tt.want) > 1e-6 {
				t.Errorf("Confidence(%v) = %v, want %v", tt.beatTimes, *got, tt.want)
			}
		})
	}
}

func TestConfidenceBounded(t *testing.T) {
	// Wildly irregular intervals must still clip into [0, 1].
	sequences := [][]float64{
		{0.0, 0.1, 5.0, 5.05, 20.0},
		{0.0, 0.001, 0.002, 10.0},
		{1.0, 1.5, 2.0, 2.5, 3.0, 9.0},
	}

	for _, beats := range sequences {
		c := Confidence(beats)
		if c == nil {
			t.Fatalf("Confidence(%v) = nil, want a bounded score", beats)
		}
		if *c < 0 || *c > 1 {
			t.Errorf("Confidence(%v) = %v, outside [0, 1]", beats, *c)
		}
	}
}

func TestAssemble(t *testing.T) {
	beats := []float64{0.50, 1.00, 1.50, 2.00}

	t.Run("variant 1 grid", func(t *testing.T) {
		g := Assemble(119.98, beats, DefaultBeatsPerBar, AnalyzerV1, false)

		if g.BPM == nil || *g.BPM != 120.0 {
			t.Errorf("BPM = %v, want 120.0", g.BPM)
		}
		if g.GridOffsetSec != 0.0 {
			t.Errorf("GridOffsetSec = %v, want 0.0", g.GridOffsetSec)
		}
		if g.DownbeatTimesSec != nil {
			t.Errorf("DownbeatTimesSec = %v, want nil for variant 1", g.DownbeatTimesSec)
		}
		if g.Confidence == nil || math.Abs(*g.Confidence-1.0) > 1e-6 {
			t.Errorf("Confidence = %v, want 1.0", g.Confidence)
		}
		if g.Analyzer != AnalyzerV1 {
			t.Errorf("Analyzer = %q, want %q", g.Analyzer, AnalyzerV1)
		}
	})

	t.Run("variant 2 grid", func(t *testing.T) {
		g := Assemble(120.0, beats, DefaultBeatsPerBar, AnalyzerV2, true)

		if g.DownbeatTimesSec == nil {
			t.Fatal("DownbeatTimesSec = nil, want non-nil for variant 2")
		}
		if len(g.DownbeatTimesSec) != 1 || g.DownbeatTimesSec[0] != 0.50 {
			t.Errorf("DownbeatTimesSec = %v, want [0.50]", g.DownbeatTimesSec)
		}
	})

	t.Run("no tempo detected", func(t *testing.T) {
		g := Assemble(0, beats, DefaultBeatsPerBar, AnalyzerV1, false)

		if g.BPM != nil {
			t.Errorf("BPM = %v, want nil", *g.BPM)
		}
		if g.GridOffsetSec != 0.0 {
			t.Errorf("GridOffsetSec = %v, want 0.0 when no tempo", g.GridOffsetSec)
		}
	})

	t.Run("nil beats become empty slice", func(t *testing.T) {
		g := Assemble(120, nil, DefaultBeatsPerBar, AnalyzerV2, true)

		if g.BeatTimesSec == nil || len(g.BeatTimesSec) != 0 {
			t.Errorf("BeatTimesSec = %v, want []", g.BeatTimesSec)
		}
		if g.DownbeatTimesSec == nil || len(g.DownbeatTimesSec) != 0 {
			t.Errorf("DownbeatTimesSec = %v, want []", g.DownbeatTimesSec)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		a := Assemble(128.0, []float64{0.1, 0.6, 1.1, 1.6}, 4, AnalyzerV2, true)
		b := Assemble(128.0, []float64{0.1, 0.6, 1.1, 1.6}, 4, AnalyzerV2, true)

		aj, _ := json.Marshal(a)
		bj, _ := json.Marshal(b)
		if string(aj) != string(bj) {
			t.Errorf("identical inputs produced different grids:\n%s\n%s", aj, bj)
		}
	})
}

func TestGridJSONShape(t *testing.T) {
	t.Run("variant 1 omits downbeats", func(t *testing.T) {
		g := Assemble(120.0, []float64{0.5, 1.0, 1.5}, 4, AnalyzerV1, false)
		out, err := json.Marshal(g)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if strings.Contains(string(out), "downbeatTimesSec") {
			t.Errorf("variant 1 JSON contains downbeatTimesSec: %s", out)
		}
	})

	t.Run("variant 2 keeps empty downbeats", func(t *testing.T) {
		g := Assemble(0, nil, 4, AnalyzerV2, true)
		out, err := json.Marshal(g)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !strings.Contains(string(out), `"downbeatTimesSec":[]`) {
			t.Errorf("variant 2 JSON missing empty downbeatTimesSec: %s", out)
		}
	})

	t.Run("null bpm and confidence", func(t *testing.T) {
		g := Assemble(0, nil, 4, AnalyzerV1, false)
		out, err := json.Marshal(g)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		for _, want := range []string{`"bpm":null`, `"confidence":null`, `"beatTimesSec":[]`} {
			if !strings.Contains(string(out), want) {
				t.Errorf("JSON missing %s: %s", want, out)
			}
		}
	})
}
