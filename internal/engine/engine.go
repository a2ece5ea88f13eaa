// Package engine estimates tempo and beat positions from PCM samples.
//
// The Engine interface is the delegated-analysis boundary: the pipeline only
// depends on analyze(samples, sampleRate, hopLength) -> (tempo, beatFrames),
// so any beat detector can swap in without touching grid construction. The
// built-in trackers implement it with a spectral-flux onset envelope and
// autocorrelation tempo estimation.
package engine

// Result holds the raw output of one analysis: a tempo estimate in BPM (zero
// when no tempo could be detected) and the ordered beat positions as analysis
// frame indices.
type Result struct {
	Tempo      float64
	BeatFrames []int
}

// Engine is the audio analysis capability consumed by the pipeline.
type Engine interface {
	Analyze(samples []float64, sampleRate, hopLength int) (Result, error)
}

// FramesToTime converts analysis frame indices to seconds.
func FramesToTime(frames []int, sampleRate, hopLength int) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = float64(f) * float64(hopLength) / float64(sampleRate)
	}
	return times
}
