package engine

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// stft computes a magnitude spectrogram: one row of win/2+1 magnitudes per
// analysis frame, frames advancing by hop samples.
func stft(samples []float64, win, hop int) [][]float64 {
	var spec [][]float64
	frame := make([]float64, win)

	for start := 0; start+win <= len(samples); start += hop {
		copy(frame, samples[start:start+win])
		window.Apply(frame, window.Hann)

		bins := fft.FFTReal(frame)
		mag := make([]float64, win/2+1)
		for k := range mag {
			mag[k] = cmplx.Abs(bins[k])
		}
		spec = append(spec, mag)
	}
	return spec
}

// hzToMel and melToHz use the HTK mel scale.
func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// melFilterbank builds nMels triangular filters over win/2+1 FFT bins,
// spanning 0 Hz to Nyquist.
func melFilterbank(nMels, win, sampleRate int) [][]float64 {
	nBins := win/2 + 1
	maxMel := hzToMel(float64(sampleRate) / 2.0)

	// Filter center frequencies, evenly spaced on the mel scale, expressed
	// as fractional FFT bin positions
	centers := make([]float64, nMels+2)
	for i := range centers {
		hz := melToHz(maxMel * float64(i) / float64(nMels+1))
		centers[i] = hz * float64(win) / float64(sampleRate)
	}

	filters := make([][]float64, nMels)
	for m := 0; m < nMels; m++ {
		filters[m] = make([]float64, nBins)
		lo, mid, hi := centers[m], centers[m+1], centers[m+2]
		for k := 0; k < nBins; k++ {
			bin := float64(k)
			switch {
			case bin <= lo || bin >= hi:
				// outside the triangle
			case bin <= mid:
				if mid > lo {
					filters[m][k] = (bin - lo) / (mid - lo)
				}
			default:
				if hi > mid {
					filters[m][k] = (hi - bin) / (hi - mid)
				}
			}
		}
	}
	return filters
}

// logMelSpectrogram converts a magnitude spectrogram to log-power mel bands
// referenced to the peak, floored at -80 dB. The log compression makes onset
// transients stand out against sustained energy.
func logMelSpectrogram(spec [][]float64, filters [][]float64) [][]float64 {
	const (
		amin    = 1e-10
		floorDB = -80.0
	)

	mel := make([][]float64, len(spec))
	peak := amin
	for i, mag := range spec {
		row := make([]float64, len(filters))
		for m, filter := range filters {
			sum := 0.0
			for k, w := range filter {
				if w != 0 {
					sum += w * mag[k] * mag[k]
				}
			}
			row[m] = sum
			if sum > peak {
				peak = sum
			}
		}
		mel[i] = row
	}

	for _, row := range mel {
		for m, power := range row {
			db := 10.0 * math.Log10(math.Max(power, amin)/peak)
			if db < floorDB {
				db = floorDB
			}
			row[m] = db
		}
	}
	return mel
}
