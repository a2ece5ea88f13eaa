// Package testsupport provides synthetic audio fixtures for tests.
package testsupport

import (
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// WAVBytes encodes mono 16-bit PCM samples as a minimal WAV file.
func WAVBytes(samples []int16, sampleRate int) []byte {
	const (
		numChannels   = 1
		bitsPerSample = 16
	)

	byteRate := sampleRate * numChannels * bitsPerSample / 8
	blockAlign := numChannels * bitsPerSample / 8
	dataSize := len(samples) * 2
	fileSize := 36 + dataSize

	var buf bytes.Buffer
	buf.WriteString("RIFF")
	binary.Write(&buf, binary.LittleEndian, uint32(fileSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	binary.Write(&buf, binary.LittleEndian, uint32(16))
	binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(&buf, binary.LittleEndian, uint16(numChannels))
	binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(&buf, binary.LittleEndian, uint32(byteRate))
	binary.Write(&buf, binary.LittleEndian, uint16(blockAlign))
	binary.Write(&buf, binary.LittleEndian, uint16(bitsPerSample))

	buf.WriteString("data")
	binary.Write(&buf, binary.LittleEndian, uint32(dataSize))
	binary.Write(&buf, binary.LittleEndian, samples)

	return buf.Bytes()
}

// WriteWAV writes mono 16-bit PCM samples to name inside dir and returns the
// full path. Fails the test on any I/O error.
func WriteWAV(t *testing.T, dir, name string, samples []int16, sampleRate int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, WAVBytes(samples, sampleRate), 0o644); err != nil {
		t.Fatalf("write test wav: %v", err)
	}
	return path
}

// Sine generates a sine tone at the given frequency and dBFS level.
func Sine(durationSecs, freq, levelDB float64, sampleRate int) []int16 {
	total := int(durationSecs * float64(sampleRate))
	amp := math.Pow(10.0, levelDB/20.0)

	samples := make([]int16, total)
	for i := range samples {
		ts := float64(i) / float64(sampleRate)
		samples[i] = int16(amp * math.Sin(2.0*math.Pi*freq*ts) * math.MaxInt16)
	}
	return samples
}

// ClickTrack generates a percussive click train at the given tempo: short
// decaying noise bursts at each beat over otherwise silent audio. The bursts
// give the onset detector sharp, broadband transients to lock onto.
func ClickTrack(durationSecs, bpm float64, sampleRate int) []int16 {
	total := int(durationSecs * float64(sampleRate))
	period := 60.0 / bpm
	clickLen := sampleRate / 100 // 10 ms bursts

	// Deterministic LCG noise, as in a fixed-seed test fixture
	rngState := uint32(12345)
	nextRandom := func() float64 {
		rngState = rngState*1664525 + 1013904223
		return (float64(rngState)/float64(0xFFFFFFFF))*2.0 - 1.0
	}

	samples := make([]int16, total)
	for beat := 0; ; beat++ {
		start := int(float64(beat) * period * float64(sampleRate))
		if start >= total {
			break
		}
		for i := 0; i < clickLen && start+i < total; i++ {
			decay := 1.0 - float64(i)/float64(clickLen)
			v := 0.8 * decay * nextRandom()
			samples[start+i] = int16(v * math.MaxInt16)
		}
	}
	return samples
}
