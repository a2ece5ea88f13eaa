// Package audio loads PCM samples from canonical WAV files.
package audio

import (
	"encoding/binary"
	"fmt"
	"os"
)

// Clip holds decoded PCM audio: mono float64 samples in [-1, 1] at the file's
// native sample rate.
type Clip struct {
	SampleRate int
	Samples    []float64
}

// Duration returns the clip length in seconds.
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(len(c.Samples)) / float64(c.SampleRate)
}

const (
	wavFormatPCM = 1

	// riffHeaderSize covers "RIFF" + size + "WAVE".
	riffHeaderSize  = 12
	chunkHeaderSize = 8
)

// LoadWAV reads a PCM WAV file and returns its samples as normalized mono
// float64, preserving the native sample rate.
//
// Only 16-bit integer PCM is supported, which is what the decoder boundary
// produces. Multi-channel audio is downmixed by averaging channels; the
// canonical decode output is already mono, but a WAV handed to us directly
// may not be.
func LoadWAV(path string) (*Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wav: %w", err)
	}

	if len(data) < riffHeaderSize || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("read wav %s: not a RIFF/WAVE file", path)
	}

	var (
		channels      int
		sampleRate    int
		bitsPerSample int
		audioFormat   int
		pcm           []byte
		haveFmt       bool
	)

	// Walk the chunk list rather than assuming a fixed 44-byte header;
	// decoders commonly insert LIST/INFO chunks before the sample data.
	pos := riffHeaderSize
	for pos+chunkHeaderSize <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + chunkHeaderSize
		if size < 0 || body+size > len(data) {
			// Truncated chunk; take what is there for data, reject otherwise
			if id == "data" {
				size = len(data) - body
			} else {
				return nil, fmt.Errorf("read wav %s: truncated %q chunk", path, id)
			}
		}

		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("read wav %s: fmt chunk too small", path)
			}
			audioFormat = int(binary.LittleEndian.Uint16(data[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}

		// Chunks are word-aligned
		pos = body + size
		if size%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("read wav %s: missing fmt chunk", path)
	}
	if pcm == nil {
		return nil, fmt.Errorf("read wav %s: missing data chunk", path)
	}
	if audioFormat != wavFormatPCM {
		return nil, fmt.Errorf("read wav %s: unsupported audio format %d (expect PCM)", path, audioFormat)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("read wav %s: unsupported bit depth %d (expect 16-bit PCM)", path, bitsPerSample)
	}
	if channels < 1 {
		return nil, fmt.Errorf("read wav %s: invalid channel count %d", path, channels)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("read wav %s: invalid sample rate %d", path, sampleRate)
	}

	frameBytes := 2 * channels
	frames := len(pcm) / frameBytes

	const scale = 1.0 / 32768.0
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		sum := 0.0
		base := i * frameBytes
		for ch := 0; ch < channels; ch++ {
			s := int16(binary.LittleEndian.Uint16(pcm[base+2*ch : base+2*ch+2]))
			sum += float64(s) * scale
		}
		samples[i] = sum / float64(channels)
	}

	return &Clip{SampleRate: sampleRate, Samples: samples}, nil
}
