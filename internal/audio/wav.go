package audio

import (
	"bytes"
	"fmt"

	"github.com/youpy/go-wav"
)

// EncodeWAV encodes mono float32 samples as a 16-bit PCM WAV payload
func EncodeWAV(samples []float32, sampleRate int) ([]byte, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	var buf bytes.Buffer
	writer := wav.NewWriter(&buf, uint32(len(samples)), 1, uint32(sampleRate), 16)

	wavSamples := make([]wav.Sample, len(samples))
	for i, s := range samples {
		wavSamples[i].Values[0] = int(clampSample(s) * 32767)
	}

	if err := writer.WriteSamples(wavSamples); err != nil {
		return nil, fmt.Errorf("failed to write WAV samples: %w", err)
	}

	return buf.Bytes(), nil
}

