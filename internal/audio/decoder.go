package audio

import (
	"bytes"
	"fmt"
	"io"
	"log"

	"github.com/tosone/minimp3"
	"github.com/youpy/go-wav"
)

// AudioDecoder turns clip payloads into mono float32 samples
type AudioDecoder struct{}

// NewAudioDecoder creates a new decoder
func NewAudioDecoder() *AudioDecoder {
	return &AudioDecoder{}
}

// DecodeClip decodes a clip using its declared format when known
func (d *AudioDecoder) DecodeClip(clip *Clip) ([]float32, int, error) {
	if clip.Empty() {
		return nil, 0, fmt.Errorf("clip is empty")
	}
	return d.DecodeAudioData(clip.Data)
}

// DecodeAudioData decodes audio data, detecting the format automatically
func (d *AudioDecoder) DecodeAudioData(audioData []byte) ([]float32, int, error) {
	switch DetectFormat(audioData) {
	case FormatWAV:
		// TTS services sometimes send streaming headers with bogus sizes,
		// so the chunk walker goes first and go-wav is the fallback.
		samples, rate, err := parseWAVContent(audioData)
		if err != nil {
			log.Printf("WAV chunk parser failed, falling back to go-wav: %v", err)
			return d.decodeWAV(audioData)
		}
		return samples, rate, nil
	case FormatMP3:
		return d.decodeMP3(audioData)
	default:
		samples, rate, err := parseWAVContent(audioData)
		if err != nil {
			samples, rate, err = d.decodeWAV(audioData)
			if err != nil {
				return d.decodeMP3(audioData)
			}
		}
		return samples, rate, err
	}
}

// decodeWAV decodes WAV through go-wav, mixing stereo down to mono
func (d *AudioDecoder) decodeWAV(audioData []byte) ([]float32, int, error) {
	wavReader := wav.NewReader(bytes.NewReader(audioData))

	format, err := wavReader.Format()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read WAV format: %w", err)
	}

	scale := fullScale(format.BitsPerSample)
	var samples []float32

	for {
		sampleData, err := wavReader.ReadSamples()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read WAV samples: %w", err)
		}

		for _, sample := range sampleData {
			v := clampSample(float32(wavReader.IntValue(sample, 0)) / scale)
			if format.NumChannels == 2 {
				right := clampSample(float32(wavReader.IntValue(sample, 1)) / scale)
				v = (v + right) / 2.0
			}
			samples = append(samples, v)
		}
	}

	if len(samples) == 0 {
		return nil, 0, fmt.Errorf("no audio samples found")
	}

	return samples, int(format.SampleRate), nil
}

// decodeMP3 decodes a complete MP3 payload with minimp3
func (d *AudioDecoder) decodeMP3(audioData []byte) ([]float32, int, error) {
	decoder, pcmData, err := minimp3.DecodeFull(audioData)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode MP3: %w", err)
	}
	defer decoder.Close()

	if decoder.Channels <= 0 {
		return nil, 0, fmt.Errorf("failed to decode MP3: no channels")
	}

	pcmSamples := len(pcmData) / 2
	samples := make([]float32, 0, pcmSamples/decoder.Channels)

	for i := 0; i+decoder.Channels-1 < pcmSamples; i += decoder.Channels {
		left := float32(int16(pcmData[i*2])|int16(pcmData[i*2+1])<<8) / 32768.0
		if decoder.Channels == 1 {
			samples = append(samples, clampSample(left))
			continue
		}
		right := float32(int16(pcmData[(i+1)*2])|int16(pcmData[(i+1)*2+1])<<8) / 32768.0
		samples = append(samples, clampSample((left+right)/2.0))
	}

	return samples, decoder.SampleRate, nil
}

func fullScale(bitsPerSample uint16) float32 {
	switch bitsPerSample {
	case 8:
		return 128.0
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}

func clampSample(v float32) float32 {
	if v > 1.0 {
		return 1.0
	}
	if v < -1.0 {
		return -1.0
	}
	return v
}

// DecodeForDevice decodes a clip and resamples it to the device rate
func (d *AudioDecoder) DecodeForDevice(clip *Clip, deviceRate int) ([]float32, error) {
	samples, rate, err := d.DecodeClip(clip)
	if err != nil {
		return nil, err
	}
	return Resample(samples, rate, deviceRate)
}

// Resample converts between sample rates with linear interpolation
func Resample(in []float32, fromRate, toRate int) ([]float32, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("invalid sample rates: input=%d, output=%d", fromRate, toRate)
	}

	out := make([]float32, 0, len(in))
	if len(in) == 0 || fromRate == toRate {
		return append(out, in...), nil
	}

	step := float64(fromRate) / float64(toRate)
	last := len(in) - 1
	for pos := 0.0; int(pos) <= last; pos += step {
		i := int(pos)
		if i == last {
			out = append(out, in[last])
			continue
		}
		frac := float32(pos - float64(i))
		out = append(out, in[i]+frac*(in[i+1]-in[i]))
	}

	return out, nil
}
