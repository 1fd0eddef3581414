package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// WAVChunk represents a generic RIFF chunk header
type WAVChunk struct {
	ID   [4]byte
	Size uint32
}

// FmtChunk represents the format chunk
type FmtChunk struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// parseWAVContent walks the RIFF chunks of a 16-bit PCM WAV payload.
// Data sizes larger than the payload are clamped rather than rejected.
func parseWAVContent(content []byte) ([]float32, int, error) {
	if len(content) < 12 {
		return nil, 0, fmt.Errorf("payload too small to be a valid WAV file")
	}

	reader := bytes.NewReader(content)

	var riffHeader struct {
		ChunkID   [4]byte
		ChunkSize uint32
		Format    [4]byte
	}

	if err := binary.Read(reader, binary.LittleEndian, &riffHeader); err != nil {
		return nil, 0, fmt.Errorf("failed to read RIFF header: %w", err)
	}

	if string(riffHeader.ChunkID[:]) != "RIFF" {
		return nil, 0, fmt.Errorf("not a RIFF file: %q", string(riffHeader.ChunkID[:]))
	}

	if string(riffHeader.Format[:]) != "WAVE" {
		return nil, 0, fmt.Errorf("not a WAVE file: %q", string(riffHeader.Format[:]))
	}

	var fmtChunk *FmtChunk
	var dataOffset int64
	var dataSize uint32

	for {
		var chunk WAVChunk
		if err := binary.Read(reader, binary.LittleEndian, &chunk); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, 0, fmt.Errorf("failed to read chunk header: %w", err)
		}

		chunkID := string(chunk.ID[:])

		switch chunkID {
		case "fmt ":
			fmtData := make([]byte, chunk.Size)
			if _, err := io.ReadFull(reader, fmtData); err != nil {
				return nil, 0, fmt.Errorf("failed to read fmt chunk: %w", err)
			}

			var parseErr error
			fmtChunk, parseErr = parseFmtChunk(fmtData)
			if parseErr != nil {
				return nil, 0, fmt.Errorf("failed to parse fmt chunk: %w", parseErr)
			}

		case "data":
			dataOffset, _ = reader.Seek(0, io.SeekCurrent)
			dataSize = chunk.Size

			if _, err := reader.Seek(int64(chunk.Size), io.SeekCurrent); err != nil {
				return nil, 0, fmt.Errorf("failed to skip data chunk: %w", err)
			}

		default:
			if _, err := reader.Seek(int64(chunk.Size), io.SeekCurrent); err != nil {
				return nil, 0, fmt.Errorf("failed to skip chunk %s: %w", chunkID, err)
			}
		}
	}

	if fmtChunk == nil {
		return nil, 0, fmt.Errorf("fmt chunk not found")
	}

	if dataOffset == 0 {
		return nil, 0, fmt.Errorf("data chunk not found")
	}

	if fmtChunk.AudioFormat != 1 {
		return nil, 0, fmt.Errorf("unsupported audio format: %d (only PCM is supported)", fmtChunk.AudioFormat)
	}

	if fmtChunk.BitsPerSample != 16 {
		return nil, 0, fmt.Errorf("unsupported bits per sample: %d (only 16-bit is supported)", fmtChunk.BitsPerSample)
	}

	return extractAudioData(content, dataOffset, dataSize, fmtChunk)
}

// parseFmtChunk parses the fmt chunk
func parseFmtChunk(data []byte) (*FmtChunk, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("fmt chunk too small: %d bytes", len(data))
	}

	var fmtData FmtChunk
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &fmtData); err != nil {
		return nil, fmt.Errorf("failed to read fmt chunk: %w", err)
	}

	return &fmtData, nil
}

// extractAudioData converts the data chunk into mono float32 samples
func extractAudioData(content []byte, dataOffset int64, dataSize uint32, fmtChunk *FmtChunk) ([]float32, int, error) {
	if dataOffset+int64(dataSize) > int64(len(content)) {
		dataSize = uint32(int64(len(content)) - dataOffset)
	}

	channels := int(fmtChunk.NumChannels)
	if channels < 1 {
		channels = 1
	}

	frameBytes := 2 * channels
	numFrames := int(dataSize) / frameBytes
	if numFrames <= 0 {
		return nil, 0, fmt.Errorf("no audio samples found")
	}

	dataBytes := content[dataOffset : dataOffset+int64(dataSize)]
	audioData := make([]float32, numFrames)

	for i := 0; i < numFrames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			off := i*frameBytes + ch*2
			sample := int16(binary.LittleEndian.Uint16(dataBytes[off:]))
			sum += float32(sample) / 32767.0
		}
		audioData[i] = clampSample(sum / float32(channels))
	}

	return audioData, int(fmtChunk.SampleRate), nil
}
