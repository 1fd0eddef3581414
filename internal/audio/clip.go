package audio

import (
	"bytes"
	"fmt"
)

// Supported container formats
const (
	FormatWAV     = "wav"
	FormatMP3     = "mp3"
	FormatUnknown = "unknown"
)

// Clip is an opaque, playable audio payload. It is what the narration,
// recording and answer paths hand around; only the decoder looks inside.
type Clip struct {
	Data   []byte
	Format string
}

// NewClip wraps raw audio bytes. An empty format is detected from the data.
func NewClip(data []byte, format string) *Clip {
	if format == "" {
		format = DetectFormat(data)
	}
	return &Clip{Data: data, Format: format}
}

// Len returns the payload size in bytes
func (c *Clip) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}

// Empty reports whether the clip carries no audio
func (c *Clip) Empty() bool {
	return c.Len() == 0
}

func (c *Clip) String() string {
	if c == nil {
		return "<no audio>"
	}
	return fmt.Sprintf("%s clip (%d bytes)", c.Format, len(c.Data))
}

// DetectFormat sniffs the container from the leading bytes.
func DetectFormat(data []byte) string {
	if len(data) >= 4 {
		if bytes.Equal(data[:4], []byte("RIFF")) {
			return FormatWAV
		}
		if data[0] == 0xFF && (data[1]&0xE0) == 0xE0 {
			return FormatMP3
		}
		if bytes.Equal(data[:3], []byte("ID3")) {
			return FormatMP3
		}
	}
	return FormatUnknown
}
