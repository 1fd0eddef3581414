package tts

import (
	"fmt"
	"os"
	"path/filepath"

	"presentation-assistant/internal/audio"
)

// SaveClip writes clip bytes to filename, creating parent directories
func SaveClip(clip *audio.Clip, filename string) error {
	if clip.Empty() {
		return fmt.Errorf("audio data is empty")
	}

	dir := filepath.Dir(filename)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(filename, clip.Data, 0644); err != nil {
		return fmt.Errorf("failed to write audio file %s: %w", filename, err)
	}

	return nil
}

// GetFileExtensionForFormat returns the file extension for a clip format
func GetFileExtensionForFormat(format string) string {
	switch format {
	case audio.FormatMP3:
		return ".mp3"
	case audio.FormatWAV:
		return ".wav"
	default:
		return ".bin"
	}
}

// ValidateFilePath validates if the file path is valid for writing
func ValidateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("filename cannot be empty")
	}

	if info, err := os.Stat(filename); err == nil && info.IsDir() {
		return fmt.Errorf("%s is a directory", filename)
	}

	return nil
}
