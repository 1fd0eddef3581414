package audio

import (
	"fmt"
	"log"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// DefaultSampleRate is the device rate used for capture and playback
const DefaultSampleRate = 16000

var (
	audioManager *Manager
	managerOnce  sync.Once
)

// Manager reference-counts PortAudio so that the capture device and the
// narration player can be opened and closed independently.
type Manager struct {
	mu          sync.Mutex
	initialized bool
	refCount    int
}

// GetManager returns the process-wide audio manager
func GetManager() *Manager {
	managerOnce.Do(func() {
		audioManager = &Manager{}
	})
	return audioManager
}

// Initialize takes a reference, initializing PortAudio on first use
func (m *Manager) Initialize() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		if err := portaudio.Initialize(); err != nil {
			return fmt.Errorf("failed to initialize PortAudio: %w", err)
		}
		m.initialized = true
		log.Printf("PortAudio initialized (%s)", portaudio.VersionText())
	}

	m.refCount++
	return nil
}

// Terminate drops a reference, shutting PortAudio down with the last one
func (m *Manager) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refCount > 0 {
		m.refCount--
	}

	if m.refCount == 0 && m.initialized {
		if err := portaudio.Terminate(); err != nil {
			return fmt.Errorf("failed to terminate PortAudio: %w", err)
		}
		m.initialized = false
	}

	return nil
}

// HasInputDevice reports whether a default capture device is available
func (m *Manager) HasInputDevice() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return false
	}
	dev, err := portaudio.DefaultInputDevice()
	return err == nil && dev != nil && dev.MaxInputChannels > 0
}
