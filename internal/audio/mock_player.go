package audio

import (
	"sync"
	"time"
)

// MockPlayer records playback calls without touching an audio device.
// It stands in for *Device in tests and on machines without audio.
type MockPlayer struct {
	mu       sync.Mutex
	played   []string
	silences []time.Duration

	// PlayErr and SilenceErr, when set, are returned by the next
	// corresponding call and then cleared.
	PlayErr    error
	SilenceErr error
}

// NewMockPlayer creates an empty recording player.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{}
}

// Play records the artifact path.
func (m *MockPlayer) Play(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.PlayErr; err != nil {
		m.PlayErr = nil
		return err
	}
	m.played = append(m.played, path)
	return nil
}

// PlaySilence records the requested duration.
func (m *MockPlayer) PlaySilence(d time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.SilenceErr; err != nil {
		m.SilenceErr = nil
		return err
	}
	m.silences = append(m.silences, d)
	return nil
}

// Played returns the artifact paths played so far.
func (m *MockPlayer) Played() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.played))
	copy(out, m.played)
	return out
}

// Silences returns the silence bursts played so far.
func (m *MockPlayer) Silences() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]time.Duration, len(m.silences))
	copy(out, m.silences)
	return out
}

// FailNextPlay makes the next Play call return err.
func (m *MockPlayer) FailNextPlay(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlayErr = err
}
