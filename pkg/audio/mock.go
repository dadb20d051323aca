package audio

import (
	"context"
	"sync"
	"time"
)

// Mock implements Controller for testing.
// All methods can be customized via function fields.
type Mock struct {
	// TtsFunc is called when TtsMaker is invoked.
	// If nil, returns nil (accepted).
	TtsFunc func(ctx context.Context, text string, lang Language) error

	// GetVolumeFunc is called when GetVolume is invoked.
	// If nil, returns the last volume set (initially 50).
	GetVolumeFunc func(ctx context.Context) (uint8, error)

	// SetVolumeFunc is called when SetVolume is invoked.
	// If nil, stores the volume.
	SetVolumeFunc func(ctx context.Context, volume uint8) error

	// PlayStopFunc is called when PlayStop is invoked.
	// If nil, returns nil.
	PlayStopFunc func(ctx context.Context, appName string) error

	// Tracking
	mu     sync.Mutex
	volume uint8
	calls  []MockCall
}

// MockCall records a method invocation for verification.
type MockCall struct {
	Method   string
	Text     string
	Language Language
	Volume   uint8
	AppName  string
	Time     time.Time
}

// NewMock creates a new mock controller with volume 50.
func NewMock() *Mock {
	return &Mock{volume: 50}
}

// TtsMaker calls TtsFunc and records the call.
func (m *Mock) TtsMaker(ctx context.Context, text string, lang Language) error {
	m.record(MockCall{Method: "TtsMaker", Text: text, Language: lang})
	if m.TtsFunc != nil {
		return m.TtsFunc(ctx, text, lang)
	}
	return nil
}

// GetVolume calls GetVolumeFunc and records the call.
func (m *Mock) GetVolume(ctx context.Context) (uint8, error) {
	m.record(MockCall{Method: "GetVolume"})
	if m.GetVolumeFunc != nil {
		return m.GetVolumeFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume, nil
}

// SetVolume calls SetVolumeFunc and records the call.
func (m *Mock) SetVolume(ctx context.Context, volume uint8) error {
	m.record(MockCall{Method: "SetVolume", Volume: volume})
	if m.SetVolumeFunc != nil {
		return m.SetVolumeFunc(ctx, volume)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = volume
	return nil
}

// PlayStop calls PlayStopFunc and records the call.
func (m *Mock) PlayStop(ctx context.Context, appName string) error {
	m.record(MockCall{Method: "PlayStop", AppName: appName})
	if m.PlayStopFunc != nil {
		return m.PlayStopFunc(ctx, appName)
	}
	return nil
}

func (m *Mock) record(call MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	call.Time = time.Now()
	m.calls = append(m.calls, call)
}

// Calls returns all recorded method calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// CallCount returns the number of times a method was called.
func (m *Mock) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// LastCall returns the most recent call, or nil if none.
func (m *Mock) LastCall() *MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	call := m.calls[len(m.calls)-1]
	return &call
}

// WithStatus returns a mock whose TtsMaker always fails with code.
func WithStatus(code int32) *Mock {
	m := NewMock()
	m.TtsFunc = func(ctx context.Context, text string, lang Language) error {
		return &StatusError{API: "TtsMaker", Code: code}
	}
	return m
}
