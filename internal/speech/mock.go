package speech

import "context"

// MockSynthesizer returns canned audio for tests and keyless local runs.
type MockSynthesizer struct {
	Audio  []byte
	Format string
	Err    error

	Calls    int
	LastText string
}

func NewMockSynthesizer() *MockSynthesizer {
	return &MockSynthesizer{Audio: []byte("mock-audio"), Format: FormatMP3}
}

func (m *MockSynthesizer) Synthesize(_ context.Context, text string) ([]byte, string, error) {
	m.Calls++
	m.LastText = text
	if m.Err != nil {
		return nil, "", m.Err
	}
	return m.Audio, m.Format, nil
}
