package backend

import (
	"context"
	"sync"
)

// MockCompleter returns canned responses for tests and keyless local runs.
// Safe for concurrent use; the engine calls both modes in parallel.
type MockCompleter struct {
	Reply      string
	Extracted  Extraction
	ReplyErr   error
	ExtractErr error

	mu              sync.Mutex
	CompleteCalls   int
	StructuredCalls int
	LastRequest     Request
}

func NewMockCompleter() *MockCompleter {
	return &MockCompleter{Reply: "Hello! I'm here."}
}

func (m *MockCompleter) Complete(_ context.Context, req Request) (string, error) {
	m.mu.Lock()
	m.CompleteCalls++
	m.LastRequest = req
	m.mu.Unlock()
	if m.ReplyErr != nil {
		return "", m.ReplyErr
	}
	return m.Reply, nil
}

func (m *MockCompleter) CompleteStructured(_ context.Context, req Request) (Extraction, error) {
	m.mu.Lock()
	m.StructuredCalls++
	m.LastRequest = req
	m.mu.Unlock()
	if m.ExtractErr != nil {
		return Extraction{}, m.ExtractErr
	}
	return m.Extracted, nil
}
