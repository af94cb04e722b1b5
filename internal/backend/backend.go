// Package backend provides a uniform call contract over the interchangeable
// text-generation providers and the dispatcher that routes between them.
package backend

import "context"

// Message is one role-tagged part of a prompt request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the ordered prompt sent to a provider. It is built fresh for
// every call and discarded once the call returns.
type Request []Message

// Extraction is the structured-mode response shape: whether the utterance
// implied a new long-term memory and, if so, its text.
type Extraction struct {
	MemoryFound bool   `json:"memory_found"`
	Memory      string `json:"memory"`
}

// Completer is the capability set every provider implements. Both calls are
// synchronous and context-aware; a provider never returns a different shape
// than the mode asked for.
type Completer interface {
	// Complete returns the raw text reply for the prompt.
	Complete(ctx context.Context, req Request) (string, error)
	// CompleteStructured returns the typed memory-extraction record.
	CompleteStructured(ctx context.Context, req Request) (Extraction, error)
}

// Cleaner post-processes plain-text replies. Satisfied by reply.Cleaner.
type Cleaner interface {
	Clean(text string) string
}
