package prompt

import "strings"

const (
	// DefaultHistoryWordLimit bounds conversation history inside the final prompt.
	DefaultHistoryWordLimit = 100
	// DefaultTruncateWordLimit bounds history for summary and extraction prompts.
	DefaultTruncateWordLimit = 1000
)

// ContextInputs are the per-user values gathered before rendering a prompt.
// Empty fields drop their section from the rendered output entirely.
type ContextInputs struct {
	Memory          string
	Summary         string
	DocumentExcerpt string
	History         string
}

// Renderer fills prompt templates with runtime values.
type Renderer struct {
	templates        Templates
	buddyName        string
	historyWordLimit int
}

func NewRenderer(templates Templates, buddyName string, historyWordLimit int) *Renderer {
	if historyWordLimit <= 0 {
		historyWordLimit = DefaultHistoryWordLimit
	}
	return &Renderer{
		templates:        templates,
		buddyName:        buddyName,
		historyWordLimit: historyWordLimit,
	}
}

func (r *Renderer) BuddyName() string { return r.buddyName }

// TruncateWords returns the last limit words of s, space-joined. Shorter
// inputs come back unchanged.
func TruncateWords(s string, limit int) string {
	if limit <= 0 {
		limit = DefaultTruncateWordLimit
	}
	words := strings.Fields(s)
	if len(words) <= limit {
		return s
	}
	return strings.Join(words[len(words)-limit:], " ")
}

// Preamble renders the persona system message for the reply backend.
func (r *Renderer) Preamble(userName string) string {
	return fill(r.templates.BuddyPreamble, map[string]string{
		"buddy_name": r.buddyName,
		"user_name":  userName,
	})
}

// PreambleFrom renders an override persona text through the same placeholder
// contract, used when a request selects a named persona.
func (r *Renderer) PreambleFrom(text, userName string) string {
	return fill(text, map[string]string{
		"buddy_name": r.buddyName,
		"user_name":  userName,
	})
}

// Final renders the combined user prompt: conditionally assembled context
// block, truncated history and the raw utterance.
func (r *Renderer) Final(userName, utterance string, in ContextInputs) string {
	var history string
	if in.History != "" {
		history = "The following is a conversation of you and " + userName + ", for context:\n" +
			TruncateWords(in.History, r.historyWordLimit)
	}

	var memory string
	if in.Memory != "" {
		memory = "The following is a memory about " + userName + ". It contains experiences and opinions.\n" +
			in.Memory
	}

	var docs string
	if in.DocumentExcerpt != "" {
		docs = "The following content is extracted from documents uploaded by " + userName + ":\n" +
			in.DocumentExcerpt
	}

	segments := make([]string, 0, 3)
	for _, s := range []string{memory, in.Summary, docs} {
		if s != "" {
			segments = append(segments, s)
		}
	}

	return fill(r.templates.Final, map[string]string{
		"user_name":              userName,
		"buddy_name":             r.buddyName,
		"memory_and_summary":     strings.Join(segments, "\n"),
		"truncated_conversation": history,
		"user_utterance":         utterance,
	})
}

// MemoryPreamble renders the system message for the extraction backend.
func (r *Renderer) MemoryPreamble() string {
	return r.templates.MemoryPreamble
}

// MemoryPrompt renders the user message for the extraction backend. The
// utterance is wrapped so the model extracts from it alone, not the history.
func (r *Renderer) MemoryPrompt(userName, utterance, history string) string {
	if utterance != "" {
		utterance = "The utterance is given by the user. Remember that you have to extract the memory from the utterance only.\n" +
			utterance
	}
	return fill(r.templates.Memory, map[string]string{
		"user_name":      userName,
		"conversation":   TruncateWords(history, DefaultTruncateWordLimit),
		"user_utterance": utterance,
	})
}

// SummaryPrompt renders the user message for the summary backend.
func (r *Renderer) SummaryPrompt(history string) string {
	return fill(r.templates.Summary, map[string]string{
		"conversation": TruncateWords(history, DefaultTruncateWordLimit),
	})
}
