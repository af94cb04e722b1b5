package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Default template assets. A prompts directory can override any of them;
// the embedded copies keep the service runnable with zero setup.
const (
	defaultBuddyPreamble = `You are {buddy_name}, a warm and attentive companion for {user_name}. ` +
		`You speak casually, in short conversational sentences, and never mention that you are an AI. ` +
		`Stay in character as {buddy_name} at all times.`

	defaultFinalTemplate = `{memory_and_summary}

{truncated_conversation}

{user_name} says: {user_utterance}

Reply as {buddy_name} in one or two short sentences.`

	defaultMemoryPreamble = `You extract long-term memories about a user from a single utterance. ` +
		`A memory is a lasting fact, preference or opinion worth remembering, not small talk. ` +
		`Respond with a JSON object of the form {"memory_found": true|false, "memory": "..."} and nothing else. ` +
		`When no memory is present, set memory_found to false and memory to an empty string.`

	defaultMemoryTemplate = `The following is the recent conversation with {user_name}, for context:
{conversation}

{user_utterance}`

	defaultSummaryTemplate = `Summarise the following conversation in a short paragraph. ` +
		`Focus on who the user is and what matters to them.

{conversation}`
)

// Templates holds the raw template texts used by the Renderer.
type Templates struct {
	BuddyPreamble  string
	Final          string
	MemoryPreamble string
	Memory         string
	Summary        string
}

// DefaultTemplates returns the embedded template set.
func DefaultTemplates() Templates {
	return Templates{
		BuddyPreamble:  defaultBuddyPreamble,
		Final:          defaultFinalTemplate,
		MemoryPreamble: defaultMemoryPreamble,
		Memory:         defaultMemoryTemplate,
		Summary:        defaultSummaryTemplate,
	}
}

// LoadTemplates reads template overrides from dir. Missing files keep the
// embedded defaults; an empty dir name returns the defaults unchanged.
func LoadTemplates(dir string) (Templates, error) {
	t := DefaultTemplates()
	if strings.TrimSpace(dir) == "" {
		return t, nil
	}

	files := []struct {
		name string
		dst  *string
	}{
		{"buddy_preamble.txt", &t.BuddyPreamble},
		{"final_prompt_template.txt", &t.Final},
		{"memory_preamble.txt", &t.MemoryPreamble},
		{"memory_prompt.txt", &t.Memory},
		{"summary_prompt.txt", &t.Summary},
	}
	for _, f := range files {
		data, err := os.ReadFile(filepath.Join(dir, f.name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Templates{}, fmt.Errorf("read template %s: %w", f.name, err)
		}
		*f.dst = strings.TrimSpace(string(data))
	}
	return t, nil
}

var placeholderPattern = regexp.MustCompile(`\{([a-z_]+)\}`)

// fill substitutes {name} placeholders with vars[name]. Unknown placeholders
// render as empty strings rather than failing.
func fill(tmpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		key := m[1 : len(m)-1]
		return vars[key]
	})
}
