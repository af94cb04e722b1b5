// Package reply strips conversational artifacts from raw model output before
// it reaches the user or the speech synthesizer.
package reply

import (
	"regexp"
	"strings"
)

// Emoji blocks that models like to decorate replies with. Matches the common
// emoticon, pictograph, transport, flag and dingbat ranges.
var emojiPattern = regexp.MustCompile("[" +
	"\U0001F600-\U0001F64F" +
	"\U0001F300-\U0001F5FF" +
	"\U0001F680-\U0001F6FF" +
	"\U0001F1E0-\U0001F1FF" +
	"✂-➰" +
	"Ⓜ-\U0001F251" +
	"]+")

var (
	parentheticalPattern = regexp.MustCompile(`\(.*?\)`)
	bracketedPattern     = regexp.MustCompile(`\[.*?\]`)
	asteriskPattern      = regexp.MustCompile(`\*.*?\*`)
	quotedPattern        = regexp.MustCompile(`"(.*?)"`)
)

// rule is one ordered cleanup step. Keeping the steps in a table makes each
// one independently testable and extension a one-line change.
type rule struct {
	name  string
	apply func(string) string
}

// Cleaner removes speaker prefixes, filler interjections and emoji from model
// replies. Clean is pure and idempotent.
type Cleaner struct {
	rules []rule
}

// NewCleaner builds the default rule table for the given speaker name.
// Prefixes cover the case variants models actually produce.
func NewCleaner(speakerName string) *Cleaner {
	prefixes := speakerPrefixes(speakerName)
	return &Cleaner{
		rules: []rule{
			{name: "strip_prefixes", apply: func(s string) string { return stripPrefixes(s, prefixes) }},
			{name: "remove_emoji", apply: func(s string) string { return emojiPattern.ReplaceAllString(s, "") }},
			{name: "trim", apply: strings.TrimSpace},
		},
	}
}

func speakerPrefixes(name string) []string {
	name = strings.TrimSpace(name)
	variants := []string{"Haha,", "haha,"}
	if name != "" {
		lower := strings.ToLower(name)
		title := strings.ToUpper(name[:1]) + name[1:]
		variants = append(variants,
			title+":", title+" :",
			lower+":", lower+" :",
		)
	}
	return variants
}

// Clean applies the rule table in order until the text is stable. Removing
// emoji can expose a speaker prefix that was not at the start before, so the
// table runs to a fixpoint; that makes Clean idempotent.
func (c *Cleaner) Clean(text string) string {
	for i := 0; i < 4; i++ {
		next := text
		for _, r := range c.rules {
			next = r.apply(next)
		}
		if next == text {
			return next
		}
		text = next
	}
	return text
}

func stripPrefixes(text string, prefixes []string) string {
	trimmed := strings.TrimSpace(text)
	for changed := true; changed; {
		changed = false
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				trimmed = strings.TrimSpace(trimmed[len(p):])
				changed = true
			}
		}
	}
	return trimmed
}

// ExtractQuoted removes parenthesized asides, bracketed stage directions and
// asterisk-wrapped action text, then returns the content of the first
// double-quoted span when one remains, otherwise the trimmed text. Call sites
// that render speech use this on top of the default cleanup.
func (c *Cleaner) ExtractQuoted(text string) string {
	text = c.Clean(text)
	text = parentheticalPattern.ReplaceAllString(text, "")
	text = bracketedPattern.ReplaceAllString(text, "")
	text = asteriskPattern.ReplaceAllString(text, "")
	if m := quotedPattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return strings.TrimSpace(text)
}
