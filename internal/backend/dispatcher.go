package backend

import (
	"context"
	"log"
	"sort"
	"strings"
)

// Dispatcher routes completion calls to a named provider. Unknown or unset
// names fall back to the default provider rather than failing, so a stale
// model name in config degrades instead of breaking replies.
type Dispatcher struct {
	providers   map[string]Completer
	defaultName string
	cleaner     Cleaner
}

func NewDispatcher(providers map[string]Completer, defaultName string, cleaner Cleaner) *Dispatcher {
	return &Dispatcher{
		providers:   providers,
		defaultName: strings.ToLower(strings.TrimSpace(defaultName)),
		cleaner:     cleaner,
	}
}

func (d *Dispatcher) resolve(name string) Completer {
	name = strings.ToLower(strings.TrimSpace(name))
	if p, ok := d.providers[name]; ok {
		return p
	}
	if name != "" && name != d.defaultName {
		log.Printf("backend %q not configured, using default %q", name, d.defaultName)
	}
	return d.providers[d.defaultName]
}

// Complete runs a plain-text completion on the named backend and applies the
// artifact cleanup pass before returning. Provider faults propagate untouched.
func (d *Dispatcher) Complete(ctx context.Context, name string, req Request) (string, error) {
	text, err := d.resolve(name).Complete(ctx, req)
	if err != nil {
		return "", err
	}
	if d.cleaner != nil {
		text = d.cleaner.Clean(text)
	}
	return text, nil
}

// CompleteStructured runs a structured-mode completion on the named backend.
// The typed record is passed through without cleanup; it is data, not display
// text.
func (d *Dispatcher) CompleteStructured(ctx context.Context, name string, req Request) (Extraction, error) {
	return d.resolve(name).CompleteStructured(ctx, req)
}

// Names lists the configured backend identifiers, sorted.
func (d *Dispatcher) Names() []string {
	names := make([]string, 0, len(d.providers))
	for n := range d.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
