package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Persona overrides the agent's preamble and voice for a named character.
type Persona struct {
	Name     string `yaml:"name"`
	Preamble string `yaml:"preamble"`
	Voice    string `yaml:"voice"`
}

type personaFile struct {
	Personas []Persona `yaml:"personas"`
}

// Personas is a case-insensitive lookup of configured characters.
type Personas struct {
	byName map[string]Persona
}

// LoadPersonas parses the YAML persona file. An empty path yields an empty
// set, so persona support stays optional.
func LoadPersonas(path string) (*Personas, error) {
	p := &Personas{byName: make(map[string]Persona)}
	if path == "" {
		return p, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona file: %w", err)
	}
	var parsed personaFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse persona file: %w", err)
	}
	for _, persona := range parsed.Personas {
		if persona.Name == "" {
			return nil, fmt.Errorf("persona file %s: persona without a name", path)
		}
		p.byName[strings.ToLower(persona.Name)] = persona
	}
	return p, nil
}

// Lookup returns the persona for name, if configured.
func (p *Personas) Lookup(name string) (Persona, bool) {
	persona, ok := p.byName[strings.ToLower(strings.TrimSpace(name))]
	return persona, ok
}

func (p *Personas) Len() int {
	return len(p.byName)
}
