package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Fixture is one lead to seed, optionally with inbound messages.
type Fixture struct {
	Name     string   `yaml:"name"`
	Address  string   `yaml:"address"`
	Messages []string `yaml:"messages"`
}

type fixtureFile struct {
	Leads []Fixture `yaml:"leads"`
}

// loadFixtures decodes a YAML document with a top-level "leads" list.
func loadFixtures(r io.Reader) ([]Fixture, error) {
	var file fixtureFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	out := make([]Fixture, 0, len(file.Leads))
	for i, f := range file.Leads {
		f.Address = strings.TrimSpace(f.Address)
		if f.Address == "" {
			return nil, fmt.Errorf("lead %d: address is required", i+1)
		}
		out = append(out, f)
	}
	return out, nil
}
