// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vocab holds the device and indicator term vocabularies that drive
// the harvest. Terms are grouped under a canonical name with its synonyms;
// flattening a vocabulary preserves group order and, within a group, puts
// the canonical term before its synonyms. Order matters downstream: it
// determines which terms share a query batch.
package vocab

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// Group is one canonical term together with its synonyms.
type Group struct {
	Term     string   `yaml:"term"`
	Synonyms []string `yaml:"synonyms,omitempty"`
}

// Vocabulary pairs the device terms with the indicator terms for one run.
type Vocabulary struct {
	Devices    []Group `yaml:"devices"`
	Indicators []Group `yaml:"indicators"`
}

// Flatten expands groups into a single term list: each canonical term
// followed by its synonyms, groups in declaration order.
func Flatten(groups []Group) []string {
	var terms []string
	for _, g := range groups {
		terms = append(terms, g.Term)
		terms = append(terms, g.Synonyms...)
	}
	return terms
}

// DeviceTerms returns the flattened device term list.
func (v Vocabulary) DeviceTerms() []string { return Flatten(v.Devices) }

// IndicatorTerms returns the flattened indicator term list.
func (v Vocabulary) IndicatorTerms() []string { return Flatten(v.Indicators) }

// Validate checks that both sides of the vocabulary carry at least one
// non-empty term.
func (v Vocabulary) Validate() error {
	if err := validateGroups(v.Devices); err != nil {
		return fmt.Errorf("devices: %w", err)
	}
	if err := validateGroups(v.Indicators); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	return nil
}

func validateGroups(groups []Group) error {
	if len(groups) == 0 {
		return fmt.Errorf("no term groups")
	}
	for i, g := range groups {
		if g.Term == "" {
			return fmt.Errorf("group %d has an empty canonical term", i)
		}
		for j, s := range g.Synonyms {
			if s == "" {
				return fmt.Errorf("group %d (%s) has an empty synonym at %d", i, g.Term, j)
			}
		}
	}
	return nil
}

// Load reads a vocabulary from a YAML file and validates it.
func Load(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("reading vocabulary file: %w", err)
	}
	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parsing vocabulary file: %w", err)
	}
	if err := v.Validate(); err != nil {
		return Vocabulary{}, fmt.Errorf("invalid vocabulary in %s: %w", path, err)
	}
	return v, nil
}
