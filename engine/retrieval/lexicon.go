// Package retrieval turns a free-text symptom query into a ranked list of
// corpus matches: lexical query expansion, vector similarity search,
// species filtering, and severity-weighted re-ranking.
package retrieval

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Synonym maps a lay term to its clinical variants, used to counteract
// vocabulary mismatch between pet parents and the corpus. Entries are
// ordered so expansion is deterministic.
type Synonym struct {
	Term     string   `yaml:"term"`
	Variants []string `yaml:"variants"`
}

// SpeciesAlias maps a substring of the caller's species field to the species
// filter value used by the corpus (e.g. "dog" → "dogs").
type SpeciesAlias struct {
	Contains string `yaml:"contains"`
	Filter   string `yaml:"filter"`
}

// Lexicon bundles the domain word tables the retrieval pipeline depends on.
type Lexicon struct {
	Synonyms          []Synonym      `yaml:"synonyms"`
	EmergencyKeywords []string       `yaml:"emergency_keywords"`
	SpeciesAliases    []SpeciesAlias `yaml:"species_aliases"`
}

// DefaultLexicon returns the built-in veterinary word tables.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Synonyms: []Synonym{
			{Term: "vomit", Variants: []string{"vomiting", "throwing up", "emesis"}},
			{Term: "diarrhea", Variants: []string{"loose stool", "loose motion", "watery stool"}},
			{Term: "pee", Variants: []string{"urinate", "urine", "urination"}},
			{Term: "poop", Variants: []string{"stool", "feces", "defecate"}},
			{Term: "cough", Variants: []string{"coughing", "hacking"}},
			{Term: "scratch", Variants: []string{"scratching", "itching", "itchy"}},
			{Term: "limp", Variants: []string{"limping", "lame", "not walking"}},
			{Term: "breath", Variants: []string{"breathing", "respiratory", "panting"}},
			{Term: "eat", Variants: []string{"eating", "appetite", "food"}},
			{Term: "blood", Variants: []string{"bleeding", "bloody"}},
		},
		EmergencyKeywords: []string{
			"bleeding", "blood", "seizure", "unconscious", "not breathing",
			"collapsed", "severe pain", "bloat", "poisoning", "trauma",
			"snake bite", "broken bone", "can't stand", "blue gums",
		},
		SpeciesAliases: []SpeciesAlias{
			{Contains: "dog", Filter: "dogs"},
			{Contains: "cat", Filter: "cats"},
		},
	}
}

// LoadLexicon reads a Lexicon from a YAML file. Missing sections fall back
// to the defaults, so a config file can override just one table.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("retrieval: read lexicon %s: %w", path, err)
	}

	var lx Lexicon
	if err := yaml.Unmarshal(data, &lx); err != nil {
		return Lexicon{}, fmt.Errorf("retrieval: parse lexicon %s: %w", path, err)
	}

	def := DefaultLexicon()
	if lx.Synonyms == nil {
		lx.Synonyms = def.Synonyms
	}
	if lx.EmergencyKeywords == nil {
		lx.EmergencyKeywords = def.EmergencyKeywords
	}
	if lx.SpeciesAliases == nil {
		lx.SpeciesAliases = def.SpeciesAliases
	}
	return lx, nil
}
