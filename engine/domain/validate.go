package domain

import (
	"strings"
	"unicode/utf8"
)

const (
	minQueryLength = 10
	maxQueryLength = 1000
)

// ValidatePetDetails checks the required pet fields. Species is free text but
// must mention a supported animal; only dogs and cats are covered by the
// knowledge base.
func ValidatePetDetails(p PetDetails) error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", p.Name, ErrMissingField)
	}
	species := strings.TrimSpace(p.Species)
	if species == "" {
		return NewValidationError("species", p.Species, ErrMissingField)
	}
	lower := strings.ToLower(species)
	if !strings.Contains(lower, "dog") && !strings.Contains(lower, "cat") {
		return NewValidationError("species", p.Species, ErrUnsupportedSpecies)
	}
	return nil
}

// ValidateQuery checks the symptom query length bounds.
func ValidateQuery(query string) error {
	text := strings.TrimSpace(query)
	switch n := utf8.RuneCountInString(text); {
	case n == 0:
		return NewValidationError("query", text, ErrMissingField)
	case n < minQueryLength:
		return NewValidationError("query", text, ErrQueryTooShort)
	case n > maxQueryLength:
		return NewValidationError("query", "", ErrQueryTooLong)
	}
	return nil
}
