package retrieval

import "strings"

// maxVariants caps the expansion at the original query plus two variants.
const maxVariants = 3

// ExpandQuery rewrites a symptom query into a small set of lexical variants.
// For each synonym term that appears in the lower-cased query, the term is
// replaced by each of its first two variants not already present. The
// original query and up to two variants are space-joined into one string,
// which gets embedded with a single call instead of one call per variant.
func (lx Lexicon) ExpandQuery(query string) string {
	lower := strings.ToLower(query)
	expanded := []string{query}

	for _, syn := range lx.Synonyms {
		if !strings.Contains(lower, syn.Term) {
			continue
		}
		variants := syn.Variants
		if len(variants) > 2 {
			variants = variants[:2]
		}
		for _, v := range variants {
			if len(expanded) >= maxVariants {
				return strings.Join(expanded, " ")
			}
			if !strings.Contains(lower, v) {
				expanded = append(expanded, strings.ReplaceAll(lower, syn.Term, v))
			}
		}
	}

	return strings.Join(expanded, " ")
}

// DetectEmergency reports whether the raw query mentions any emergency
// keyword. It never filters search results; it only annotates urgency.
func (lx Lexicon) DetectEmergency(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range lx.EmergencyKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// NormalizeSpecies maps the caller's free-text species field to the corpus
// species filter value, or "" when no alias matches (no filtering).
func (lx Lexicon) NormalizeSpecies(species string) string {
	lower := strings.ToLower(species)
	for _, alias := range lx.SpeciesAliases {
		if strings.Contains(lower, alias.Contains) {
			return alias.Filter
		}
	}
	return ""
}
