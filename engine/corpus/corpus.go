// Package corpus holds the veterinary knowledge base: the flattened
// (text, metadata) entries loaded from dataset sources. A Store is immutable
// after construction; entry position is the join key with the vector index.
package corpus

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
)

// Metadata is the fixed record attached to every corpus entry. Modelling it
// as a struct (rather than a free-form map) catches schema drift from the
// dataset sources at load time instead of at render time.
type Metadata struct {
	Symptom               string          `json:"symptom"`
	Description           string          `json:"description"`
	Severity              domain.Severity `json:"severity"`
	Species               string          `json:"species"`
	HomeCareIndia         string          `json:"home_care_india"`
	VetTriggers           string          `json:"vet_triggers"`
	ServiceRecommendation string          `json:"service_recommendation"`
	IndianClimateFactors  string          `json:"indian_climate_factors"`
	Category              string          `json:"category"`
}

// Entry is one retrievable case record. Text is the symptom and description
// concatenated, which is what gets embedded.
type Entry struct {
	ID   string   `json:"id"`
	Text string   `json:"text"`
	Meta Metadata `json:"metadata"`
}

// NewEntry builds an Entry from metadata, deriving the embeddable text and a
// deterministic ID from the category and position.
func NewEntry(meta Metadata, position int) Entry {
	name := fmt.Sprintf("%s-%d", meta.Category, position)
	return Entry{
		ID:   uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String(),
		Text: meta.Symptom + ". " + meta.Description,
		Meta: meta,
	}
}

// Store is the read-only corpus. Safe for concurrent reads.
type Store struct {
	entries []Entry
}

// NewStore creates a Store over the given ordered entries. The slice is
// copied so later mutation by the caller cannot leak in.
func NewStore(entries []Entry) *Store {
	owned := make([]Entry, len(entries))
	copy(owned, entries)
	return &Store{entries: owned}
}

// Len returns the number of entries.
func (s *Store) Len() int { return len(s.entries) }

// At returns the entry at position i. Positions come from the vector index,
// which is built over the same ordered sequence.
func (s *Store) At(i int) Entry { return s.entries[i] }

// Texts returns the embeddable text of every entry, in position order.
func (s *Store) Texts() []string {
	out := make([]string, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Text
	}
	return out
}

// Categories returns the per-category entry counts.
func (s *Store) Categories() map[string]int {
	out := make(map[string]int)
	for _, e := range s.entries {
		out[e.Meta.Category]++
	}
	return out
}
