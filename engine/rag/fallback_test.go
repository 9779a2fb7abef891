package rag

import (
	"strings"
	"testing"

	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/retrieval"
)

func TestFallback_NoMatches(t *testing.T) {
	pet := domain.PetDetails{Name: "Buddy", Species: "Dog"}

	got := fallbackResponse(pet, nil, false)
	if got.Confidence != domain.ConfidenceLow {
		t.Errorf("confidence = %q, want low", got.Confidence)
	}
	if got.UrgencyLevel != domain.SeverityRoutine || got.ServiceRecommendation != domain.ServiceVideoConsult {
		t.Errorf("non-emergency defaults = %q/%q", got.UrgencyLevel, got.ServiceRecommendation)
	}
	if got.PetName != "Buddy" {
		t.Errorf("pet name = %q", got.PetName)
	}
	if len(got.ImmediateSteps) == 0 || len(got.HomeCareTips) == 0 || got.WhenToSeeVet == "" {
		t.Errorf("template fields incomplete: %+v", got)
	}
}

func TestFallback_NoMatchesEmergency(t *testing.T) {
	got := fallbackResponse(domain.PetDetails{Name: "Buddy"}, nil, true)
	if got.UrgencyLevel != domain.SeverityUrgent {
		t.Errorf("urgency = %q, want urgent when flagged", got.UrgencyLevel)
	}
	if got.ServiceRecommendation != domain.ServiceInClinic {
		t.Errorf("service = %q, want in_clinic when flagged", got.ServiceRecommendation)
	}
}

func TestFallback_TopMatch(t *testing.T) {
	meta := corpus.Metadata{
		Symptom:               "Vomiting",
		Description:           "Repeated vomiting after meals",
		Severity:              domain.SeverityUrgent,
		Species:               "dogs",
		HomeCareIndia:         "Withhold food for 6 hours, offer ORS water",
		VetTriggers:           "Blood in vomit or more than 3 episodes",
		ServiceRecommendation: "video_consult",
		IndianClimateFactors:  "Dehydrates faster in summer heat",
	}
	matches := []retrieval.SearchResult{{Score: 1.2, Similarity: 1.0, Meta: meta}}

	got := fallbackResponse(domain.PetDetails{Name: "Buddy"}, matches, false)
	if got.Confidence != domain.ConfidenceMedium {
		t.Errorf("confidence = %q, want medium", got.Confidence)
	}
	if !strings.Contains(got.Summary, "Vomiting") {
		t.Errorf("summary should mention the matched symptom: %q", got.Summary)
	}
	if got.WhatWeFound != meta.Description {
		t.Errorf("what_we_found = %q", got.WhatWeFound)
	}
	if got.UrgencyLevel != domain.SeverityUrgent {
		t.Errorf("urgency = %q, want the match severity", got.UrgencyLevel)
	}
	if got.ServiceRecommendation != domain.ServiceVideoConsult {
		t.Errorf("service = %q, want the match recommendation", got.ServiceRecommendation)
	}
	if len(got.HomeCareTips) != 1 || got.HomeCareTips[0] != meta.HomeCareIndia {
		t.Errorf("home care tips = %v", got.HomeCareTips)
	}
	if got.WhenToSeeVet != meta.VetTriggers {
		t.Errorf("when_to_see_vet = %q", got.WhenToSeeVet)
	}
	if got.AdditionalNotes != meta.IndianClimateFactors {
		t.Errorf("additional_notes = %q", got.AdditionalNotes)
	}
}

func TestFallback_TopMatchSparseMetadata(t *testing.T) {
	matches := []retrieval.SearchResult{{Meta: corpus.Metadata{
		Severity:              domain.Severity("bogus"),
		ServiceRecommendation: "bogus",
	}}}

	got := fallbackResponse(domain.PetDetails{}, matches, false)
	if got.UrgencyLevel != domain.SeverityRoutine {
		t.Errorf("invalid severity should default to routine, got %q", got.UrgencyLevel)
	}
	if got.ServiceRecommendation != domain.ServiceVideoConsult {
		t.Errorf("invalid service should default to video_consult, got %q", got.ServiceRecommendation)
	}
	if !strings.Contains(got.Summary, "the condition") {
		t.Errorf("empty symptom should use the generic phrase: %q", got.Summary)
	}
	if len(got.HomeCareTips) != 1 || got.HomeCareTips[0] == "" {
		t.Errorf("empty home care should get a default tip: %v", got.HomeCareTips)
	}
	if got.WhenToSeeVet == "" {
		t.Error("empty vet triggers should get a default")
	}
	if got.PetName != "Your pet" {
		t.Errorf("pet name = %q, want generic default", got.PetName)
	}
}
