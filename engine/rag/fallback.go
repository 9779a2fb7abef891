package rag

import (
	"fmt"

	"github.com/snoutiq/snoutiq-engine/engine/corpus"
	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/retrieval"
)

// fallbackResponse builds a deterministic, template-derived response with no
// external calls. This is the reliability contract of the pipeline: whatever
// the generative boundary does, the caller gets a schema-valid VetResponse.
func fallbackResponse(pet domain.PetDetails, matches []retrieval.SearchResult, isEmergency bool) VetResponse {
	if len(matches) == 0 {
		return noMatchFallback(pet, isEmergency)
	}
	return topMatchFallback(pet, matches[0].Meta)
}

// noMatchFallback is the conservative template used when retrieval found
// nothing usable.
func noMatchFallback(pet domain.PetDetails, isEmergency bool) VetResponse {
	urgency := domain.SeverityRoutine
	service := domain.ServiceVideoConsult
	if isEmergency {
		urgency = domain.SeverityUrgent
		service = domain.ServiceInClinic
	}

	return VetResponse{
		PetName:     petNameOrDefault(pet),
		Summary:     "We couldn't find specific information for these symptoms.",
		WhatWeFound: "The symptoms you described don't closely match our database. This doesn't mean it's not serious.",
		ImmediateSteps: []string{
			"Monitor your pet closely",
			"Note any changes in behavior or symptoms",
			"Keep your pet comfortable",
		},
		HomeCareTips: []string{
			"Ensure fresh water is available",
			"Keep in a cool, comfortable place",
			"Don't force food if not eating",
		},
		WhenToSeeVet:          "Given the uncertainty, we recommend consulting a veterinarian soon.",
		UrgencyLevel:          urgency,
		ServiceRecommendation: service,
		Confidence:            domain.ConfidenceLow,
		AdditionalNotes:       "Without clear symptom matches, professional veterinary assessment is recommended.",
	}
}

// topMatchFallback derives the response directly from the best match's
// metadata.
func topMatchFallback(pet domain.PetDetails, top corpus.Metadata) VetResponse {
	symptom := top.Symptom
	if symptom == "" {
		symptom = "the condition"
	}

	homeCare := top.HomeCareIndia
	if homeCare == "" {
		homeCare = "Keep comfortable and monitor"
	}

	whenToSeeVet := top.VetTriggers
	if whenToSeeVet == "" {
		whenToSeeVet = "If symptoms persist or worsen"
	}

	urgency := top.Severity
	if !domain.ValidSeverities[urgency] {
		urgency = domain.SeverityRoutine
	}

	service := domain.ServiceRecommendation(top.ServiceRecommendation)
	if !domain.ValidServiceRecommendations[service] {
		service = domain.ServiceVideoConsult
	}

	return VetResponse{
		PetName:     petNameOrDefault(pet),
		Summary:     fmt.Sprintf("Based on symptoms, this appears to be related to %s", symptom),
		WhatWeFound: top.Description,
		ImmediateSteps: []string{
			"Follow home care guidelines below",
			"Monitor symptoms closely",
			"Note any worsening",
		},
		HomeCareTips:          []string{homeCare},
		WhenToSeeVet:          whenToSeeVet,
		UrgencyLevel:          urgency,
		ServiceRecommendation: service,
		Confidence:            domain.ConfidenceMedium,
		AdditionalNotes:       top.IndianClimateFactors,
	}
}
