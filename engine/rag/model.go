package rag

import (
	"time"

	"github.com/snoutiq/snoutiq-engine/engine/domain"
)

// VetResponse is the structured recommendation returned for every query.
// It is always fully populated, whether it came from the generative model
// or from the deterministic fallback path.
type VetResponse struct {
	PetName               string                       `json:"pet_name"`
	Summary               string                       `json:"summary"`
	WhatWeFound           string                       `json:"what_we_found"`
	ImmediateSteps        []string                     `json:"immediate_steps"`
	HomeCareTips          []string                     `json:"home_care_tips"`
	WhenToSeeVet          string                       `json:"when_to_see_vet"`
	UrgencyLevel          domain.Severity              `json:"urgency_level"`
	ServiceRecommendation domain.ServiceRecommendation `json:"service_recommendation"`
	Confidence            domain.Confidence            `json:"confidence"`
	AdditionalNotes       string                       `json:"additional_notes"`
	QueryMetadata         QueryMetadata                `json:"query_metadata"`
}

// QueryMetadata annotates a response with retrieval facts.
type QueryMetadata struct {
	Timestamp     time.Time `json:"timestamp"`
	NumMatches    int       `json:"num_matches"`
	IsEmergency   bool      `json:"is_emergency"`
	TopMatchScore float32   `json:"top_match_score"`
}
