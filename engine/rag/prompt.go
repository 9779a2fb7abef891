package rag

import (
	"fmt"
	"strings"

	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/engine/retrieval"
)

// promptMatches is how many top matches are rendered into the prompt.
const promptMatches = 3

// buildPrompt deterministically renders the pet details, top matches, and
// emergency flag into the instruction block sent to the generative model.
// The block mandates the exact VetResponse JSON schema.
func buildPrompt(pet domain.PetDetails, query string, matches []retrieval.SearchResult, isEmergency bool) string {
	var ctxParts []string
	for i, m := range matches {
		if i >= promptMatches {
			break
		}
		ctxParts = append(ctxParts, fmt.Sprintf(`
Match %d:
  Symptom: %s
  Description: %s
  Severity: %s
  Home Care: %s
  When to See Vet: %s
`,
			i+1,
			orNA(m.Meta.Symptom),
			orNA(m.Meta.Description),
			orNA(string(m.Meta.Severity)),
			orNA(m.Meta.HomeCareIndia),
			orNA(m.Meta.VetTriggers),
		))
	}
	context := strings.Join(ctxParts, "\n")

	petSummary := fmt.Sprintf(`
Pet Name: %s
Species: %s
Breed: %s
Age: %s
Weight: %s
Sex: %s
Vaccination Status: %s
Medical History: %s
`,
		pet.Name, pet.Species, pet.Breed, pet.Age,
		pet.Weight, pet.Sex, pet.VaccinationSummary, pet.MedicalHistory,
	)

	emergencyStatus := "No immediate emergency detected"
	if isEmergency {
		emergencyStatus = "YES - URGENT ATTENTION NEEDED"
	}

	petName := pet.Name
	if petName == "" {
		petName = "Your pet"
	}

	return fmt.Sprintf(`
You are a veterinary AI assistant for SNOUTIQ, a pet health platform in India.

PET DETAILS:
%s

PET PARENT'S QUERY:
%s

RELEVANT MEDICAL INFORMATION:
%s

EMERGENCY STATUS: %s

INSTRUCTIONS:
Generate a response for the pet parent in this EXACT JSON format:

{
  "pet_name": %q,
  "summary": "Brief 1-2 sentence summary of the situation",
  "what_we_found": "Detailed explanation based on symptoms and pet's medical history (3-4 sentences)",
  "immediate_steps": [
    "Step 1: What to do right now",
    "Step 2: How to monitor",
    "Step 3: What to avoid"
  ],
  "home_care_tips": [
    "Tip 1: Specific care advice for India",
    "Tip 2: What to watch for",
    "Tip 3: How to make pet comfortable"
  ],
  "when_to_see_vet": "Clear criteria for when veterinary care is needed",
  "urgency_level": "emergency/urgent/routine",
  "service_recommendation": "in_clinic/video_consult",
  "confidence": "high/medium/low",
  "additional_notes": "Any breed-specific, age-specific, or climate considerations for India"
}

IMPORTANT:
- Use simple, empathetic language for pet parents
- Consider India's hot/humid climate
- Consider pet's age, breed, and medical history
- If emergency, stress immediate vet visit
- Return ONLY valid JSON, no extra text
`, petSummary, query, context, emergencyStatus, petName)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
