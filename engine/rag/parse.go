package rag

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/snoutiq/snoutiq-engine/engine/domain"
	"github.com/snoutiq/snoutiq-engine/pkg/fn"
)

// parseStructured extracts a VetResponse from the generative model's raw
// reply. It first attempts a strict parse of the whole text, then falls back
// to the greedy brace-delimited substring (models often wrap JSON in prose
// or code fences). Failure is a result value, not an error to propagate:
// the synthesizer's fallback branch consumes it.
func parseStructured(text string) fn.Result[VetResponse] {
	var resp VetResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &resp); err == nil {
		return fn.Ok(resp)
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start == -1 || end <= start {
		return fn.Errf[VetResponse]("rag: no JSON object in reply")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return fn.Err[VetResponse](fmt.Errorf("rag: parse extracted JSON: %w", err))
	}
	return fn.Ok(resp)
}

// sanitize coerces a model-produced response into the guaranteed shape:
// enum fields always land in their valid sets and required fields are never
// empty. The model's reply is trusted for content, not for structure.
func sanitize(resp VetResponse, pet domain.PetDetails, isEmergency bool) VetResponse {
	if resp.PetName == "" {
		resp.PetName = petNameOrDefault(pet)
	}
	if !domain.ValidSeverities[resp.UrgencyLevel] {
		if isEmergency {
			resp.UrgencyLevel = domain.SeverityUrgent
		} else {
			resp.UrgencyLevel = domain.SeverityRoutine
		}
	}
	if !domain.ValidServiceRecommendations[resp.ServiceRecommendation] {
		if isEmergency {
			resp.ServiceRecommendation = domain.ServiceInClinic
		} else {
			resp.ServiceRecommendation = domain.ServiceVideoConsult
		}
	}
	if !domain.ValidConfidences[resp.Confidence] {
		resp.Confidence = domain.ConfidenceLow
	}
	if resp.ImmediateSteps == nil {
		resp.ImmediateSteps = []string{}
	}
	if resp.HomeCareTips == nil {
		resp.HomeCareTips = []string{}
	}
	return resp
}

func petNameOrDefault(pet domain.PetDetails) string {
	if pet.Name == "" {
		return "Your pet"
	}
	return pet.Name
}
