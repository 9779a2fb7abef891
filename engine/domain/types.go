// Package domain defines core domain types, constants, and validation for the
// Snoutiq engine pipeline. It acts as the validation gate at pipeline entry points.
package domain

// PetDetails describes the pet a query is about. All fields are free text;
// optional fields are filled with defaults by ApplyDefaults before the
// details reach the pipeline.
type PetDetails struct {
	Name               string `json:"name"`
	Species            string `json:"species"`
	Breed              string `json:"breed,omitempty"`
	Age                string `json:"age,omitempty"`
	Weight             string `json:"weight,omitempty"`
	Sex                string `json:"sex,omitempty"`
	VaccinationSummary string `json:"vaccination_summary,omitempty"`
	MedicalHistory     string `json:"medical_history,omitempty"`
}

// Severity classifies how serious a corpus condition is. The same values
// double as the urgency_level of a response.
type Severity string

const (
	SeverityRoutine   Severity = "routine"
	SeverityUrgent    Severity = "urgent"
	SeverityEmergency Severity = "emergency"
)

// ValidSeverities is the set of recognised severities.
var ValidSeverities = map[Severity]bool{
	SeverityRoutine: true, SeverityUrgent: true, SeverityEmergency: true,
}

// ServiceRecommendation is the consult channel suggested to the pet parent.
type ServiceRecommendation string

const (
	ServiceInClinic     ServiceRecommendation = "in_clinic"
	ServiceVideoConsult ServiceRecommendation = "video_consult"
)

// ValidServiceRecommendations is the set of recognised recommendations.
var ValidServiceRecommendations = map[ServiceRecommendation]bool{
	ServiceInClinic: true, ServiceVideoConsult: true,
}

// Confidence grades how much the response can be trusted.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// ValidConfidences is the set of recognised confidence grades.
var ValidConfidences = map[Confidence]bool{
	ConfidenceHigh: true, ConfidenceMedium: true, ConfidenceLow: true,
}

// Defaults substituted for missing optional pet fields.
const (
	DefaultBreed              = "Mixed"
	DefaultAge                = "Unknown"
	DefaultWeight             = "Unknown"
	DefaultSex                = "Unknown"
	DefaultVaccinationSummary = "Not provided"
	DefaultMedicalHistory     = "No history provided"
)

// ApplyDefaults returns a copy of p with empty optional fields replaced by
// their defaults. Name and Species are required and left untouched.
func ApplyDefaults(p PetDetails) PetDetails {
	if p.Breed == "" {
		p.Breed = DefaultBreed
	}
	if p.Age == "" {
		p.Age = DefaultAge
	}
	if p.Weight == "" {
		p.Weight = DefaultWeight
	}
	if p.Sex == "" {
		p.Sex = DefaultSex
	}
	if p.VaccinationSummary == "" {
		p.VaccinationSummary = DefaultVaccinationSummary
	}
	if p.MedicalHistory == "" {
		p.MedicalHistory = DefaultMedicalHistory
	}
	return p
}
