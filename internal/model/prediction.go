package model

import "strings"

// PredictionStatus tells a real classification apart from the fallback
type PredictionStatus string

const (
	PredictionClassified  PredictionStatus = "classified"  // Returned by the classification service
	PredictionUnavailable PredictionStatus = "unavailable" // Service disabled, failed, or returned nothing
)

// Prediction is the top-ranked category for a narrative
type Prediction struct {
	Category   Category         `json:"category"`
	Confidence float64          `json:"confidence"` // In [0,1]
	Status     PredictionStatus `json:"status"`
}

// UnavailablePrediction is the fallback used when no classification could
// be obtained. It scores like CategoryOther.
func UnavailablePrediction() Prediction {
	return Prediction{
		Category:   CategoryOther,
		Confidence: 0,
		Status:     PredictionUnavailable,
	}
}

// Available reports whether the prediction came from the service
func (p Prediction) Available() bool {
	return p.Status == PredictionClassified
}

// EntityType classifies a recognized entity
type EntityType string

const (
	EntityOrganization  EntityType = "organization"
	EntityPerson        EntityType = "person"
	EntityLocation      EntityType = "location"
	EntityMiscellaneous EntityType = "miscellaneous"
)

// EntityTypeFromTag maps NER tags (ORG, PER, LOC, MISC, with or without
// B-/I- prefixes) to an EntityType
func EntityTypeFromTag(tag string) EntityType {
	tag = strings.ToUpper(strings.TrimSpace(tag))
	tag = strings.TrimPrefix(strings.TrimPrefix(tag, "B-"), "I-")

	switch tag {
	case "ORG", "ORGANIZATION":
		return EntityOrganization
	case "PER", "PERSON":
		return EntityPerson
	case "LOC", "LOCATION":
		return EntityLocation
	default:
		return EntityMiscellaneous
	}
}

// Entity is a named entity span returned by the recognition service
type Entity struct {
	Text       string     `json:"text"`
	Type       EntityType `json:"type"`
	Confidence float64    `json:"confidence"`
}
