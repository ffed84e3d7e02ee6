// Package ai wraps the hosted generative model that produces structured
// dermatology triage reports and translates them. The model call is a black
// box: it is attempted once per user action, never retried internally, and
// malformed output is surfaced as an error to the caller.
package ai

import (
	"errors"
	"fmt"
)

// Likelihood grades how probable a detected condition is.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "High"
	LikelihoodMedium Likelihood = "Medium"
	LikelihoodLow    Likelihood = "Low"
)

var validLikelihoods = map[Likelihood]bool{
	LikelihoodHigh: true, LikelihoodMedium: true, LikelihoodLow: true,
}

// ErrMalformedOutput is returned when the model responds with output that
// does not satisfy the report schema.
var ErrMalformedOutput = errors.New("model returned malformed output")

// Condition is a single potential diagnosis in a generated report.
type Condition struct {
	Name        string     `json:"condition"`
	Likelihood  Likelihood `json:"likelihood"`
	Confidence  float64    `json:"confidence"`
	Description string     `json:"description"`
}

// StructuredReport is the fixed-shape output of one generation call. It is
// produced once per report and never mutated afterwards.
type StructuredReport struct {
	Conditions            []Condition `json:"conditions"`
	Report                string      `json:"report"`
	HomeRemedies          string      `json:"home_remedies"`
	MedicalRecommendation string      `json:"medical_recommendation"`
	ConsultationSuggested bool        `json:"consultation_suggested"`
}

// TranslatedCondition carries only the prose fields of a condition; the
// likelihood grade and confidence score are not translated.
type TranslatedCondition struct {
	Name        string `json:"condition"`
	Description string `json:"description"`
}

// TranslatedReport is a StructuredReport with all free-text fields rendered
// in the target language.
type TranslatedReport struct {
	Language              string                `json:"language"`
	Conditions            []TranslatedCondition `json:"conditions"`
	Report                string                `json:"report"`
	HomeRemedies          string                `json:"home_remedies"`
	MedicalRecommendation string                `json:"medical_recommendation"`
}

// Validate checks that the report satisfies the output schema contract.
func (r *StructuredReport) Validate() error {
	if len(r.Conditions) == 0 {
		return fmt.Errorf("%w: no conditions", ErrMalformedOutput)
	}
	for i, c := range r.Conditions {
		if c.Name == "" {
			return fmt.Errorf("%w: condition %d has no name", ErrMalformedOutput, i)
		}
		if !validLikelihoods[c.Likelihood] {
			return fmt.Errorf("%w: condition %d has likelihood %q", ErrMalformedOutput, i, c.Likelihood)
		}
		if c.Confidence < 0 || c.Confidence > 1 {
			return fmt.Errorf("%w: condition %d has confidence %v outside [0,1]", ErrMalformedOutput, i, c.Confidence)
		}
	}
	if r.Report == "" {
		return fmt.Errorf("%w: empty report narrative", ErrMalformedOutput)
	}
	return nil
}
