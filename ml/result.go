package ml

import (
	"orthorec/prosthesis"
)

// Source of a recommendation: the trained classifier pair or the
// rule-based fallback.
const (
	SourceModel = "model"
	SourceRules = "rules"
)

// ScoredMaterial is a catalog material with its ranked confidence.
// Confidence is a rounded percentage, not a calibrated probability, and
// entries within a result need not sum to 100.
type ScoredMaterial struct {
	prosthesis.Material
	Confidence int `json:"confidence"`
}

type ScoredFixation struct {
	prosthesis.FixationMethod
	Confidence int `json:"confidence"`
}

// Recommendation is the complete result structure handed to the
// presentation layer. The shape is identical for both sources; the first
// entry of each options list is the one surfaced as recommended.
type Recommendation struct {
	RecommendedMaterial ScoredMaterial      `json:"recommendedMaterial"`
	MaterialOptions     []ScoredMaterial    `json:"materialOptions"`
	RecommendedFixation ScoredFixation      `json:"recommendedFixation"`
	FixationOptions     []ScoredFixation    `json:"fixationOptions"`
	FeatureImportance   []FeatureImportance `json:"featureImportance"`
	Source              string              `json:"source"`
}
