package ml

import (
	"math"
	"sort"

	"orthorec/prosthesis"
)

// FeatureImportance is one entry of the ranked feature-influence list.
type FeatureImportance struct {
	Feature    string `json:"feature"`
	Importance int    `json:"importance"`
}

// keyFeatureIndices is the curated subset analyzed by perturbation: the
// clinically most salient features. The rest are covered by the default
// table below so callers always see a consistent minimum set.
var keyFeatureIndices = []int{
	FeatAge, FeatWeight, FeatBMI, FeatActivity, FeatBoneQuality,
	FeatPreviousSurgery, FeatOsteoporosis, FeatArthritis, FeatDiabetes,
	FeatSmoking, FeatMetalAllergy,
}

var defaultImportance = []FeatureImportance{
	{Feature: "Height", Importance: 10},
	{Feature: "Heart Disease", Importance: 15},
	{Feature: "Immunodeficiency", Importance: 20},
	{Feature: "Anticoagulants", Importance: 18},
	{Feature: "Corticosteroids", Importance: 12},
	{Feature: "Latex Allergy", Importance: 8},
	{Feature: "Adhesives Allergy", Importance: 5},
}

// EstimateImportance ranks feature influence by local sensitivity: each
// key feature is bumped by 10% of its own value (clamped to 1.0) and the
// shift in both classifiers' output distributions is measured.
//
// This is a cheap heuristic, not an attribution method: a single
// one-sided perturbation with no normalization across feature scales.
// Treat the result as approximate ordering, never as a verified finding.
func EstimateImportance(profile prosthesis.PatientProfile, material, fixation Classifier) ([]FeatureImportance, error) {
	base := Encode(profile)

	baseMaterial, err := material.Predict(base)
	if err != nil {
		return nil, err
	}
	baseFixation, err := fixation.Predict(base)
	if err != nil {
		return nil, err
	}

	importance := make([]FeatureImportance, 0, len(keyFeatureIndices)+len(defaultImportance))
	for _, idx := range keyFeatureIndices {
		perturbed := append([]float64(nil), base...)
		perturbed[idx] = math.Min(1.0, base[idx]+base[idx]*0.1)

		perturbedMaterial, err := material.Predict(perturbed)
		if err != nil {
			return nil, err
		}
		perturbedFixation, err := fixation.Predict(perturbed)
		if err != nil {
			return nil, err
		}

		impact := (distributionShift(baseMaterial, perturbedMaterial) +
			distributionShift(baseFixation, perturbedFixation)) / 2

		importance = append(importance, FeatureImportance{
			Feature:    featureNames[idx],
			Importance: int(math.Round(impact * 100)),
		})
	}

	// Backfill non-perturbed features with fixed defaults so the list
	// always covers the same named set.
	for _, def := range defaultImportance {
		if !containsFeature(importance, def.Feature) {
			importance = append(importance, def)
		}
	}

	// Descending by importance; ties keep definition order.
	sort.SliceStable(importance, func(i, j int) bool {
		return importance[i].Importance > importance[j].Importance
	})
	return importance, nil
}

// distributionShift is the sum of absolute per-class probability
// differences between two output distributions.
func distributionShift(before, after []float64) float64 {
	shift := 0.0
	for i := range before {
		shift += math.Abs(after[i] - before[i])
	}
	return shift
}

func containsFeature(entries []FeatureImportance, name string) bool {
	for _, e := range entries {
		if e.Feature == name {
			return true
		}
	}
	return false
}
