package ml

import (
	"errors"
	"math"
	"sort"

	"orthorec/prosthesis"
)

// FallbackScorer is the deterministic rule-based safety net used when
// the trained classifiers are unavailable. It has no learned state: each
// catalog item accumulates weighted property contributions gated by
// profile conditions, and confidences are scores normalized against the
// catalog total.
type FallbackScorer struct {
	dataset *prosthesis.Dataset
}

func NewFallbackScorer(dataset *prosthesis.Dataset) *FallbackScorer {
	return &FallbackScorer{dataset: dataset}
}

// Predict scores both catalogs and assembles a complete recommendation
// with the static importance table. Only catalog-integrity bugs can make
// this fail.
func (s *FallbackScorer) Predict(profile prosthesis.PatientProfile) (*Recommendation, error) {
	if s.dataset == nil || len(s.dataset.Materials) == 0 || len(s.dataset.FixationMethods) == 0 {
		return nil, errors.New("fallback scorer has no catalogs")
	}

	materialScores := make([]float64, len(s.dataset.Materials))
	for i, m := range s.dataset.Materials {
		materialScores[i] = materialScore(profile, m)
	}
	fixationScores := make([]float64, len(s.dataset.FixationMethods))
	for i, f := range s.dataset.FixationMethods {
		fixationScores[i] = fixationScore(profile, f)
	}

	materials := rankMaterials(s.dataset.Materials, materialScores)
	fixations := rankFixations(s.dataset.FixationMethods, fixationScores)

	return &Recommendation{
		RecommendedMaterial: materials[0],
		MaterialOptions:     materials,
		RecommendedFixation: fixations[0],
		FixationOptions:     fixations,
		FeatureImportance:   s.Importance(profile),
		Source:              SourceRules,
	}, nil
}

// materialScore is the weighted additive rule set for one material.
// The metal-allergy rule is safety-relevant and must never be skipped:
// a strong flat penalty on metal materials and a strong bonus on the
// ceramic alternative.
func materialScore(profile prosthesis.PatientProfile, m prosthesis.Material) float64 {
	props := m.Properties
	score := 0.0

	// Age bracket: younger patients weight durability harder.
	switch {
	case profile.Age < 50:
		score += props.Durability * 1.5
	case profile.Age < 70:
		score += props.Durability * 1.2
	default:
		score += props.Durability * 1.0
	}

	// BMI bracket.
	switch bmi := profile.DerivedBMI(); {
	case bmi > 30:
		score += props.Durability * 1.5
	case bmi > 25:
		score += props.Durability * 1.2
	default:
		score += props.Durability * 1.0
	}

	// Activity bracket.
	switch {
	case profile.ActivityLevel > 7:
		score += props.Durability * 1.4
	case profile.ActivityLevel > 4:
		score += props.Durability * 1.2
	default:
		score += props.Durability * 1.0
	}

	if profile.BoneQuality == prosthesis.BonePoor {
		score += props.Biocompatibility * 1.3
	} else {
		score += props.Biocompatibility * 1.0
	}

	if profile.Conditions.Osteoporosis {
		score += props.Biocompatibility * 1.8
		if m.ID == "ceramic" || m.ID == "titanium" {
			score += 2.0
		}
	}
	if profile.Conditions.Arthritis {
		score += props.WearResistance * 1.3
	}
	if profile.Conditions.Diabetes {
		score += props.Biocompatibility * 1.4
	}
	if profile.Conditions.HeartDisease && m.ID == "titanium" {
		score += 1.5
	}
	if profile.Conditions.Immunodeficiency {
		score += props.Biocompatibility * 1.6
		if m.ID == "ceramic" {
			score += 1.8
		}
	}

	if profile.Medications.Anticoagulants {
		score += 0.5
	}
	if profile.Medications.Immunosuppressants {
		score += props.Biocompatibility * 1.5
		if m.ID == "ceramic" {
			score += 1.5
		}
	}
	if profile.Medications.Corticosteroids {
		score += props.Biocompatibility * 1.3
	}

	switch profile.SmokingStatus {
	case prosthesis.CurrentSmoker:
		score += props.Biocompatibility * 1.4
	case prosthesis.FormerSmoker:
		score += props.Biocompatibility * 1.1
	}

	// Hard safety rule.
	if profile.Allergies.Metal {
		if m.Metal {
			score -= 10.0
		}
		if m.ID == "ceramic" {
			score += 5.0
		}
	}

	return score
}

// fixationScore is the weighted additive rule set for one fixation
// method.
func fixationScore(profile prosthesis.PatientProfile, f prosthesis.FixationMethod) float64 {
	props := f.Properties
	score := 0.0

	switch {
	case profile.Age < 50:
		score += props.RevisionEase * 1.3
	case profile.Age < 70:
		score += props.InitialStability * 1.2
	default:
		score += props.InitialStability * 1.4
	}

	if profile.BoneQuality == prosthesis.BonePoor {
		score += props.InitialStability * 1.5
	} else {
		score += props.InitialStability * 1.0
	}

	if profile.PreviousSurgery {
		score += props.RevisionEase * 1.4
	} else {
		score += props.RevisionEase * 1.0
	}

	if profile.Conditions.Osteoporosis {
		switch f.ID {
		case "cemented":
			score += 3.0
		case "hybrid":
			score += 1.5
		}
	}
	if profile.Conditions.Arthritis {
		score += 0.2
	}
	if profile.Conditions.Diabetes && f.ID == "cemented" {
		score += 1.8
	}
	if profile.Conditions.HeartDisease && f.ID == "cemented" {
		score += 1.5
	}
	if profile.Conditions.Immunodeficiency {
		switch f.ID {
		case "cemented":
			score += 2.0
		case "hybrid":
			score += 1.0
		}
	}

	if profile.Medications.Anticoagulants && f.ID == "cemented" {
		score += 1.5
	}
	if profile.Medications.Immunosuppressants && f.ID == "cemented" {
		score += 1.8
	}
	if profile.Medications.Corticosteroids && f.ID == "cemented" {
		score += 2.0
	}

	if profile.SmokingStatus == prosthesis.CurrentSmoker {
		switch f.ID {
		case "cemented":
			score += 1.5
		case "cementless":
			score -= 1.0
		}
	}

	if profile.DerivedBMI() > 30 {
		switch f.ID {
		case "cemented":
			score += 1.5
		case "hybrid":
			score += 0.8
		}
	}

	return score
}

// rankMaterials orders the catalog by raw score (descending, ties keep
// catalog order) and converts scores to percentage confidences against
// the catalog total. Negative scores are not clamped, so a heavily
// penalized item can surface a negative confidence; ordering is what
// callers may rely on, not the percentage arithmetic.
func rankMaterials(catalog []prosthesis.Material, scores []float64) []ScoredMaterial {
	order := sortedIndices(scores)
	total := 0.0
	for _, s := range scores {
		total += s
	}

	ranked := make([]ScoredMaterial, len(order))
	for rank, idx := range order {
		ranked[rank] = ScoredMaterial{
			Material:   catalog[idx],
			Confidence: confidence(scores[idx], total),
		}
	}
	return ranked
}

func rankFixations(catalog []prosthesis.FixationMethod, scores []float64) []ScoredFixation {
	order := sortedIndices(scores)
	total := 0.0
	for _, s := range scores {
		total += s
	}

	ranked := make([]ScoredFixation, len(order))
	for rank, idx := range order {
		ranked[rank] = ScoredFixation{
			FixationMethod: catalog[idx],
			Confidence:     confidence(scores[idx], total),
		}
	}
	return ranked
}

func sortedIndices(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	return order
}

func confidence(score, total float64) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(score / total * 100))
}

// staticImportance is the fixed table used on the fallback path.
var staticImportance = []FeatureImportance{
	{Feature: "Age", Importance: 25},
	{Feature: "Bone Quality", Importance: 22},
	{Feature: "Activity Level", Importance: 18},
	{Feature: "BMI", Importance: 15},
	{Feature: "Previous Surgery", Importance: 12},
	{Feature: "Osteoporosis", Importance: 20},
	{Feature: "Metal Allergy", Importance: 30},
	{Feature: "Smoking Status", Importance: 15},
	{Feature: "Diabetes", Importance: 12},
	{Feature: "Corticosteroids", Importance: 10},
	{Feature: "Immunodeficiency", Importance: 8},
}

// Importance returns the static table filtered to conditions actually
// present in the profile; the five basic parameters are always kept.
func (s *FallbackScorer) Importance(profile prosthesis.PatientProfile) []FeatureImportance {
	result := make([]FeatureImportance, 0, len(staticImportance))
	for _, entry := range staticImportance {
		switch entry.Feature {
		case "Osteoporosis":
			if !profile.Conditions.Osteoporosis {
				continue
			}
		case "Diabetes":
			if !profile.Conditions.Diabetes {
				continue
			}
		case "Immunodeficiency":
			if !profile.Conditions.Immunodeficiency {
				continue
			}
		case "Corticosteroids":
			if !profile.Medications.Corticosteroids {
				continue
			}
		case "Metal Allergy":
			if !profile.Allergies.Metal {
				continue
			}
		case "Smoking Status":
			if profile.SmokingStatus == prosthesis.NonSmoker || profile.SmokingStatus == "" {
				continue
			}
		}
		result = append(result, entry)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Importance > result[j].Importance
	})
	return result
}
