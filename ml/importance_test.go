package ml

import (
	"errors"
	"testing"

	"orthorec/prosthesis"
)

type stubClassifier struct {
	probs []float64
	err   error
}

func (s *stubClassifier) Predict(features []float64) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return append([]float64(nil), s.probs...), nil
}

func TestEstimateImportanceWithConstantModel(t *testing.T) {
	// A constant model is insensitive to every perturbation, so all
	// perturbed features score 0 and only the backfill defaults carry
	// weight.
	material := &stubClassifier{probs: []float64{0.5, 0.5}}
	fixation := &stubClassifier{probs: []float64{1.0, 0.0}}

	profile := prosthesis.PatientProfile{Age: 60, Weight: 70, ActivityLevel: 5}
	entries, err := EstimateImportance(profile, material, fixation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(entries) != len(keyFeatureIndices)+len(defaultImportance) {
		t.Fatalf("expected %d entries, got %d",
			len(keyFeatureIndices)+len(defaultImportance), len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Importance > entries[i-1].Importance {
			t.Fatalf("entries not sorted descending at %d: %v", i, entries)
		}
	}
	// Backfill defaults must always be present.
	for _, name := range []string{"Height", "Heart Disease", "Latex Allergy"} {
		if !containsFeature(entries, name) {
			t.Fatalf("expected default entry for %s", name)
		}
	}
	if entries[0].Feature != "Immunodeficiency" || entries[0].Importance != 20 {
		t.Fatalf("expected the largest default first, got %+v", entries[0])
	}
}

func TestEstimateImportanceWithTrainedModels(t *testing.T) {
	dataset := loadDataset(t)
	config := DefaultNetworkConfig()
	config.Epochs = 40
	material, fixation, err := TrainModels(dataset, config)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile := prosthesis.PatientProfile{
		Age: 65, Weight: 70, Height: 170, ActivityLevel: 5,
		BoneQuality: prosthesis.BoneModerate,
	}
	entries, err := EstimateImportance(profile, material, fixation)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected importance entries")
	}
	for _, entry := range entries {
		if entry.Importance < 0 {
			t.Fatalf("importance must be non-negative: %+v", entry)
		}
	}
}

func TestEstimateImportancePropagatesModelError(t *testing.T) {
	broken := &stubClassifier{err: errors.New("boom")}
	ok := &stubClassifier{probs: []float64{1, 0}}

	profile := prosthesis.PatientProfile{Age: 50, Weight: 80, ActivityLevel: 5}
	if _, err := EstimateImportance(profile, broken, ok); err == nil {
		t.Fatal("expected error from broken classifier")
	}
}
