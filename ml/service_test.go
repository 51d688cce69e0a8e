package ml

import (
	"errors"
	"sync"
	"testing"

	"orthorec/prosthesis"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dataset := loadDataset(t)
	config := DefaultServiceConfig()
	config.Network.Epochs = 40
	service, err := NewService(dataset, config, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return service
}

func TestInitializeIdempotent(t *testing.T) {
	service := newTestService(t)

	if err := service.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !service.Ready() {
		t.Fatal("expected service ready after initialize")
	}

	profile := prosthesis.PatientProfile{
		Age: 60, Weight: 75, Height: 172, ActivityLevel: 5,
		BoneQuality: prosthesis.BoneModerate,
	}
	first, err := service.Recommend(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A second initialize must not retrain or change outputs.
	if err := service.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := service.Recommend(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := range first.MaterialOptions {
		if first.MaterialOptions[i].ID != second.MaterialOptions[i].ID ||
			first.MaterialOptions[i].Confidence != second.MaterialOptions[i].Confidence {
			t.Fatal("initialize is not idempotent")
		}
	}
}

func TestConcurrentInitialize(t *testing.T) {
	service := newTestService(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := service.Initialize(); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if !service.Ready() {
		t.Fatal("expected service ready")
	}
}

func TestRecommendDeterministic(t *testing.T) {
	service := newTestService(t)
	if err := service.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	profile := prosthesis.PatientProfile{
		Age: 45, Weight: 82, Height: 178, ActivityLevel: 8,
		BoneQuality: prosthesis.BoneGood,
	}
	first, err := service.Recommend(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := service.Recommend(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first != second {
		// The second call should be served from the cache, but even a
		// recompute must match value for value.
		for i := range first.MaterialOptions {
			if first.MaterialOptions[i].Confidence != second.MaterialOptions[i].Confidence {
				t.Fatal("predictions are not deterministic")
			}
		}
	}
}

func TestRecommendModelPathShape(t *testing.T) {
	service := newTestService(t)
	if err := service.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dataset := service.Dataset()

	result, err := service.Recommend(prosthesis.PatientProfile{
		Age: 30, Weight: 70, Height: 180, ActivityLevel: 9,
		BoneQuality: prosthesis.BoneGood,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Source != SourceModel {
		t.Fatalf("expected model source, got %s", result.Source)
	}
	if len(result.MaterialOptions) != len(dataset.Materials) {
		t.Fatalf("expected one option per material, got %d", len(result.MaterialOptions))
	}
	if len(result.FixationOptions) != len(dataset.FixationMethods) {
		t.Fatalf("expected one option per fixation, got %d", len(result.FixationOptions))
	}
	for i := 1; i < len(result.MaterialOptions); i++ {
		if result.MaterialOptions[i].Confidence > result.MaterialOptions[i-1].Confidence {
			t.Fatal("material options not sorted descending")
		}
	}
	if result.RecommendedMaterial.ID != result.MaterialOptions[0].ID {
		t.Fatal("recommended material must be the top ranked option")
	}
	if len(result.FeatureImportance) == 0 {
		t.Fatal("expected feature importance entries")
	}
}

func TestRecommendFallsBackBeforeInitialize(t *testing.T) {
	service := newTestService(t)

	result, err := service.Recommend(prosthesis.PatientProfile{
		Age: 60, Weight: 70, ActivityLevel: 4,
		BoneQuality: prosthesis.BoneModerate,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != SourceRules {
		t.Fatalf("expected rules source before initialize, got %s", result.Source)
	}
}

func TestRecommendFallsBackOnModelFailure(t *testing.T) {
	service := newTestService(t)
	broken := &stubClassifier{err: errors.New("model exploded")}
	service.SetClassifiers(broken, broken)

	profile := prosthesis.PatientProfile{
		Age: 55, Weight: 85, Height: 175, ActivityLevel: 6,
		BoneQuality: prosthesis.BoneModerate,
		Allergies:   prosthesis.Allergies{Metal: true},
	}
	result, err := service.Recommend(profile)
	if err != nil {
		t.Fatalf("fallback must absorb model failures: %v", err)
	}
	if result.Source != SourceRules {
		t.Fatalf("expected rules source, got %s", result.Source)
	}

	// Shape equivalence with the model path.
	dataset := service.Dataset()
	if len(result.MaterialOptions) != len(dataset.Materials) ||
		len(result.FixationOptions) != len(dataset.FixationMethods) {
		t.Fatal("fallback result missing catalog coverage")
	}
	if len(result.FeatureImportance) == 0 {
		t.Fatal("fallback result missing feature importance")
	}
	if result.RecommendedMaterial.Metal {
		t.Fatal("fallback ignored the metal allergy rule")
	}
}

func TestRecommendFallsBackOnWrongWidthClassifier(t *testing.T) {
	service := newTestService(t)
	// A classifier pair narrower than the catalogs, as when weights
	// trained against an older dataset are loaded over a larger one.
	narrow := &stubClassifier{probs: []float64{0.6, 0.4}}
	service.SetClassifiers(narrow, narrow)

	result, err := service.Recommend(prosthesis.PatientProfile{
		Age: 60, Weight: 78, Height: 172, ActivityLevel: 5,
		BoneQuality: prosthesis.BoneModerate,
	})
	if err != nil {
		t.Fatalf("width mismatch must redirect to fallback, not fail: %v", err)
	}
	if result.Source != SourceRules {
		t.Fatalf("expected rules source, got %s", result.Source)
	}
	dataset := service.Dataset()
	if len(result.MaterialOptions) != len(dataset.Materials) ||
		len(result.FixationOptions) != len(dataset.FixationMethods) {
		t.Fatal("fallback result missing catalog coverage")
	}
}

func TestInitializePurgesRulesCachedResults(t *testing.T) {
	service := newTestService(t)
	profile := prosthesis.PatientProfile{
		Age: 58, Weight: 80, Height: 176, ActivityLevel: 6,
		BoneQuality: prosthesis.BoneModerate,
	}

	before, err := service.Recommend(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if before.Source != SourceRules {
		t.Fatalf("expected rules source before initialize, got %s", before.Source)
	}

	if err := service.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, err := service.Recommend(profile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if after.Source != SourceModel {
		t.Fatalf("cached rules result survived training, got source %s", after.Source)
	}
}

func TestReloadRetrains(t *testing.T) {
	service := newTestService(t)
	if err := service.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated := loadDataset(t)
	if err := service.Reload(updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !service.Ready() {
		t.Fatal("expected service ready after reload")
	}
}

func TestReloadRejectsBrokenDataset(t *testing.T) {
	service := newTestService(t)
	if err := service.Initialize(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	broken := loadDataset(t)
	broken.TrainingData[0].Material = "unobtainium"
	if err := service.Reload(broken); err == nil {
		t.Fatal("expected reload to reject a broken dataset")
	}
	if !service.Ready() {
		t.Fatal("a rejected reload must not take down the trained pair")
	}
}
