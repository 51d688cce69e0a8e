package prosthesis

import (
	"testing"
)

func TestLoadBundledDataset(t *testing.T) {
	dataset, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dataset.Materials) == 0 || len(dataset.FixationMethods) == 0 {
		t.Fatal("expected non-empty catalogs")
	}
	if len(dataset.TrainingData) < 20 {
		t.Fatalf("expected a curated corpus, got %d examples", len(dataset.TrainingData))
	}

	// Catalog ordering and ids are a public contract.
	if dataset.Materials[0].ID != "titanium" {
		t.Fatalf("expected titanium first, got %s", dataset.Materials[0].ID)
	}
	if dataset.MaterialIndex("ceramic") < 0 {
		t.Fatal("expected ceramic in catalog")
	}
	if dataset.FixationIndex("cemented") < 0 {
		t.Fatal("expected cemented in catalog")
	}

	for _, m := range dataset.Materials {
		p := m.Properties
		for _, v := range []float64{p.Durability, p.Biocompatibility, p.Weight, p.WearResistance} {
			if v < 0 || v > 1 {
				t.Fatalf("material %s property out of range: %f", m.ID, v)
			}
		}
	}
}

func TestValidateRejectsBrokenDataset(t *testing.T) {
	dataset, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	broken := *dataset
	broken.TrainingData = append([]TrainingExample(nil), dataset.TrainingData...)
	broken.TrainingData[0].Material = "unobtainium"
	if err := broken.Validate(); err == nil {
		t.Fatal("expected error for unknown material label")
	}

	broken = *dataset
	broken.Materials = append([]Material(nil), dataset.Materials...)
	broken.Materials = append(broken.Materials, Material{ID: "titanium"})
	if err := broken.Validate(); err == nil {
		t.Fatal("expected error for duplicate material id")
	}

	broken = *dataset
	broken.FixationMethods = nil
	if err := broken.Validate(); err == nil {
		t.Fatal("expected error for empty fixation catalog")
	}
}

func TestDerivedBMI(t *testing.T) {
	profile := PatientProfile{Weight: 70, Height: 170}
	bmi := profile.DerivedBMI()
	if bmi < 24 || bmi > 25 {
		t.Fatalf("unexpected BMI: %f", bmi)
	}

	profile = PatientProfile{Weight: 70, Height: 170, BMI: 31}
	if profile.DerivedBMI() != 31 {
		t.Fatal("supplied BMI should win over derivation")
	}

	profile = PatientProfile{Weight: 70}
	if profile.DerivedBMI() != 0 {
		t.Fatal("expected 0 when height missing")
	}
}
