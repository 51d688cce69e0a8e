package ml

import (
	"testing"

	"orthorec/prosthesis"
)

func TestEncodeLengthAndRange(t *testing.T) {
	profiles := []prosthesis.PatientProfile{
		{}, // fully empty profile must still encode
		{Age: 65, Weight: 70, Height: 170, ActivityLevel: 5, BoneQuality: prosthesis.BoneModerate},
		{Age: 300, Weight: -10, Height: 500, BMI: 90, ActivityLevel: 99}, // out of range, clamped
		{
			Age: 45, Weight: 80, ActivityLevel: 8,
			BoneQuality:     prosthesis.BoneGood,
			PreviousSurgery: true,
			Conditions:      prosthesis.MedicalConditions{Osteoporosis: true, Diabetes: true},
			Medications:     prosthesis.Medications{Anticoagulants: true},
			SmokingStatus:   prosthesis.CurrentSmoker,
			Allergies:       prosthesis.Allergies{Metal: true},
		},
	}

	for i, profile := range profiles {
		vector := Encode(profile)
		if len(vector) != FeatureCount {
			t.Fatalf("profile %d: expected %d features, got %d", i, FeatureCount, len(vector))
		}
		for j, value := range vector {
			if value < 0 || value > 1 {
				t.Fatalf("profile %d feature %d out of range: %f", i, j, value)
			}
		}
	}
}

func TestEncodeDefaults(t *testing.T) {
	vector := Encode(prosthesis.PatientProfile{Age: 60, Weight: 70, ActivityLevel: 5})

	if vector[FeatHeight] != 0.5 {
		t.Fatalf("missing height should default to 0.5, got %f", vector[FeatHeight])
	}
	if vector[FeatBMI] != 0.5 {
		t.Fatalf("underivable BMI should default to 0.5, got %f", vector[FeatBMI])
	}
	if vector[FeatBoneQuality] != 0.5 {
		t.Fatalf("unknown bone quality should default to 0.5, got %f", vector[FeatBoneQuality])
	}
	if vector[FeatSmoking] != 0.0 {
		t.Fatalf("unknown smoking status should default to 0.0, got %f", vector[FeatSmoking])
	}
	for _, idx := range []int{FeatOsteoporosis, FeatAnticoagulants, FeatMetalAllergy} {
		if vector[idx] != 0.0 {
			t.Fatalf("absent flag group should encode to 0, feature %d is %f", idx, vector[idx])
		}
	}
}

func TestEncodeEnumSentinels(t *testing.T) {
	good := Encode(prosthesis.PatientProfile{BoneQuality: prosthesis.BoneGood})
	poor := Encode(prosthesis.PatientProfile{BoneQuality: prosthesis.BonePoor})
	if good[FeatBoneQuality] != 1.0 || poor[FeatBoneQuality] != 0.0 {
		t.Fatalf("bone quality sentinels wrong: good=%f poor=%f",
			good[FeatBoneQuality], poor[FeatBoneQuality])
	}

	former := Encode(prosthesis.PatientProfile{SmokingStatus: prosthesis.FormerSmoker})
	current := Encode(prosthesis.PatientProfile{SmokingStatus: prosthesis.CurrentSmoker})
	if former[FeatSmoking] != 0.5 || current[FeatSmoking] != 1.0 {
		t.Fatalf("smoking sentinels wrong: former=%f current=%f",
			former[FeatSmoking], current[FeatSmoking])
	}
}

func TestEncodeClamping(t *testing.T) {
	vector := Encode(prosthesis.PatientProfile{Age: 150, Weight: 20, BMI: 10, ActivityLevel: 5})
	if vector[FeatAge] != 1.0 {
		t.Fatalf("age above range should clamp to 1, got %f", vector[FeatAge])
	}
	if vector[FeatWeight] != 0.0 {
		t.Fatalf("weight below range should clamp to 0, got %f", vector[FeatWeight])
	}
	if vector[FeatBMI] != 0.0 {
		t.Fatalf("BMI below range should clamp to 0, got %f", vector[FeatBMI])
	}
}

func TestFeatureNamesMatchCount(t *testing.T) {
	names := FeatureNames()
	if len(names) != FeatureCount {
		t.Fatalf("expected %d names, got %d", FeatureCount, len(names))
	}
	if names[FeatMetalAllergy] != "Metal Allergy" {
		t.Fatalf("index/name mapping broken: %s", names[FeatMetalAllergy])
	}
}
