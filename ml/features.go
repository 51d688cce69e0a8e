package ml

import (
	"orthorec/prosthesis"
)

// FeatureCount is the fixed encoder output length. The positional
// meaning of each index is stable; both classifiers and the sensitivity
// estimator depend on it.
const FeatureCount = 20

// Feature vector indices.
const (
	FeatAge = iota
	FeatWeight
	FeatHeight
	FeatBMI
	FeatActivity
	FeatBoneQuality
	FeatPreviousSurgery
	FeatOsteoporosis
	FeatArthritis
	FeatDiabetes
	FeatHeartDisease
	FeatImmunodeficiency
	FeatAnticoagulants
	FeatImmunosuppressants
	FeatCorticosteroids
	FeatNSAIDs
	FeatSmoking
	FeatMetalAllergy
	FeatLatexAllergy
	FeatAdhesivesAllergy
)

var featureNames = []string{
	"Age", "Weight", "Height", "BMI", "Activity Level", "Bone Quality", "Previous Surgery",
	"Osteoporosis", "Arthritis", "Diabetes", "Heart Disease", "Immunodeficiency",
	"Anticoagulants", "Immunosuppressants", "Corticosteroids", "NSAIDs",
	"Smoking Status", "Metal Allergy", "Latex Allergy", "Adhesives Allergy",
}

func FeatureNames() []string {
	return append([]string(nil), featureNames...)
}

// Fixed clinical ranges for linear rescaling.
const (
	ageMin, ageMax           = 20.0, 100.0
	weightMin, weightMax     = 40.0, 150.0
	heightMin, heightMax     = 140.0, 210.0
	bmiMin, bmiMax           = 15.0, 40.0
	activityMin, activityMax = 1.0, 10.0
)

// Encode maps a patient profile to the fixed-length normalized feature
// vector. It is total over all inputs: missing optional fields get
// documented defaults (height/BMI midpoint 0.5, unknown bone quality
// 0.5, absent flag groups all false) and out-of-range values are
// clamped, never rejected.
func Encode(profile prosthesis.PatientProfile) []float64 {
	v := make([]float64, FeatureCount)

	v[FeatAge] = rescale(profile.Age, ageMin, ageMax)
	v[FeatWeight] = rescale(profile.Weight, weightMin, weightMax)

	if profile.Height > 0 {
		v[FeatHeight] = rescale(profile.Height, heightMin, heightMax)
	} else {
		v[FeatHeight] = 0.5
	}

	if bmi := profile.DerivedBMI(); bmi > 0 {
		v[FeatBMI] = rescale(bmi, bmiMin, bmiMax)
	} else {
		v[FeatBMI] = 0.5
	}

	v[FeatActivity] = rescale(profile.ActivityLevel, activityMin, activityMax)

	switch profile.BoneQuality {
	case prosthesis.BoneGood:
		v[FeatBoneQuality] = 1.0
	case prosthesis.BonePoor:
		v[FeatBoneQuality] = 0.0
	default:
		v[FeatBoneQuality] = 0.5
	}

	v[FeatPreviousSurgery] = boolFeature(profile.PreviousSurgery)

	v[FeatOsteoporosis] = boolFeature(profile.Conditions.Osteoporosis)
	v[FeatArthritis] = boolFeature(profile.Conditions.Arthritis)
	v[FeatDiabetes] = boolFeature(profile.Conditions.Diabetes)
	v[FeatHeartDisease] = boolFeature(profile.Conditions.HeartDisease)
	v[FeatImmunodeficiency] = boolFeature(profile.Conditions.Immunodeficiency)

	v[FeatAnticoagulants] = boolFeature(profile.Medications.Anticoagulants)
	v[FeatImmunosuppressants] = boolFeature(profile.Medications.Immunosuppressants)
	v[FeatCorticosteroids] = boolFeature(profile.Medications.Corticosteroids)
	v[FeatNSAIDs] = boolFeature(profile.Medications.NSAIDs)

	switch profile.SmokingStatus {
	case prosthesis.CurrentSmoker:
		v[FeatSmoking] = 1.0
	case prosthesis.FormerSmoker:
		v[FeatSmoking] = 0.5
	default:
		v[FeatSmoking] = 0.0
	}

	v[FeatMetalAllergy] = boolFeature(profile.Allergies.Metal)
	v[FeatLatexAllergy] = boolFeature(profile.Allergies.Latex)
	v[FeatAdhesivesAllergy] = boolFeature(profile.Allergies.Adhesives)

	return v
}

func rescale(value, min, max float64) float64 {
	return clamp01((value - min) / (max - min))
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

func boolFeature(flag bool) float64 {
	if flag {
		return 1.0
	}
	return 0.0
}
