package prosthesis

// BoneQuality grading used on patient intake forms.
type BoneQuality string

const (
	BoneGood     BoneQuality = "good"
	BoneModerate BoneQuality = "moderate"
	BonePoor     BoneQuality = "poor"
)

// SmokingStatus as reported by the patient.
type SmokingStatus string

const (
	NonSmoker     SmokingStatus = "non-smoker"
	FormerSmoker  SmokingStatus = "former-smoker"
	CurrentSmoker SmokingStatus = "current-smoker"
)

// MedicalConditions are the condition flags the engine cares about.
// Absent flags are treated as false.
type MedicalConditions struct {
	Osteoporosis     bool `json:"osteoporosis"`
	Arthritis        bool `json:"arthritis"`
	Diabetes         bool `json:"diabetes"`
	HeartDisease     bool `json:"heartDisease"`
	Immunodeficiency bool `json:"immunodeficiency"`
}

type Medications struct {
	Anticoagulants     bool `json:"anticoagulants"`
	Immunosuppressants bool `json:"immunosuppressants"`
	Corticosteroids    bool `json:"corticosteroids"`
	NSAIDs             bool `json:"nsaids"`
}

type Allergies struct {
	Metal     bool `json:"metal"`
	Latex     bool `json:"latex"`
	Adhesives bool `json:"adhesives"`
}

// PatientProfile is the input boundary of the recommendation engine.
// It is constructed per request by the form layer and never persisted
// by the engine itself. Height and BMI are optional; zero means absent.
type PatientProfile struct {
	Age             float64           `json:"age"`
	Weight          float64           `json:"weight"`
	Height          float64           `json:"height,omitempty"`
	BMI             float64           `json:"bmi,omitempty"`
	ActivityLevel   float64           `json:"activityLevel"`
	BoneQuality     BoneQuality       `json:"boneQuality"`
	PreviousSurgery bool              `json:"previousSurgery"`
	Conditions      MedicalConditions `json:"medicalConditions"`
	Medications     Medications       `json:"medications"`
	SmokingStatus   SmokingStatus     `json:"smokingStatus"`
	Allergies       Allergies         `json:"allergies"`
}

// DerivedBMI returns the supplied BMI, or computes it from weight and
// height when possible. Returns 0 when neither is available.
func (p PatientProfile) DerivedBMI() float64 {
	if p.BMI > 0 {
		return p.BMI
	}
	if p.Height <= 0 || p.Weight <= 0 {
		return 0
	}
	m := p.Height / 100
	return p.Weight / (m * m)
}

// MaterialProperties are normalized scores in [0,1].
type MaterialProperties struct {
	Durability       float64 `json:"durability"`
	Biocompatibility float64 `json:"biocompatibility"`
	Weight           float64 `json:"weight"`
	WearResistance   float64 `json:"wearResistance"`
}

// Material is an implant material candidate. Catalog ordering is fixed
// and doubles as the classifier output index for the material model.
type Material struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Metal      bool               `json:"metal"`
	Properties MaterialProperties `json:"properties"`
}

// FixationProperties are normalized scores in [0,1].
type FixationProperties struct {
	InitialStability  float64 `json:"initialStability"`
	LongTermStability float64 `json:"longTermStability"`
	RevisionEase      float64 `json:"revisionEase"`
}

// FixationMethod is a fixation candidate; same ordering contract as
// Material.
type FixationMethod struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Properties FixationProperties `json:"properties"`
}

// TrainingExample is one hand-curated case: a profile together with the
// material and fixation a clinician labelled for it.
type TrainingExample struct {
	Profile  PatientProfile `json:"patientProfile"`
	Material string         `json:"recommendedMaterial"`
	Fixation string         `json:"recommendedFixation"`
}

// Dataset bundles the two catalogs and the training corpus. Loaded once
// at startup and immutable thereafter.
type Dataset struct {
	Materials       []Material        `json:"materials"`
	FixationMethods []FixationMethod  `json:"fixationMethods"`
	TrainingData    []TrainingExample `json:"trainingData"`
}

// MaterialIndex returns the catalog position of id, or -1.
func (d *Dataset) MaterialIndex(id string) int {
	for i, m := range d.Materials {
		if m.ID == id {
			return i
		}
	}
	return -1
}

// FixationIndex returns the catalog position of id, or -1.
func (d *Dataset) FixationIndex(id string) int {
	for i, f := range d.FixationMethods {
		if f.ID == id {
			return i
		}
	}
	return -1
}
