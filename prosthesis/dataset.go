package prosthesis

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

//go:embed dataset.json
var embeddedDataset []byte

// Load parses the bundled reference dataset. Catalog ordering in the
// file is authoritative: downstream code maps classifier output indices
// to catalog positions, so entries must never be reordered between
// releases.
func Load() (*Dataset, error) {
	return parseDataset(embeddedDataset)
}

// LoadFile reads a dataset from disk, for deployments that override the
// bundled catalogs and corpus.
func LoadFile(path string) (*Dataset, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseDataset(payload)
}

func parseDataset(payload []byte) (*Dataset, error) {
	var dataset Dataset
	if err := json.Unmarshal(payload, &dataset); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	if err := dataset.Validate(); err != nil {
		return nil, err
	}
	return &dataset, nil
}

// Validate checks catalog and corpus integrity. A failure here is a
// data bug, not a runtime condition to recover from.
func (d *Dataset) Validate() error {
	if len(d.Materials) == 0 {
		return errors.New("dataset has no materials")
	}
	if len(d.FixationMethods) == 0 {
		return errors.New("dataset has no fixation methods")
	}
	if len(d.TrainingData) == 0 {
		return errors.New("dataset has no training examples")
	}

	seen := make(map[string]bool)
	for _, m := range d.Materials {
		if m.ID == "" {
			return errors.New("material with empty id")
		}
		if seen[m.ID] {
			return fmt.Errorf("duplicate material id %q", m.ID)
		}
		seen[m.ID] = true
	}
	seen = make(map[string]bool)
	for _, f := range d.FixationMethods {
		if f.ID == "" {
			return errors.New("fixation method with empty id")
		}
		if seen[f.ID] {
			return fmt.Errorf("duplicate fixation id %q", f.ID)
		}
		seen[f.ID] = true
	}

	for i, example := range d.TrainingData {
		if d.MaterialIndex(example.Material) < 0 {
			return fmt.Errorf("training example %d: unknown material %q", i, example.Material)
		}
		if d.FixationIndex(example.Fixation) < 0 {
			return fmt.Errorf("training example %d: unknown fixation %q", i, example.Fixation)
		}
	}
	return nil
}
