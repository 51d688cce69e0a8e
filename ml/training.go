package ml

import (
	"errors"
	"fmt"
	"math/rand"

	"orthorec/prosthesis"
)

// TrainingSet holds the encoded corpus with one-hot label matrices for
// both catalogs.
type TrainingSet struct {
	Inputs         [][]float64
	MaterialLabels [][]float64
	FixationLabels [][]float64
}

// BuildTrainingSet encodes every corpus example and one-hot encodes its
// labels against the catalog orderings. An unresolvable label id fails
// the build; the corpus is validated data, not user input.
func BuildTrainingSet(dataset *prosthesis.Dataset) (*TrainingSet, error) {
	if dataset == nil || len(dataset.TrainingData) == 0 {
		return nil, errors.New("training corpus is empty")
	}

	set := &TrainingSet{
		Inputs:         make([][]float64, 0, len(dataset.TrainingData)),
		MaterialLabels: make([][]float64, 0, len(dataset.TrainingData)),
		FixationLabels: make([][]float64, 0, len(dataset.TrainingData)),
	}

	for i, example := range dataset.TrainingData {
		materialIdx := dataset.MaterialIndex(example.Material)
		if materialIdx < 0 {
			return nil, fmt.Errorf("example %d: unknown material %q", i, example.Material)
		}
		fixationIdx := dataset.FixationIndex(example.Fixation)
		if fixationIdx < 0 {
			return nil, fmt.Errorf("example %d: unknown fixation %q", i, example.Fixation)
		}

		set.Inputs = append(set.Inputs, Encode(example.Profile))
		set.MaterialLabels = append(set.MaterialLabels, oneHot(len(dataset.Materials), materialIdx))
		set.FixationLabels = append(set.FixationLabels, oneHot(len(dataset.FixationMethods), fixationIdx))
	}

	return set, nil
}

func oneHot(size, index int) []float64 {
	label := make([]float64, size)
	label[index] = 1.0
	return label
}

// TrainModels fits the material and fixation classifiers synchronously
// against the full corpus. Fast enough to run at process startup.
func TrainModels(dataset *prosthesis.Dataset, config NetworkConfig) (material, fixation *Network, err error) {
	set, err := BuildTrainingSet(dataset)
	if err != nil {
		return nil, nil, err
	}

	rng := rand.New(rand.NewSource(config.Seed))

	material, err = NewNetwork(FeatureCount, len(dataset.Materials), config, rng)
	if err != nil {
		return nil, nil, err
	}
	if err := material.Train(set.Inputs, set.MaterialLabels, config, rng); err != nil {
		return nil, nil, fmt.Errorf("train material model: %w", err)
	}

	fixation, err = NewNetwork(FeatureCount, len(dataset.FixationMethods), config, rng)
	if err != nil {
		return nil, nil, err
	}
	if err := fixation.Train(set.Inputs, set.FixationLabels, config, rng); err != nil {
		return nil, nil, fmt.Errorf("train fixation model: %w", err)
	}

	return material, fixation, nil
}
