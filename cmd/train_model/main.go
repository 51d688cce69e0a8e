package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"orthorec/ml"
	"orthorec/prosthesis"
)

// Offline trainer: fits the classifier pair against the dataset and
// writes the weights to disk so a server can skip startup training.
func main() {
	datasetPath := flag.String("dataset", "", "dataset JSON path (empty = bundled)")
	outDir := flag.String("out", "models", "output directory for model files")
	seed := flag.Int64("seed", 42, "training seed")
	epochs := flag.Int("epochs", 100, "training epochs")
	flag.Parse()

	var dataset *prosthesis.Dataset
	var err error
	if *datasetPath != "" {
		dataset, err = prosthesis.LoadFile(*datasetPath)
	} else {
		dataset, err = prosthesis.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load dataset: %v\n", err)
		os.Exit(1)
	}

	config := ml.DefaultNetworkConfig()
	config.Seed = *seed
	config.Epochs = *epochs

	material, fixation, err := ml.TrainModels(dataset, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "training failed: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output dir: %v\n", err)
		os.Exit(1)
	}
	materialPath := filepath.Join(*outDir, "material.json")
	fixationPath := filepath.Join(*outDir, "fixation.json")
	if err := material.Save(materialPath); err != nil {
		fmt.Fprintf(os.Stderr, "save material model: %v\n", err)
		os.Exit(1)
	}
	if err := fixation.Save(fixationPath); err != nil {
		fmt.Fprintf(os.Stderr, "save fixation model: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("trained on %d examples\n", len(dataset.TrainingData))
	fmt.Printf("material model: %s\n", materialPath)
	fmt.Printf("fixation model: %s\n", fixationPath)
}
