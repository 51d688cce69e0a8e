package ml

import "errors"

// errNotReady redirects Recommend to the fallback path when prediction
// is attempted before training completed.
var errNotReady = errors.New("classifier pair not ready")

// Classifier is a trained multi-class model: Predict returns a
// probability distribution over the catalog the model was fitted for.
type Classifier interface {
	Predict(features []float64) ([]float64, error)
}
