package ml

import "errors"

var (
	ErrNotTrained       = errors.New("model not trained")
	ErrUnsupportedModel = errors.New("unsupported model type")
)

// Classifier is the decision function of a binary model: 1 is positive, 0 is negative.
type Classifier interface {
	Predict(features []float64) (int, error)
}

// ProbabilityEstimator is implemented by models that can report class
// probabilities. The returned slice is indexed by class label.
type ProbabilityEstimator interface {
	PredictProba(features []float64) ([]float64, error)
}

// MLModel is a classifier that can be persisted as an artifact.
type MLModel interface {
	Classifier
	Save(path string) error
	Load(path string) error
}
