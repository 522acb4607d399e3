package ml

import (
	"math"
	"path/filepath"
	"testing"
)

func TestLogisticRegressionSeparable(t *testing.T) {
	features := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	labels := []int{0, 0, 0, 1, 1, 1}

	model := &LogisticRegression{}
	if err := model.Train(features, labels, DefaultLogisticTrainOptions()); err != nil {
		t.Fatalf("train: %v", err)
	}

	if label, _ := model.Predict([]float64{1.5}); label != 0 {
		t.Fatalf("expected 0 for low value, got %d", label)
	}
	if label, _ := model.Predict([]float64{11.5}); label != 1 {
		t.Fatalf("expected 1 for high value, got %d", label)
	}

	proba, err := model.PredictProba([]float64{11.5})
	if err != nil {
		t.Fatalf("proba: %v", err)
	}
	if math.Abs(proba[0]+proba[1]-1) > 1e-9 {
		t.Fatalf("probabilities do not sum to 1: %v", proba)
	}
	if proba[1] <= 0.5 {
		t.Fatalf("expected positive probability > 0.5, got %f", proba[1])
	}
}

func TestLogisticRegressionSaveLoad(t *testing.T) {
	model := &LogisticRegression{Weights: []float64{2}, Intercept: -1}
	path := filepath.Join(t.TempDir(), "logistic.json")
	if err := model.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := LoadModel(ModelTypeLogistic, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	estimator, ok := loaded.(ProbabilityEstimator)
	if !ok {
		t.Fatal("logistic model should expose probabilities")
	}
	proba, err := estimator.PredictProba([]float64{0.5})
	if err != nil {
		t.Fatalf("proba: %v", err)
	}
	if math.Abs(proba[1]-0.5) > 1e-9 {
		t.Fatalf("expected 0.5 at the boundary, got %f", proba[1])
	}
}

func TestLogisticRegressionShapeMismatch(t *testing.T) {
	model := &LogisticRegression{Weights: []float64{1, 1}}
	if _, err := model.Predict([]float64{1}); err == nil {
		t.Fatal("expected error for short vector")
	}
}
