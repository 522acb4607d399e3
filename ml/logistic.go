package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// LogisticRegression is a binary linear model over standardized features.
type LogisticRegression struct {
	Weights   []float64       `json:"weights"`
	Intercept float64         `json:"intercept"`
	Scaler    *StandardScaler `json:"scaler,omitempty"`
}

type LogisticTrainOptions struct {
	LearningRate float64
	Epochs       int
	L2           float64
}

func DefaultLogisticTrainOptions() LogisticTrainOptions {
	return LogisticTrainOptions{
		LearningRate: 0.1,
		Epochs:       2000,
		L2:           0.01,
	}
}

// Train fits the model with batch gradient descent on the log loss.
func (lr *LogisticRegression) Train(features [][]float64, labels []int, opts LogisticTrainOptions) error {
	if len(features) == 0 || len(labels) == 0 {
		return errors.New("features or labels empty")
	}
	if len(features) != len(labels) {
		return errors.New("features and labels size mismatch")
	}
	if opts.LearningRate <= 0 || opts.Epochs <= 0 {
		opts = DefaultLogisticTrainOptions()
	}

	scaler := &StandardScaler{}
	if err := scaler.ComputeStats(features); err != nil {
		return err
	}
	scaled, err := scaler.TransformAll(features)
	if err != nil {
		return err
	}

	width := len(scaled[0])
	weights := make([]float64, width)
	intercept := 0.0
	n := float64(len(scaled))

	for epoch := 0; epoch < opts.Epochs; epoch++ {
		grad := make([]float64, width)
		gradIntercept := 0.0
		for i, row := range scaled {
			diff := sigmoid(dot(weights, row)+intercept) - float64(labels[i])
			for j, v := range row {
				grad[j] += diff * v
			}
			gradIntercept += diff
		}
		for j := range weights {
			weights[j] -= opts.LearningRate * (grad[j]/n + opts.L2*weights[j])
		}
		intercept -= opts.LearningRate * gradIntercept / n
	}

	lr.Weights = weights
	lr.Intercept = intercept
	lr.Scaler = scaler
	return nil
}

func (lr *LogisticRegression) Predict(features []float64) (int, error) {
	proba, err := lr.PredictProba(features)
	if err != nil {
		return 0, err
	}
	if proba[1] >= 0.5 {
		return 1, nil
	}
	return 0, nil
}

func (lr *LogisticRegression) PredictProba(features []float64) ([]float64, error) {
	if len(lr.Weights) == 0 {
		return nil, ErrNotTrained
	}
	x := features
	if lr.Scaler != nil {
		scaled, err := lr.Scaler.Transform(features)
		if err != nil {
			return nil, err
		}
		x = scaled
	}
	if len(x) != len(lr.Weights) {
		return nil, fmt.Errorf("expected %d features, got %d", len(lr.Weights), len(x))
	}
	p := sigmoid(dot(lr.Weights, x) + lr.Intercept)
	return []float64{1 - p, p}, nil
}

func (lr *LogisticRegression) Save(path string) error {
	if len(lr.Weights) == 0 {
		return ErrNotTrained
	}
	payload, err := json.MarshalIndent(lr, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func (lr *LogisticRegression) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var loaded LogisticRegression
	if err := json.Unmarshal(payload, &loaded); err != nil {
		return err
	}
	if len(loaded.Weights) == 0 {
		return ErrNotTrained
	}
	*lr = loaded
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
