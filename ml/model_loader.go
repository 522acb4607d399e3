package ml

import (
	"fmt"
)

const (
	ModelTypeDecisionTree = "decision_tree"
	ModelTypeLogistic     = "logistic"
	ModelTypeThreshold    = "threshold"
)

func newModel(modelType string) (MLModel, error) {
	switch modelType {
	case ModelTypeDecisionTree:
		return &DecisionTree{}, nil
	case ModelTypeLogistic:
		return &LogisticRegression{}, nil
	case ModelTypeThreshold:
		return &ThresholdModel{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, modelType)
	}
}

func LoadModel(modelType, path string) (MLModel, error) {
	model, err := newModel(modelType)
	if err != nil {
		return nil, err
	}
	if err := model.Load(path); err != nil {
		return nil, fmt.Errorf("load %s model from %s: %w", modelType, path, err)
	}
	return model, nil
}
