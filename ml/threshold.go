package ml

import (
	"encoding/json"
	"errors"
	"os"
)

// ThresholdModel labels a vector positive when a single feature exceeds a
// cutoff. It has no probability function.
type ThresholdModel struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
}

func (m *ThresholdModel) Predict(features []float64) (int, error) {
	if m.FeatureIdx < 0 || m.FeatureIdx >= len(features) {
		return 0, errors.New("feature index out of range")
	}
	if features[m.FeatureIdx] > m.Threshold {
		return 1, nil
	}
	return 0, nil
}

func (m *ThresholdModel) Save(path string) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

func (m *ThresholdModel) Load(path string) error {
	payload, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(payload, m)
}
