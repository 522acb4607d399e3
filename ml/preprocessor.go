package ml

import (
	"errors"
	"fmt"
	"math"
)

// StandardScaler centers each feature on its training mean and scales it to
// unit variance. Zero-variance features are only centered.
type StandardScaler struct {
	Means  []float64 `json:"means"`
	Scales []float64 `json:"scales"`
}

func (s *StandardScaler) ComputeStats(features [][]float64) error {
	if len(features) == 0 {
		return errors.New("features is empty")
	}
	width := len(features[0])
	means := make([]float64, width)
	for _, row := range features {
		if len(row) != width {
			return fmt.Errorf("ragged feature matrix: expected %d columns, got %d", width, len(row))
		}
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= float64(len(features))
	}

	scales := make([]float64, width)
	for _, row := range features {
		for j, v := range row {
			d := v - means[j]
			scales[j] += d * d
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j] / float64(len(features)))
		if scales[j] == 0 {
			scales[j] = 1
		}
	}

	s.Means = means
	s.Scales = scales
	return nil
}

func (s *StandardScaler) Transform(vector []float64) ([]float64, error) {
	if len(s.Means) == 0 {
		return nil, errors.New("feature stats not computed")
	}
	if len(vector) != len(s.Means) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.Means), len(vector))
	}
	out := make([]float64, len(vector))
	for i, v := range vector {
		out[i] = (v - s.Means[i]) / s.Scales[i]
	}
	return out, nil
}

func (s *StandardScaler) TransformAll(features [][]float64) ([][]float64, error) {
	out := make([][]float64, len(features))
	for i, row := range features {
		scaled, err := s.Transform(row)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}
