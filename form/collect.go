package form

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidValue = errors.New("invalid field value")

type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FeatureVector holds values in schema order.
type FeatureVector []NamedValue

func (v FeatureVector) Values() []float64 {
	out := make([]float64, len(v))
	for i, nv := range v {
		out[i] = nv.Value
	}
	return out
}

// Map is keyed by field name, for re-filling a submitted form.
func (v FeatureVector) Map() map[string]float64 {
	out := make(map[string]float64, len(v))
	for _, nv := range v {
		out[nv.Name] = nv.Value
	}
	return out
}

// Collect reads every declared field from submitted form values. Missing or
// blank fields take the field default.
func (s Schema) Collect(values url.Values) (FeatureVector, error) {
	return s.collect(func(name string) (float64, bool, error) {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			return 0, false, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, false, err
		}
		return v, true, nil
	})
}

// CollectMap is Collect for already-decoded values, as sent to the JSON API.
// Keys that are not field names are rejected.
func (s Schema) CollectMap(values map[string]float64) (FeatureVector, error) {
	if unknown := s.unknownKeys(values); len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown field %s", ErrInvalidValue, strings.Join(unknown, ", "))
	}
	return s.collect(func(name string) (float64, bool, error) {
		v, ok := values[name]
		return v, ok, nil
	})
}

func (s Schema) collect(get func(name string) (float64, bool, error)) (FeatureVector, error) {
	vector := make(FeatureVector, 0, len(s.Fields))
	for _, f := range s.Fields {
		v, ok, err := get(f.Name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidValue, f.Name, err)
		}
		if !ok {
			v = f.Default
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: %s: not a finite number", ErrInvalidValue, f.Name)
		}
		if !f.inRange(v) {
			return nil, fmt.Errorf("%w: %s=%g outside %s", ErrInvalidValue, f.Name, v, f.rangeString())
		}
		vector = append(vector, NamedValue{Name: f.Name, Value: v})
	}
	return vector, nil
}

func (s Schema) unknownKeys(values map[string]float64) []string {
	known := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Name] = true
	}
	var unknown []string
	for name := range values {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}
