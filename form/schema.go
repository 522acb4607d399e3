// Package form declares the voice-measurement input schemas and collects
// submitted values into feature vectors in model order.
package form

import (
	"fmt"
	"strconv"
)

// Field is one numeric input. Nil bounds are unbounded.
type Field struct {
	Name    string   `json:"name"`
	Label   string   `json:"label"`
	Column  string   `json:"column"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
	Step    string   `json:"step"`
	Default float64  `json:"default"`
}

func (f Field) MinAttr() string { return boundAttr(f.Min) }
func (f Field) MaxAttr() string { return boundAttr(f.Max) }

func (f Field) inRange(v float64) bool {
	if f.Min != nil && v < *f.Min {
		return false
	}
	if f.Max != nil && v > *f.Max {
		return false
	}
	return true
}

func (f Field) rangeString() string {
	lo, hi := "-inf", "+inf"
	if f.Min != nil {
		lo = strconv.FormatFloat(*f.Min, 'g', -1, 64)
	}
	if f.Max != nil {
		hi = strconv.FormatFloat(*f.Max, 'g', -1, 64)
	}
	return fmt.Sprintf("[%s, %s]", lo, hi)
}

func boundAttr(b *float64) string {
	if b == nil {
		return ""
	}
	return strconv.FormatFloat(*b, 'g', -1, 64)
}

// Schema is an ordered field list. The order is the feature order the model
// was trained with and must not change for a given model version.
type Schema struct {
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

func (s Schema) Len() int { return len(s.Fields) }

// Columns returns the dataset column names in schema order.
func (s Schema) Columns() []string {
	cols := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		cols[i] = f.Column
	}
	return cols
}

func bound(v float64) *float64 { return &v }

const (
	Voice9  = "voice9"
	Voice22 = "voice22"
)

var schemas = map[string]Schema{
	Voice9: {
		Name: Voice9,
		Fields: []Field{
			{Name: "fo", Label: "Average Fundamental Frequency (Hz)", Column: "MDVP:Fo(Hz)", Min: bound(0), Step: "0.01"},
			{Name: "jitter", Label: "Jitter (%)", Column: "MDVP:Jitter(%)", Min: bound(0), Step: "0.00001"},
			{Name: "shimmer", Label: "Shimmer (dB)", Column: "MDVP:Shimmer(dB)", Min: bound(0), Step: "0.00001"},
			{Name: "hnr", Label: "Harmonics-to-Noise Ratio (HNR)", Column: "HNR", Min: bound(0), Step: "0.01"},
			{Name: "rpde", Label: "Recurrence Period Density Entropy (RPDE)", Column: "RPDE", Min: bound(0), Max: bound(1), Step: "0.00001"},
			{Name: "dfa", Label: "Detrended Fluctuation Analysis (DFA)", Column: "DFA", Min: bound(0), Max: bound(2), Step: "0.00001"},
			{Name: "spread1", Label: "Spread1", Column: "spread1", Min: bound(-10), Max: bound(0), Step: "0.00001"},
			{Name: "spread2", Label: "Spread2", Column: "spread2", Min: bound(0), Step: "0.00001"},
			{Name: "d2", Label: "D2", Column: "D2", Min: bound(0), Step: "0.00001"},
		},
	},
	Voice22: {
		Name: Voice22,
		Fields: []Field{
			{Name: "fo", Label: "MDVP:Fo (Hz)", Column: "MDVP:Fo(Hz)", Min: bound(0), Step: "0.001"},
			{Name: "fhi", Label: "MDVP:Fhi (Hz)", Column: "MDVP:Fhi(Hz)", Min: bound(0), Step: "0.001"},
			{Name: "flo", Label: "MDVP:Flo (Hz)", Column: "MDVP:Flo(Hz)", Min: bound(0), Step: "0.001"},
			{Name: "jitter_percent", Label: "MDVP:Jitter (%)", Column: "MDVP:Jitter(%)", Min: bound(0), Step: "0.00001"},
			{Name: "jitter_abs", Label: "MDVP:Jitter (Abs)", Column: "MDVP:Jitter(Abs)", Min: bound(0), Step: "0.000001"},
			{Name: "rap", Label: "MDVP:RAP", Column: "MDVP:RAP", Min: bound(0), Step: "0.00001"},
			{Name: "ppq", Label: "MDVP:PPQ", Column: "MDVP:PPQ", Min: bound(0), Step: "0.00001"},
			{Name: "ddp", Label: "Jitter:DDP", Column: "Jitter:DDP", Min: bound(0), Step: "0.00001"},
			{Name: "shimmer", Label: "MDVP:Shimmer", Column: "MDVP:Shimmer", Min: bound(0), Step: "0.00001"},
			{Name: "shimmer_db", Label: "MDVP:Shimmer (dB)", Column: "MDVP:Shimmer(dB)", Min: bound(0), Step: "0.001"},
			{Name: "apq3", Label: "Shimmer:APQ3", Column: "Shimmer:APQ3", Min: bound(0), Step: "0.00001"},
			{Name: "apq5", Label: "Shimmer:APQ5", Column: "Shimmer:APQ5", Min: bound(0), Step: "0.00001"},
			{Name: "apq", Label: "MDVP:APQ", Column: "MDVP:APQ", Min: bound(0), Step: "0.00001"},
			{Name: "dda", Label: "Shimmer:DDA", Column: "Shimmer:DDA", Min: bound(0), Step: "0.00001"},
			{Name: "nhr", Label: "NHR", Column: "NHR", Min: bound(0), Step: "0.00001"},
			{Name: "hnr", Label: "HNR", Column: "HNR", Min: bound(0), Step: "0.001"},
			{Name: "rpde", Label: "RPDE", Column: "RPDE", Min: bound(0), Max: bound(1), Step: "0.00001"},
			{Name: "dfa", Label: "DFA", Column: "DFA", Min: bound(0), Max: bound(2), Step: "0.00001"},
			{Name: "spread1", Label: "spread1", Column: "spread1", Min: bound(-10), Max: bound(0), Step: "0.00001"},
			{Name: "spread2", Label: "spread2", Column: "spread2", Min: bound(0), Step: "0.00001"},
			{Name: "d2", Label: "D2", Column: "D2", Min: bound(0), Step: "0.00001"},
			{Name: "ppe", Label: "PPE", Column: "PPE", Min: bound(0), Max: bound(1), Step: "0.00001"},
		},
	},
}

// Lookup returns the schema registered under name.
func Lookup(name string) (Schema, error) {
	s, ok := schemas[name]
	if !ok {
		return Schema{}, fmt.Errorf("unknown form schema %q", name)
	}
	return s, nil
}
