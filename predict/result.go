package predict

import "fmt"

type Label string

const (
	Positive Label = "Positive"
	Negative Label = "Negative"
)

func labelFor(class int) Label {
	if class == 1 {
		return Positive
	}
	return Negative
}

// Result is one classifier outcome. Confidence is the positive-class
// probability as a percentage and is nil when the model has no probability
// function.
type Result struct {
	Label      Label    `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

func (r Result) Positive() bool { return r.Label == Positive }

func (r Result) HasConfidence() bool { return r.Confidence != nil }

func (r Result) Verdict() string {
	if r.Positive() {
		return "The person is likely to have Parkinson's Disease."
	}
	return "The person is unlikely to have Parkinson's Disease."
}

// ConfidenceText is empty when no confidence is available.
func (r Result) ConfidenceText() string {
	if r.Confidence == nil {
		return ""
	}
	return fmt.Sprintf("Prediction Confidence: %.2f%%", *r.Confidence)
}
