package pipeline

import "fmt"

// EscalationPolicy combines per-stage confidences into the ticket-level
// confidence that the escalation stage compares against the threshold.
// Implementations must be monotonic: Combine may never decrease when any
// input confidence increases.
type EscalationPolicy interface {
	Name() string
	Combine(confidences []float64) float64
}

// MinimumConfidence is the default policy: the pipeline is only as
// trustworthy as its least confident stage.
type MinimumConfidence struct{}

func (MinimumConfidence) Name() string { return "minimum" }

func (MinimumConfidence) Combine(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	min := confidences[0]
	for _, c := range confidences[1:] {
		if c < min {
			min = c
		}
	}
	return min
}

// WeightedAverage weights early stages higher than late ones, on the theory
// that a misclassified intent poisons everything downstream. Weights beyond
// the input length are ignored; missing weights default to 1.
type WeightedAverage struct {
	Weights []float64
}

func (WeightedAverage) Name() string { return "weighted_average" }

func (p WeightedAverage) Combine(confidences []float64) float64 {
	if len(confidences) == 0 {
		return 0
	}
	var sum, totalWeight float64
	for i, c := range confidences {
		w := 1.0
		if i < len(p.Weights) {
			w = p.Weights[i]
		}
		sum += c * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0
	}
	return sum / totalWeight
}

// PolicyByName resolves a configured policy name.
func PolicyByName(name string) (EscalationPolicy, error) {
	switch name {
	case "", "minimum":
		return MinimumConfidence{}, nil
	case "weighted_average":
		// Triage counts double: a wrong intent poisons every later stage.
		return WeightedAverage{Weights: []float64{2, 1, 1, 1}}, nil
	default:
		return nil, fmt.Errorf("unknown escalation policy %q", name)
	}
}
