package predict

import (
	"gonum.org/v1/gonum/floats"
)

// sumTolerance is the accepted floating drift on a probability sum.
const sumTolerance = 1e-6

// formatDistribution turns the raw per-class probabilities into the winning
// label plus the full, normalized score map. Negative drift is clamped to
// zero and the sum renormalized to one when it has wandered outside
// tolerance. Ties go to the first label in artifact order so repeated
// requests never flip on map iteration order.
func formatDistribution(labels []string, probs []float64) (string, map[string]float64) {
	cleaned := make([]float64, len(probs))
	copy(cleaned, probs)
	for i, p := range cleaned {
		if p < 0 {
			cleaned[i] = 0
		}
	}

	sum := floats.Sum(cleaned)
	switch {
	case sum <= 0:
		// Degenerate distribution: fall back to uniform rather than emit NaNs.
		for i := range cleaned {
			cleaned[i] = 1 / float64(len(cleaned))
		}
	case sum < 1-sumTolerance || sum > 1+sumTolerance:
		floats.Scale(1/sum, cleaned)
	}

	best := 0
	scores := make(map[string]float64, len(labels))
	for i, label := range labels {
		scores[label] = cleaned[i]
		if cleaned[i] > cleaned[best] {
			best = i
		}
	}
	return labels[best], scores
}
