package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Classifier is the uniform contract the inference pipeline scores against.
// Any backend that can estimate per-class probabilities satisfies it, which
// keeps the pipeline independent of the training algorithm.
type Classifier interface {
	// PredictProba returns one probability per artifact label, in artifact
	// label order. It fails with a ShapeError when the vector length does not
	// match the expected input dimensionality.
	PredictProba(vector []float64) ([]float64, error)

	// NumFeatures reports the input dimensionality the backend expects.
	NumFeatures() int
}

// ShapeError reports a feature vector whose length does not match the model
// input dimensionality. Like an encoding mismatch it signals artifact skew,
// not bad client input.
type ShapeError struct {
	Want int
	Got  int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("feature vector has %d values, model expects %d", e.Got, e.Want)
}

// linearClassifier scores each class with a linear function of the features
// and maps the scores through a softmax.
type linearClassifier struct {
	name         string
	coefficients [][]float64
	intercepts   []float64
	numFeatures  int
}

func (m *linearClassifier) NumFeatures() int { return m.numFeatures }

func (m *linearClassifier) PredictProba(vector []float64) ([]float64, error) {
	if len(vector) != m.numFeatures {
		return nil, &ShapeError{Want: m.numFeatures, Got: len(vector)}
	}
	scores := make([]float64, len(m.intercepts))
	for c := range scores {
		scores[c] = m.intercepts[c] + floats.Dot(m.coefficients[c], vector)
	}
	softmax(scores)
	return scores, nil
}

// softmax converts raw scores into probabilities in place. The max score is
// subtracted first so large scores cannot overflow the exponential.
func softmax(scores []float64) {
	max := floats.Max(scores)
	for i, s := range scores {
		scores[i] = math.Exp(s - max)
	}
	floats.Scale(1/floats.Sum(scores), scores)
}

// Ensemble averages the distributions of several classifiers, mirroring how
// the model was served during training evaluation.
type Ensemble struct {
	members []Classifier
}

// NewEnsemble wraps the members; they must agree on input dimensionality.
func NewEnsemble(members ...Classifier) (*Ensemble, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("ensemble needs at least one member")
	}
	want := members[0].NumFeatures()
	for i, m := range members[1:] {
		if m.NumFeatures() != want {
			return nil, fmt.Errorf("ensemble member %d expects %d features, member 0 expects %d", i+1, m.NumFeatures(), want)
		}
	}
	return &Ensemble{members: members}, nil
}

func (e *Ensemble) NumFeatures() int { return e.members[0].NumFeatures() }

func (e *Ensemble) PredictProba(vector []float64) ([]float64, error) {
	var avg []float64
	for _, member := range e.members {
		probs, err := member.PredictProba(vector)
		if err != nil {
			return nil, err
		}
		if avg == nil {
			avg = probs
			continue
		}
		if len(probs) != len(avg) {
			return nil, fmt.Errorf("ensemble member returned %d classes, expected %d", len(probs), len(avg))
		}
		floats.Add(avg, probs)
	}
	floats.Scale(1/float64(len(e.members)), avg)
	return avg, nil
}
