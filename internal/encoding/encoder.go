package encoding

import (
	"fmt"
	"regexp"
	"strings"

	"gonum.org/v1/gonum/floats"

	"wine-origin-predictor/backend/internal/schema"
)

// tokenPattern matches lowercase word tokens of at least two characters, the
// same tokenization the training vectorizer used.
var tokenPattern = regexp.MustCompile(`[a-z0-9]{2,}`)

// MismatchError reports a drift between the encoder output and the dimension
// the trained model expects. It indicates a deployment skew between encoder
// and artifact versions and must never be treated as a client error.
type MismatchError struct {
	Want int
	Got  int
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("encoded vector has %d features, artifact expects %d", e.Got, e.Want)
}

// Encode maps a validated request into the fixed-order feature vector the
// model consumes: [points, price, variety one-hot + unknown slot, tf-idf].
// Encoding is deterministic and allocates only request-local state, so tables
// may be shared across concurrent calls.
func Encode(req schema.Request, tables *Tables) ([]float64, error) {
	oneHotLen := len(tables.Varieties) + 1
	textLen := len(tables.Text.IDF)
	vector := make([]float64, 0, 2+oneHotLen+textLen)

	vector = append(vector, standardize(float64(req.Points), tables.PointsMean, tables.PointsStd))

	// A missing price is imputed with the training-set mean, which
	// standardizes to exactly zero.
	price := tables.PriceMean
	if req.Price != nil {
		price = *req.Price
	}
	vector = append(vector, standardize(price, tables.PriceMean, tables.PriceStd))

	oneHot := make([]float64, oneHotLen)
	slot, _ := tables.VarietySlot(req.Variety)
	oneHot[slot] = 1
	vector = append(vector, oneHot...)

	vector = append(vector, vectorizeText(req.Description, tables.Text)...)

	if len(vector) != tables.FeatureDim {
		return nil, &MismatchError{Want: tables.FeatureDim, Got: len(vector)}
	}
	return vector, nil
}

func standardize(value, mean, std float64) float64 {
	return (value - mean) / std
}

// vectorizeText computes an L2-normalized TF-IDF sub-vector. Tokens outside
// the frozen vocabulary contribute nothing.
func vectorizeText(text string, vec TextVectorizer) []float64 {
	weights := make([]float64, len(vec.IDF))
	for _, token := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if col, ok := vec.Vocabulary[token]; ok {
			weights[col] += vec.IDF[col]
		}
	}
	if norm := floats.Norm(weights, 2); norm > 0 {
		floats.Scale(1/norm, weights)
	}
	return weights
}
