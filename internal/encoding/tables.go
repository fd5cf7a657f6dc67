package encoding

import (
	"errors"
	"fmt"
	"strings"
)

// Tables holds the encoding parameters frozen at training time. They are
// bundled with the model artifact, loaded once at startup, and shared
// read-only across all requests afterwards.
type Tables struct {
	PointsMean float64 `json:"points_mean"`
	PointsStd  float64 `json:"points_std"`
	PriceMean  float64 `json:"price_mean"`
	PriceStd   float64 `json:"price_std"`

	// Varieties is the frozen category vocabulary in training order. The
	// one-hot block carries one extra reserved slot at the end for varieties
	// never seen during training.
	Varieties []string `json:"varieties"`

	Text TextVectorizer `json:"text"`

	// FeatureDim is the input dimensionality the trained model expects. It is
	// recorded by the training job, not recomputed here, so a skew between
	// the tables and the model weights surfaces as an explicit mismatch.
	FeatureDim int `json:"feature_dim"`

	varietyIndex map[string]int
}

// TextVectorizer holds frozen TF-IDF parameters: a term-to-column vocabulary
// and the matching inverse document frequency weights.
type TextVectorizer struct {
	Vocabulary map[string]int `json:"vocabulary"`
	IDF        []float64      `json:"idf"`
}

// Prepare validates the frozen statistics and builds the variety lookup
// index. It must be called once after unmarshalling, before any Encode call.
func (t *Tables) Prepare() error {
	if t == nil {
		return errors.New("tables are nil")
	}
	if t.PointsStd <= 0 {
		return fmt.Errorf("points std must be positive, got %g", t.PointsStd)
	}
	if t.PriceStd <= 0 {
		return fmt.Errorf("price std must be positive, got %g", t.PriceStd)
	}
	if len(t.Varieties) == 0 {
		return errors.New("variety vocabulary is empty")
	}
	if len(t.Text.Vocabulary) == 0 {
		return errors.New("text vocabulary is empty")
	}
	if len(t.Text.IDF) != len(t.Text.Vocabulary) {
		return fmt.Errorf("idf length %d does not match vocabulary size %d", len(t.Text.IDF), len(t.Text.Vocabulary))
	}
	for term, col := range t.Text.Vocabulary {
		if col < 0 || col >= len(t.Text.IDF) {
			return fmt.Errorf("vocabulary term %q maps to column %d outside idf range", term, col)
		}
	}
	if t.FeatureDim <= 0 {
		return errors.New("feature dimension is not recorded")
	}

	t.varietyIndex = make(map[string]int, len(t.Varieties))
	for i, name := range t.Varieties {
		key := normalizeVariety(name)
		if key == "" {
			return fmt.Errorf("variety vocabulary entry %d is empty", i)
		}
		if _, ok := t.varietyIndex[key]; ok {
			return fmt.Errorf("variety vocabulary entry %q is duplicated", name)
		}
		t.varietyIndex[key] = i
	}
	return nil
}

// VarietySlot returns the one-hot column for the variety, or the reserved
// unknown slot when the variety was never seen during training.
func (t *Tables) VarietySlot(variety string) (int, bool) {
	if idx, ok := t.varietyIndex[normalizeVariety(variety)]; ok {
		return idx, true
	}
	return len(t.Varieties), false
}

func normalizeVariety(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
