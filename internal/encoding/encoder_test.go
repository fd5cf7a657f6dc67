package encoding

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"wine-origin-predictor/backend/internal/schema"
)

func testTables(t *testing.T) *Tables {
	t.Helper()
	tables := &Tables{
		PointsMean: 88,
		PointsStd:  3,
		PriceMean:  35,
		PriceStd:   20,
		Varieties:  []string{"Cabernet Sauvignon", "Merlot"},
		Text: TextVectorizer{
			Vocabulary: map[string]int{"cherry": 0, "vanilla": 1, "oak": 2},
			IDF:        []float64{1.2, 1.5, 2.1},
		},
		// 2 numeric + 2 varieties + 1 unknown slot + 3 text columns
		FeatureDim: 8,
	}
	if err := tables.Prepare(); err != nil {
		t.Fatalf("prepare tables: %v", err)
	}
	return tables
}

func price(v float64) *float64 { return &v }

func TestEncodeIsDeterministic(t *testing.T) {
	tables := testTables(t)
	req := schema.Request{
		Description: "black cherry and vanilla on the nose",
		Points:      92,
		Price:       price(45),
		Variety:     "Cabernet Sauvignon",
	}
	first, err := Encode(req, tables)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	second, err := Encode(req, tables)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("encoding the same request twice must be bit-identical")
	}
}

func TestEncodeNumericStandardization(t *testing.T) {
	tables := testTables(t)
	req := schema.Request{
		Description: "cherry",
		Points:      91,
		Price:       price(55),
		Variety:     "Merlot",
	}
	vector, err := Encode(req, tables)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if got, want := vector[0], 1.0; got != want {
		t.Fatalf("points feature: expected %v got %v", want, got)
	}
	if got, want := vector[1], 1.0; got != want {
		t.Fatalf("price feature: expected %v got %v", want, got)
	}
}

func TestEncodeImputesMissingPriceWithTrainingMean(t *testing.T) {
	tables := testTables(t)
	req := schema.Request{
		Description: "cherry",
		Points:      88,
		Variety:     "Merlot",
	}
	vector, err := Encode(req, tables)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	// The mean standardizes to exactly zero; a zero-imputed price would not.
	if vector[1] != 0 {
		t.Fatalf("imputed price feature should be 0, got %v", vector[1])
	}
}

func TestEncodeVarietyOneHot(t *testing.T) {
	tables := testTables(t)

	tests := []struct {
		name    string
		variety string
		slot    int
	}{
		{"known first", "Cabernet Sauvignon", 2},
		{"case and spacing insensitive", "  merlot ", 3},
		{"unknown maps to reserved slot", "Furmint", 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := schema.Request{Description: "cherry", Points: 90, Variety: tc.variety}
			vector, err := Encode(req, tables)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			for i := 2; i < 5; i++ {
				want := 0.0
				if i == tc.slot {
					want = 1.0
				}
				if vector[i] != want {
					t.Fatalf("one-hot slot %d: expected %v got %v", i, want, vector[i])
				}
			}
		})
	}
}

func TestEncodeTextVectorization(t *testing.T) {
	tables := testTables(t)
	req := schema.Request{
		Description: "Cherry, cherry and VANILLA with persimmon",
		Points:      90,
		Variety:     "Merlot",
	}
	vector, err := Encode(req, tables)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	text := vector[5:]
	if text[2] != 0 {
		t.Fatalf("absent token must weigh zero, got %v", text[2])
	}
	if text[0] <= text[1] {
		t.Fatalf("repeated in-vocabulary token should outweigh single: %v vs %v", text[0], text[1])
	}
	norm := math.Sqrt(text[0]*text[0] + text[1]*text[1] + text[2]*text[2])
	if math.Abs(norm-1) > 1e-12 {
		t.Fatalf("text block should be L2-normalized, norm=%v", norm)
	}
}

func TestEncodeOutOfVocabularyOnlyDescription(t *testing.T) {
	tables := testTables(t)
	req := schema.Request{
		Description: "saline quince minerality",
		Points:      90,
		Variety:     "Merlot",
	}
	vector, err := Encode(req, tables)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	for i, v := range vector[5:] {
		if v != 0 {
			t.Fatalf("text column %d should be zero for OOV-only text, got %v", i, v)
		}
	}
}

func TestEncodeDimensionMismatchFailsFast(t *testing.T) {
	tables := testTables(t)
	tables.FeatureDim = 9

	req := schema.Request{Description: "cherry", Points: 90, Variety: "Merlot"}
	_, err := Encode(req, tables)
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	var mismatch *MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("expected MismatchError, got %T", err)
	}
	if mismatch.Want != 9 || mismatch.Got != 8 {
		t.Fatalf("unexpected mismatch detail: %+v", mismatch)
	}
}

func TestPrepareRejectsBrokenTables(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Tables)
	}{
		{"zero points std", func(tb *Tables) { tb.PointsStd = 0 }},
		{"zero price std", func(tb *Tables) { tb.PriceStd = 0 }},
		{"no varieties", func(tb *Tables) { tb.Varieties = nil }},
		{"idf size mismatch", func(tb *Tables) { tb.Text.IDF = []float64{1} }},
		{"duplicate variety", func(tb *Tables) { tb.Varieties = []string{"Merlot", "merlot"} }},
		{"no feature dim", func(tb *Tables) { tb.FeatureDim = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tables := &Tables{
				PointsMean: 88, PointsStd: 3,
				PriceMean: 35, PriceStd: 20,
				Varieties: []string{"Cabernet Sauvignon", "Merlot"},
				Text: TextVectorizer{
					Vocabulary: map[string]int{"cherry": 0, "vanilla": 1, "oak": 2},
					IDF:        []float64{1.2, 1.5, 2.1},
				},
				FeatureDim: 8,
			}
			tc.mutate(tables)
			if err := tables.Prepare(); err == nil {
				t.Fatal("expected prepare to fail")
			}
		})
	}
}
