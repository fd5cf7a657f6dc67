package model

import (
	"encoding/json"
	"errors"
	"math"
	"os"
	"testing"

	"wine-origin-predictor/backend/internal/encoding"
)

func fixtureFile() artifactFile {
	return artifactFile{
		ModelVersion: "1.0.0",
		Labels:       []string{"France", "Italy", "Spain", "US"},
		Tables: &encoding.Tables{
			PointsMean: 88, PointsStd: 3,
			PriceMean: 35, PriceStd: 20,
			Varieties: []string{"Cabernet Sauvignon", "Merlot"},
			Text: encoding.TextVectorizer{
				Vocabulary: map[string]int{"cherry": 0, "vanilla": 1, "oak": 2},
				IDF:        []float64{1.2, 1.5, 2.1},
			},
			FeatureDim: 8,
		},
		Models: []modelWeights{
			{
				Name: "softmax_a",
				Coefficients: [][]float64{
					{0.9, 0.1, 0.4, 0.0, 0.1, 0.6, 0.2, 0.0},
					{0.2, 0.3, 0.1, 0.5, 0.1, 0.1, 0.4, 0.2},
					{0.1, 0.2, 0.0, 0.1, 0.3, 0.0, 0.1, 0.5},
					{0.4, 0.6, 0.3, 0.2, 0.0, 0.2, 0.0, 0.1},
				},
				Intercepts: []float64{0.1, 0.05, -0.1, 0.0},
			},
		},
	}
}

func tempArtifact(t *testing.T, file artifactFile) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "artifact-*.json")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	data, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return f.Name()
}

func TestLoadArtifact(t *testing.T) {
	path := tempArtifact(t, fixtureFile())
	artifact, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if artifact.Version() != "1.0.0" {
		t.Fatalf("unexpected version %q", artifact.Version())
	}
	if len(artifact.Labels()) != 4 {
		t.Fatalf("expected 4 labels got %d", len(artifact.Labels()))
	}
	if artifact.Classifier().NumFeatures() != 8 {
		t.Fatalf("expected 8 features got %d", artifact.Classifier().NumFeatures())
	}
}

func TestLoadRejectsBrokenArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*artifactFile)
	}{
		{"no labels", func(f *artifactFile) { f.Labels = nil }},
		{"duplicate label", func(f *artifactFile) { f.Labels = []string{"France", "France", "Spain", "US"} }},
		{"no tables", func(f *artifactFile) { f.Tables = nil }},
		{"no models", func(f *artifactFile) { f.Models = nil }},
		{"intercept count", func(f *artifactFile) { f.Models[0].Intercepts = []float64{0.1} }},
		{"coefficient width", func(f *artifactFile) { f.Models[0].Coefficients[2] = []float64{1, 2} }},
		{"broken tables", func(f *artifactFile) { f.Tables.PointsStd = 0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			file := fixtureFile()
			tc.mutate(&file)
			if _, err := Load(tempArtifact(t, file)); err == nil {
				t.Fatal("expected load to fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does/not/exist.json"); err == nil {
		t.Fatal("expected load to fail")
	}
}

func TestPredictProbaIsDistribution(t *testing.T) {
	artifact, err := Load(tempArtifact(t, fixtureFile()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	vector := []float64{1.2, 0.4, 1, 0, 0, 0.7, 0.3, 0}
	probs, err := artifact.Classifier().PredictProba(vector)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if len(probs) != 4 {
		t.Fatalf("expected 4 probabilities got %d", len(probs))
	}
	sum := 0.0
	for _, p := range probs {
		if p < 0 || p > 1 {
			t.Fatalf("probability out of range: %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-9 {
		t.Fatalf("probabilities should sum to 1, got %v", sum)
	}
}

func TestPredictProbaShapeMismatch(t *testing.T) {
	artifact, err := Load(tempArtifact(t, fixtureFile()))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	_, err = artifact.Classifier().PredictProba([]float64{1, 2, 3})
	if err == nil {
		t.Fatal("expected shape error")
	}
	var shape *ShapeError
	if !errors.As(err, &shape) {
		t.Fatalf("expected ShapeError, got %T", err)
	}
	if shape.Want != 8 || shape.Got != 3 {
		t.Fatalf("unexpected shape detail: %+v", shape)
	}
}

func TestEnsembleAveragesMembers(t *testing.T) {
	file := fixtureFile()
	second := file.Models[0]
	second.Name = "softmax_b"
	second.Intercepts = []float64{0.0, 0.2, 0.1, -0.3}
	file.Models = append(file.Models, second)

	artifact, err := Load(tempArtifact(t, file))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	ensemble, ok := artifact.Classifier().(*Ensemble)
	if !ok {
		t.Fatalf("expected ensemble classifier, got %T", artifact.Classifier())
	}

	vector := []float64{0.5, 0.1, 0, 1, 0, 0.2, 0.9, 0}
	combined, err := ensemble.PredictProba(vector)
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	a, err := ensemble.members[0].PredictProba(vector)
	if err != nil {
		t.Fatalf("member predict: %v", err)
	}
	b, err := ensemble.members[1].PredictProba(vector)
	if err != nil {
		t.Fatalf("member predict: %v", err)
	}
	for i := range combined {
		want := (a[i] + b[i]) / 2
		if math.Abs(combined[i]-want) > 1e-12 {
			t.Fatalf("class %d: expected %v got %v", i, want, combined[i])
		}
	}
}
