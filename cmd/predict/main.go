package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"wine-origin-predictor/backend/internal/predict"
	"wine-origin-predictor/backend/internal/schema"
)

// cmd/predict runs one request through the inference pipeline without the
// HTTP layer, which is handy for smoke-testing a freshly trained artifact.
func main() {
	var (
		modelPath   = flag.String("model", filepath.FromSlash("models/wine_origin.json"), "Path to the model artifact JSON")
		description = flag.String("description", "", "Wine tasting description")
		points      = flag.Float64("points", -1, "Review points")
		price       = flag.Float64("price", -1, "Bottle price (negative means not provided)")
		variety     = flag.String("variety", "", "Grape variety")
		inputPath   = flag.String("input", "", "Optional JSON file with the raw request (overrides flags)")
	)
	flag.Parse()

	if env := strings.TrimSpace(os.Getenv("WINE_MODEL_PATH")); env != "" && !flagWasSet("model") {
		*modelPath = env
	}

	svc, err := predict.LoadService(*modelPath, schema.DefaultLimits())
	if err != nil {
		logrus.Fatalf("load model: %v", err)
	}

	raw := buildRequest(*description, *points, *price, *variety)
	if strings.TrimSpace(*inputPath) != "" {
		data, err := os.ReadFile(filepath.Clean(*inputPath))
		if err != nil {
			logrus.Fatalf("read input: %v", err)
		}
		raw = schema.RawRequest{}
		if err := json.Unmarshal(data, &raw); err != nil {
			logrus.Fatalf("parse input: %v", err)
		}
	}

	response, err := svc.Predict(context.Background(), raw)
	if err != nil {
		if typed := predict.AsError(err); typed != nil {
			logrus.Fatalf("predict (%s): %v", typed.Kind, err)
		}
		logrus.Fatalf("predict: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		logrus.Fatalf("encode response: %v", err)
	}
}

func buildRequest(description string, points, price float64, variety string) schema.RawRequest {
	raw := schema.RawRequest{}
	if strings.TrimSpace(description) != "" {
		raw.Description = &description
	}
	if points >= 0 {
		raw.Points = &points
	}
	if price >= 0 {
		raw.Price = &price
	}
	if strings.TrimSpace(variety) != "" {
		raw.Variety = &variety
	}
	return raw
}

func flagWasSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}
