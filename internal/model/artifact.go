package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"wine-origin-predictor/backend/internal/encoding"
)

// Artifact bundles everything the trained model exported: encoding tables,
// the ordered label list, and the classifier weights. It is loaded once at
// startup and read-only afterwards, so it is safe to share across requests.
type Artifact struct {
	version    string
	labels     []string
	tables     *encoding.Tables
	classifier Classifier
}

// artifactFile is the on-disk JSON layout written by the training job.
type artifactFile struct {
	ModelVersion string           `json:"model_version"`
	Labels       []string         `json:"labels"`
	Tables       *encoding.Tables `json:"tables"`
	Models       []modelWeights   `json:"models"`
}

type modelWeights struct {
	Name         string      `json:"name"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// Load reads and validates the artifact at the given path. A failure here is
// fatal to the service; per-request scoring never reloads.
func Load(path string) (*Artifact, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unmarshal artifact: %w", err)
	}
	artifact, err := build(file)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"path":        path,
		"version":     artifact.version,
		"labels":      len(artifact.labels),
		"feature_dim": artifact.tables.FeatureDim,
		"models":      len(file.Models),
	}).Info("model artifact loaded")
	return artifact, nil
}

func build(file artifactFile) (*Artifact, error) {
	if len(file.Labels) == 0 {
		return nil, errors.New("artifact has no labels")
	}
	seen := make(map[string]struct{}, len(file.Labels))
	for _, label := range file.Labels {
		if label == "" {
			return nil, errors.New("artifact label is empty")
		}
		if _, ok := seen[label]; ok {
			return nil, fmt.Errorf("artifact label %q is duplicated", label)
		}
		seen[label] = struct{}{}
	}
	if file.Tables == nil {
		return nil, errors.New("artifact has no encoding tables")
	}
	if err := file.Tables.Prepare(); err != nil {
		return nil, fmt.Errorf("encoding tables: %w", err)
	}
	if len(file.Models) == 0 {
		return nil, errors.New("artifact has no model weights")
	}

	members := make([]Classifier, 0, len(file.Models))
	for i, weights := range file.Models {
		member, err := buildLinear(weights, len(file.Labels), file.Tables.FeatureDim)
		if err != nil {
			return nil, fmt.Errorf("model %d (%s): %w", i, weights.Name, err)
		}
		members = append(members, member)
	}

	var classifier Classifier
	if len(members) == 1 {
		classifier = members[0]
	} else {
		ensemble, err := NewEnsemble(members...)
		if err != nil {
			return nil, err
		}
		classifier = ensemble
	}

	return &Artifact{
		version:    file.ModelVersion,
		labels:     file.Labels,
		tables:     file.Tables,
		classifier: classifier,
	}, nil
}

func buildLinear(weights modelWeights, numLabels, numFeatures int) (Classifier, error) {
	if len(weights.Coefficients) != numLabels {
		return nil, fmt.Errorf("%d coefficient rows for %d labels", len(weights.Coefficients), numLabels)
	}
	if len(weights.Intercepts) != numLabels {
		return nil, fmt.Errorf("%d intercepts for %d labels", len(weights.Intercepts), numLabels)
	}
	for c, row := range weights.Coefficients {
		if len(row) != numFeatures {
			return nil, fmt.Errorf("class %d has %d coefficients, feature dimension is %d", c, len(row), numFeatures)
		}
	}
	return &linearClassifier{
		name:         weights.Name,
		coefficients: weights.Coefficients,
		intercepts:   weights.Intercepts,
		numFeatures:  numFeatures,
	}, nil
}

// Version reports the artifact's model version string.
func (a *Artifact) Version() string { return a.version }

// Labels returns the fixed label list in training order. Callers must not
// mutate the returned slice.
func (a *Artifact) Labels() []string { return a.labels }

// Tables returns the frozen encoding tables.
func (a *Artifact) Tables() *encoding.Tables { return a.tables }

// Classifier returns the loaded probability estimator.
func (a *Artifact) Classifier() Classifier { return a.classifier }
