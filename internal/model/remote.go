package model

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// RemoteConfig holds the connection parameters for an external model server.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration

	// NumFeatures and NumLabels pin the contract the remote backend must
	// honor; they come from the local artifact's encoding tables.
	NumFeatures int
	NumLabels   int
}

// ErrRemoteDisabled signals that no remote model server is configured.
var ErrRemoteDisabled = errors.New("remote model disabled")

// RemoteClassifier scores feature vectors against an external model server
// exposing a JSON predict endpoint. It lets the service swap the bundled
// linear weights for a heavier backend without touching the pipeline.
type RemoteClassifier struct {
	httpClient  *http.Client
	baseURL     string
	numFeatures int
	numLabels   int
}

// NewRemoteClassifier constructs a RemoteClassifier if the supplied
// configuration is valid.
func NewRemoteClassifier(cfg RemoteConfig) (*RemoteClassifier, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, ErrRemoteDisabled
	}
	if cfg.NumFeatures <= 0 || cfg.NumLabels <= 0 {
		return nil, errors.New("remote model needs feature and label dimensions")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteClassifier{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		numFeatures: cfg.NumFeatures,
		numLabels:   cfg.NumLabels,
	}, nil
}

func (r *RemoteClassifier) NumFeatures() int { return r.numFeatures }

type remotePredictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type remotePredictResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// PredictProba posts the vector to the remote predict endpoint and returns
// the per-class probabilities.
func (r *RemoteClassifier) PredictProba(vector []float64) ([]float64, error) {
	if len(vector) != r.numFeatures {
		return nil, &ShapeError{Want: r.numFeatures, Got: len(vector)}
	}

	payload, err := json.Marshal(remotePredictRequest{Instances: [][]float64{vector}})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.httpClient.Timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote predict: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("remote predict failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var decoded remotePredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode remote prediction: %w", err)
	}
	if len(decoded.Probabilities) != 1 {
		return nil, fmt.Errorf("remote returned %d rows for a single instance", len(decoded.Probabilities))
	}
	probs := decoded.Probabilities[0]
	if len(probs) != r.numLabels {
		return nil, fmt.Errorf("remote returned %d classes, artifact has %d labels", len(probs), r.numLabels)
	}
	return probs, nil
}
