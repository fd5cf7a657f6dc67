package predict

import (
	"context"
	"errors"
	"time"

	"wine-origin-predictor/backend/internal/encoding"
	"wine-origin-predictor/backend/internal/model"
	"wine-origin-predictor/backend/internal/schema"
	"wine-origin-predictor/backend/internal/util"
)

// Response is the final, fully formed prediction result. It is constructed
// once per request and never shared or cached across requests.
type Response struct {
	PredictedCountry string             `json:"predicted_country"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	PredictionTime   float64            `json:"prediction_time"`
	ModelVersion     string             `json:"model_version"`
	Timestamp        time.Time          `json:"timestamp"`
}

// Service runs the inference pipeline: validate, encode, score, format. All
// of its state is the immutable loaded artifact, so a single Service is
// shared by every concurrent request handler.
type Service struct {
	artifact   *model.Artifact
	classifier model.Classifier
	limits     schema.Limits
}

// NewService wires a loaded artifact into a pipeline. A nil classifier
// defaults to the one bundled in the artifact.
func NewService(artifact *model.Artifact, classifier model.Classifier, limits schema.Limits) *Service {
	if classifier == nil {
		classifier = artifact.Classifier()
	}
	return &Service{artifact: artifact, classifier: classifier, limits: limits}
}

// LoadService loads the artifact at path and builds the pipeline around it.
// Failures here are startup-fatal, never per-request.
func LoadService(path string, limits schema.Limits) (*Service, error) {
	artifact, err := model.Load(path)
	if err != nil {
		return nil, &Error{Kind: KindArtifactLoad, Message: err.Error()}
	}
	return NewService(artifact, nil, limits), nil
}

// Version reports the loaded artifact's model version.
func (s *Service) Version() string { return s.artifact.Version() }

// Labels returns the artifact's fixed label list.
func (s *Service) Labels() []string { return s.artifact.Labels() }

// FeatureDim reports the model input dimensionality.
func (s *Service) FeatureDim() int { return s.artifact.Tables().FeatureDim }

// Predict runs one request through the pipeline. The first failing stage is
// terminal: nothing is retried and no partial response is ever returned.
func (s *Service) Predict(ctx context.Context, raw schema.RawRequest) (*Response, error) {
	timer := util.StartTimer()

	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindInternal, Message: err.Error()}
	}

	req, err := schema.Validate(raw, s.limits)
	if err != nil {
		return nil, wrapValidation(err)
	}

	vector, err := encoding.Encode(req, s.artifact.Tables())
	if err != nil {
		return nil, wrapEncoding(err)
	}

	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindInternal, Message: err.Error()}
	}

	probs, err := s.classifier.PredictProba(vector)
	if err != nil {
		return nil, wrapScoring(err)
	}

	country, scores := formatDistribution(s.artifact.Labels(), probs)
	return &Response{
		PredictedCountry: country,
		ConfidenceScores: scores,
		PredictionTime:   timer.ElapsedSeconds(),
		ModelVersion:     s.artifact.Version(),
		Timestamp:        time.Now().UTC(),
	}, nil
}

func wrapValidation(err error) error {
	var fieldErr *schema.FieldError
	if errors.As(err, &fieldErr) {
		kind := KindInvalidField
		if fieldErr.Reason == schema.ReasonMissing {
			kind = KindMissingField
		}
		return &Error{Kind: kind, Field: fieldErr.Field, Message: fieldErr.Message}
	}
	return &Error{Kind: KindInvalidField, Message: err.Error()}
}

func wrapEncoding(err error) error {
	var mismatch *encoding.MismatchError
	if errors.As(err, &mismatch) {
		return &Error{Kind: KindEncodingMismatch, Message: mismatch.Error()}
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}

func wrapScoring(err error) error {
	var shape *model.ShapeError
	if errors.As(err, &shape) {
		return &Error{Kind: KindShapeMismatch, Message: shape.Error()}
	}
	return &Error{Kind: KindInternal, Message: err.Error()}
}
