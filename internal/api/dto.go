package api

import (
	"time"

	"wine-origin-predictor/backend/internal/store"
)

// PredictionDTO is the API representation for a stored prediction.
type PredictionDTO struct {
	ID               uint               `json:"id"`
	Description      string             `json:"description"`
	Points           int                `json:"points"`
	Price            *float64           `json:"price"`
	Variety          string             `json:"variety"`
	PredictedCountry string             `json:"predicted_country"`
	Confidence       float64            `json:"confidence"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	ModelVersion     string             `json:"model_version"`
	LatencyMs        int64              `json:"latency_ms"`
	CreatedAt        time.Time          `json:"created_at"`
}

// HistoryResponse is the paginated response for the prediction history.
type HistoryResponse struct {
	Items []PredictionDTO `json:"items"`
	Total int64           `json:"total"`
}

// FromModel converts a store.Prediction into the DTO representation.
func FromModel(p store.Prediction) PredictionDTO {
	return PredictionDTO{
		ID:               p.ID,
		Description:      p.Description,
		Points:           p.Points,
		Price:            p.Price,
		Variety:          p.Variety,
		PredictedCountry: p.PredictedCountry,
		Confidence:       p.Confidence,
		ConfidenceScores: p.Scores(),
		ModelVersion:     p.ModelVersion,
		LatencyMs:        p.LatencyMs,
		CreatedAt:        p.CreatedAt,
	}
}
