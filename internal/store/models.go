package store

import (
	"encoding/json"
	"strings"
	"time"
)

// Prediction records one served inference: the validated inputs, the winning
// label, and the full confidence distribution.
type Prediction struct {
	ID               uint     `gorm:"primaryKey"`
	Description      string   `gorm:"type:text"`
	Points           int      `gorm:"index"`
	Price            *float64
	Variety          string   `gorm:"size:128;index"`
	PredictedCountry string   `gorm:"size:64;index"`
	Confidence       float64  `gorm:"index"`
	ScoresJSON       string   `gorm:"type:text"`
	ModelVersion     string   `gorm:"size:32"`
	LatencyMs        int64
	CreatedAt        time.Time `gorm:"index"`
}

// SetScores persists the confidence distribution as JSON.
func (p *Prediction) SetScores(scores map[string]float64) {
	if scores == nil {
		p.ScoresJSON = "{}"
		return
	}
	payload, _ := json.Marshal(scores)
	p.ScoresJSON = string(payload)
}

// Scores returns the unmarshalled confidence distribution.
func (p *Prediction) Scores() map[string]float64 {
	if strings.TrimSpace(p.ScoresJSON) == "" {
		return nil
	}
	var out map[string]float64
	if err := json.Unmarshal([]byte(p.ScoresJSON), &out); err != nil {
		return nil
	}
	return out
}
