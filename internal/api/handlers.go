package api

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"wine-origin-predictor/backend/internal/predict"
	"wine-origin-predictor/backend/internal/schema"
	"wine-origin-predictor/backend/internal/store"
	"wine-origin-predictor/backend/internal/util"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"model_version": s.svc.Version(),
		"model_path":    s.modelPath,
		"timestamp":     time.Now().UTC(),
	})
}

func (s *Server) handleConfig(c *gin.Context) {
	history := int64(0)
	if s.db != nil {
		if count, err := s.db.CountPredictions(); err == nil {
			history = count
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"model_version":   s.svc.Version(),
		"labels":          s.svc.Labels(),
		"feature_dim":     s.svc.FeatureDim(),
		"history_enabled": !s.historyOff,
		"history_records": history,
	})
}

// handleExample returns the canonical example request for quick manual tests.
func (s *Server) handleExample(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"description": "A rich and full-bodied wine with notes of black cherry and vanilla",
		"points":      92,
		"price":       45.0,
		"variety":     "Cabernet Sauvignon",
	})
}

func (s *Server) handlePredict(c *gin.Context) {
	var raw schema.RawRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.renderError(c, http.StatusBadRequest, fmt.Errorf("parse request: %w", err))
		return
	}

	timer := util.StartTimer()
	response, err := s.svc.Predict(c.Request.Context(), raw)
	if err != nil {
		if predict.IsClientError(err) {
			s.renderError(c, http.StatusBadRequest, err)
			return
		}
		// Internal kinds mean artifact skew; log loudly so operators notice.
		fields := logrus.Fields{}
		if typed := predict.AsError(err); typed != nil {
			fields["error_kind"] = string(typed.Kind)
		}
		logrus.WithError(err).WithFields(fields).Error("prediction pipeline failed")
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	s.recordPrediction(raw, response, timer.ElapsedMs())
	s.notifier.Broadcast(PredictionEvent{
		Type:             "prediction",
		PredictedCountry: response.PredictedCountry,
		Confidence:       response.ConfidenceScores[response.PredictedCountry],
		Variety:          derefString(raw.Variety),
		ModelVersion:     response.ModelVersion,
		LatencyMs:        timer.ElapsedMs(),
	})

	c.JSON(http.StatusOK, response)
}

// recordPrediction appends to history. Persistence problems are logged and
// never fail the prediction that was already computed.
func (s *Server) recordPrediction(raw schema.RawRequest, response *predict.Response, latencyMs int64) {
	if s.db == nil {
		return
	}
	validated, err := schema.Validate(raw, s.limits)
	if err != nil {
		return
	}
	row := &store.Prediction{
		Description:      validated.Description,
		Points:           validated.Points,
		Price:            validated.Price,
		Variety:          validated.Variety,
		PredictedCountry: response.PredictedCountry,
		Confidence:       response.ConfidenceScores[response.PredictedCountry],
		ModelVersion:     response.ModelVersion,
		LatencyMs:        latencyMs,
	}
	row.SetScores(response.ConfidenceScores)
	if err := s.db.SavePrediction(row); err != nil {
		logrus.WithError(err).Warn("persist prediction history")
	}
}

func (s *Server) handleHistory(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("prediction history disabled"))
		return
	}

	page, _ := strconv.Atoi(c.Query("page"))
	if page < 0 {
		page = 0
	}
	pageSize, _ := strconv.Atoi(c.Query("pageSize"))
	if pageSize <= 0 {
		pageSize = 100
	}
	minConfidence, _ := strconv.ParseFloat(c.Query("minConfidence"), 64)

	rows, total, err := s.db.ListPredictions(store.PredictionQuery{
		Country:       strings.TrimSpace(c.Query("country")),
		Variety:       strings.TrimSpace(c.Query("variety")),
		MinConfidence: minConfidence,
		Offset:        page * pageSize,
		Limit:         pageSize,
	})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	dtos := make([]PredictionDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, FromModel(row))
	}
	c.JSON(http.StatusOK, HistoryResponse{Items: dtos, Total: total})
}

func (s *Server) handleExportCSV(c *gin.Context) {
	if s.db == nil {
		s.renderError(c, http.StatusNotFound, fmt.Errorf("prediction history disabled"))
		return
	}

	rows, _, err := s.db.ListPredictions(store.PredictionQuery{Limit: -1})
	if err != nil {
		s.renderError(c, http.StatusInternalServerError, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=wine-predictions.csv")
	c.Header("Content-Type", "text/csv")

	writer := csv.NewWriter(c.Writer)
	headers := []string{"created_at", "description", "points", "price", "variety", "predicted_country", "confidence", "model_version", "latency_ms"}
	if err := writer.Write(headers); err != nil {
		return
	}
	for _, row := range rows {
		price := ""
		if row.Price != nil {
			price = fmt.Sprintf("%.2f", *row.Price)
		}
		line := []string{
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.Description,
			strconv.Itoa(row.Points),
			price,
			row.Variety,
			row.PredictedCountry,
			fmt.Sprintf("%.6f", row.Confidence),
			row.ModelVersion,
			strconv.FormatInt(row.LatencyMs, 10),
		}
		if err := writer.Write(line); err != nil {
			return
		}
	}
	writer.Flush()
}

func (s *Server) handlePredictStream(c *gin.Context) {
	upgrader := websocket.Upgrader{
		HandshakeTimeout:  5 * time.Second,
		EnableCompression: true,
		CheckOrigin: func(r *http.Request) bool {
			if len(s.allowedOrigins) == 0 {
				return true
			}
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			for _, allowed := range s.allowedOrigins {
				if strings.EqualFold(origin, allowed) {
					return true
				}
			}
			return false
		},
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Warn("upgrade websocket")
		return
	}

	client := s.notifier.Register(conn)
	logrus.WithField("remote", conn.RemoteAddr().String()).Info("prediction websocket connected")
	defer s.notifier.Unregister(client)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.WithField("remote", conn.RemoteAddr().String()).Info("prediction websocket closed")
			} else {
				logrus.WithError(err).Warn("prediction websocket unexpected close")
			}
			break
		}
	}
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}
