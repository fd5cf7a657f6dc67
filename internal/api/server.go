package api

import (
	"errors"
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"wine-origin-predictor/backend/internal/model"
	"wine-origin-predictor/backend/internal/predict"
	"wine-origin-predictor/backend/internal/schema"
	"wine-origin-predictor/backend/internal/store"
)

// Config defines server dependencies.
type Config struct {
	ModelPath      string
	DBPath         string
	AllowedOrigins []string
	Limits         schema.Limits
	RemoteModel    model.RemoteConfig
	SilentDB       bool
	DisableHistory bool
}

// Server wires HTTP handlers with the inference pipeline and persistence.
type Server struct {
	svc            *predict.Service
	db             *store.Database
	notifier       *PredictionNotifier
	allowedOrigins []string
	modelPath      string
	limits         schema.Limits
	historyOff     bool
}

// NewServer constructs the API server. The model artifact is loaded exactly
// once here; a load failure is fatal rather than surfaced per request.
func NewServer(cfg Config) (*Server, error) {
	if cfg.ModelPath == "" {
		return nil, errors.New("model path required")
	}

	artifact, err := model.Load(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("model artifact: %w", err)
	}

	var classifier model.Classifier
	remoteCfg := cfg.RemoteModel
	remoteCfg.NumFeatures = artifact.Tables().FeatureDim
	remoteCfg.NumLabels = len(artifact.Labels())
	if remote, err := model.NewRemoteClassifier(remoteCfg); err == nil {
		classifier = remote
		logrus.WithField("base_url", cfg.RemoteModel.BaseURL).Info("remote model backend enabled")
	} else if !errors.Is(err, model.ErrRemoteDisabled) {
		return nil, fmt.Errorf("remote model: %w", err)
	}

	server := &Server{
		svc:            predict.NewService(artifact, classifier, cfg.Limits),
		notifier:       NewPredictionNotifier(),
		allowedOrigins: cfg.AllowedOrigins,
		modelPath:      cfg.ModelPath,
		limits:         cfg.Limits,
		historyOff:     cfg.DisableHistory,
	}

	if cfg.DisableHistory {
		logrus.Info("prediction history disabled via configuration")
	} else {
		if cfg.DBPath == "" {
			return nil, errors.New("db path required")
		}
		db, err := store.Open(cfg.DBPath, cfg.SilentDB)
		if err != nil {
			return nil, err
		}
		server.db = db
	}

	return server, nil
}

// Router configures gin routes.
func (s *Server) Router() (*gin.Engine, error) {
	r := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowCredentials = true
	if len(s.allowedOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = s.allowedOrigins
	}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	r.Use(cors.New(corsCfg))

	r.GET("/api/healthz", s.handleHealth)
	r.GET("/api/config", s.handleConfig)

	api := r.Group("/api")
	{
		api.POST("/predict", s.handlePredict)
		api.GET("/predict/stream", s.handlePredictStream)
		api.GET("/example", s.handleExample)
		api.GET("/predictions", s.handleHistory)
		api.GET("/export.csv", s.handleExportCSV)
	}

	return r, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Server) renderError(c *gin.Context, status int, err error) {
	payload := gin.H{"error": err.Error()}
	if typed := predict.AsError(err); typed != nil {
		payload["error_kind"] = string(typed.Kind)
		if typed.Field != "" {
			payload["field"] = typed.Field
		}
	}
	c.JSON(status, payload)
}
