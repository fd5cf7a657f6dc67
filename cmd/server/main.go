package main

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"wine-origin-predictor/backend/internal/api"
	"wine-origin-predictor/backend/internal/model"
	"wine-origin-predictor/backend/internal/schema"
)

func main() {
	baseDir, err := os.Getwd()
	if err != nil {
		logrus.Fatalf("determine working directory: %v", err)
	}

	dataDir := filepath.Join(baseDir, "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		logrus.Fatalf("create data directory: %v", err)
	}

	modelPath := filepath.Join(baseDir, "models", "wine_origin.json")
	if override := strings.TrimSpace(os.Getenv("WINE_MODEL_PATH")); override != "" {
		modelPath = override
	}

	limits := schema.DefaultLimits()
	if v := strings.TrimSpace(os.Getenv("WINE_MAX_DESCRIPTION")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limits.MaxDescription = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("WINE_POINTS_MIN")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limits.MinPoints = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("WINE_POINTS_MAX")); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limits.MaxPoints = parsed
		}
	}
	if v := strings.TrimSpace(os.Getenv("WINE_MAX_PRICE")); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			limits.MaxPrice = parsed
		}
	}

	remoteCfg := model.RemoteConfig{
		BaseURL: strings.TrimSpace(os.Getenv("WINE_REMOTE_MODEL_URL")),
	}
	if v := strings.TrimSpace(os.Getenv("WINE_REMOTE_MODEL_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			remoteCfg.Timeout = d
		}
	}

	allowedOrigins := []string{
		"http://localhost:3000",
		"http://127.0.0.1:3000",
	}
	if v := strings.TrimSpace(os.Getenv("WINE_ALLOWED_ORIGINS")); v != "" {
		allowedOrigins = allowedOrigins[:0]
		for _, origin := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	cfg := api.Config{
		ModelPath:      modelPath,
		DBPath:         filepath.Join(dataDir, "predictions.db"),
		AllowedOrigins: allowedOrigins,
		Limits:         limits,
		RemoteModel:    remoteCfg,
		DisableHistory: strings.EqualFold(strings.TrimSpace(os.Getenv("WINE_DISABLE_HISTORY")), "true"),
	}

	if override := strings.TrimSpace(os.Getenv("WINE_DB_PATH")); override != "" {
		cfg.DBPath = override
	}

	server, err := api.NewServer(cfg)
	if err != nil {
		logrus.Fatalf("create server: %v", err)
	}

	router, err := server.Router()
	if err != nil {
		logrus.Fatalf("configure router: %v", err)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	logrus.Infof("starting wine-origin-predictor backend on :%s", port)
	if err := router.Run(":" + port); err != nil {
		logrus.Fatalf("server exited: %v", err)
	}
}
