package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the GORM DB handle and exposes repository helpers.
type Database struct {
	gorm *gorm.DB
	mu   sync.Mutex
}

// Open initializes the SQLite-backed database at the provided path.
func Open(path string, silent bool) (*Database, error) {
	cfg := &gorm.Config{}
	if silent {
		cfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(sqlite.Open(path), cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&Prediction{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec("PRAGMA journal_mode=WAL").Error; err != nil {
		logrus.WithError(err).Warn("enable WAL mode")
	}
	if err := db.Exec("PRAGMA synchronous=NORMAL").Error; err != nil {
		logrus.WithError(err).Warn("set synchronous pragma")
	}
	return &Database{gorm: db}, nil
}

// GORM exposes the raw gorm.DB handle.
func (d *Database) GORM() *gorm.DB {
	return d.gorm
}

// Close closes the underlying database connection.
func (d *Database) Close() error {
	if d == nil {
		return nil
	}
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SavePrediction appends a served prediction to the history.
func (d *Database) SavePrediction(prediction *Prediction) error {
	if prediction == nil {
		return errors.New("prediction is nil")
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.gorm.Create(prediction).Error
}

// PredictionQuery filters and paginates the prediction history.
type PredictionQuery struct {
	Country       string
	Variety       string
	MinConfidence float64
	Offset        int
	Limit         int
}

// ListPredictions returns history rows matching the query, newest first,
// along with the total matching count. A Limit below zero disables paging.
func (d *Database) ListPredictions(query PredictionQuery) ([]Prediction, int64, error) {
	tx := d.gorm.Model(&Prediction{})
	if country := strings.TrimSpace(query.Country); country != "" {
		tx = tx.Where("predicted_country = ?", country)
	}
	if variety := strings.TrimSpace(query.Variety); variety != "" {
		tx = tx.Where("variety = ?", variety)
	}
	if query.MinConfidence > 0 {
		tx = tx.Where("confidence >= ?", query.MinConfidence)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	tx = tx.Order("created_at DESC, id DESC")
	if query.Offset > 0 {
		tx = tx.Offset(query.Offset)
	}
	if query.Limit >= 0 {
		limit := query.Limit
		if limit == 0 {
			limit = 100
		}
		tx = tx.Limit(limit)
	}

	var rows []Prediction
	if err := tx.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountPredictions returns the number of stored predictions.
func (d *Database) CountPredictions() (int64, error) {
	var total int64
	err := d.gorm.Model(&Prediction{}).Count(&total).Error
	return total, err
}
