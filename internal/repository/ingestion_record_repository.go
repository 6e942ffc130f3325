package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ragdesk/internal/model"
)

type IngestionRecordRepository struct {
	db *gorm.DB
}

func NewIngestionRecordRepository(db *gorm.DB) *IngestionRecordRepository {
	return &IngestionRecordRepository{db: db}
}

// Create stores the record. Redelivered events with a known EventID are
// ignored.
func (r *IngestionRecordRepository) Create(ctx context.Context, record *model.IngestionRecord) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(record).Error
	if err != nil {
		return fmt.Errorf("create ingestion record failed: %w", err)
	}
	return nil
}

func (r *IngestionRecordRepository) ListRecent(ctx context.Context, limit int) ([]model.IngestionRecord, error) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}

	var records []model.IngestionRecord
	if err := r.db.WithContext(ctx).Order("occurred_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list ingestion records failed: %w", err)
	}
	return records, nil
}
