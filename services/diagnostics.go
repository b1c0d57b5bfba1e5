package services

import (
	"context"
	"fmt"

	"github.com/Govind-619/Esdukas/models"
	"gorm.io/gorm"
)

// GormDiagnosticStore persists diagnostic entries
type GormDiagnosticStore struct {
	db *gorm.DB
}

func NewDiagnosticStore(db *gorm.DB) *GormDiagnosticStore {
	return &GormDiagnosticStore{db: db}
}

// WriteDiagnostic implements utils.DiagnosticWriter
func (s *GormDiagnosticStore) WriteDiagnostic(ctx context.Context, entry *models.DiagnosticLog) error {
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("write diagnostic: %w", err)
	}
	return nil
}

// Recent returns the newest entries of the given type, or of any type when
// logType is empty.
func (s *GormDiagnosticStore) Recent(ctx context.Context, logType string, limit int) ([]models.DiagnosticLog, error) {
	entries, _, err := s.Page(ctx, logType, 0, limit)
	return entries, err
}

// Page returns one page of entries, newest first, and the total count.
func (s *GormDiagnosticStore) Page(ctx context.Context, logType string, offset, limit int) ([]models.DiagnosticLog, int64, error) {
	filtered := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.DiagnosticLog{})
		if logType != "" {
			query = query.Where("type = ?", logType)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count diagnostics: %w", err)
	}

	var entries []models.DiagnosticLog
	query := filtered().Order("created_at DESC").Order("id DESC").Offset(offset)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&entries).Error; err != nil {
		return nil, 0, fmt.Errorf("list diagnostics: %w", err)
	}
	return entries, total, nil
}
