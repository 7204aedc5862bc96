package storage

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/saraphi-hospital/infocms/storage/model"
)

// AuditStorage implements model.AuditStore using GORM. It only inserts and
// reads.
type AuditStorage struct {
	db *gorm.DB
}

// Append inserts a new entry
func (s *AuditStorage) Append(entry *model.AuditLog) error {
	if entry == nil {
		return errors.New("audit: nil entry")
	}
	if err := s.db.Create(entry).Error; err != nil {
		return errors.Wrap(err, "audit: append failed")
	}
	return nil
}

// List returns entries newest first together with the total count matching the query
func (s *AuditStorage) List(q model.AuditQuery) ([]model.AuditLog, int64, error) {
	tx := s.db.Model(&model.AuditLog{})
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	if q.Entity != "" {
		tx = tx.Where("entity = ?", q.Entity)
	}
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "audit: count failed")
	}
	var entries []model.AuditLog
	err := tx.Order("timestamp desc").
		Limit(clampLimit(q.Limit, 100, 1000)).
		Offset(max(q.Offset, 0)).
		Find(&entries).Error
	if err != nil {
		return nil, 0, errors.Wrap(err, "audit: list failed")
	}
	return entries, total, nil
}
