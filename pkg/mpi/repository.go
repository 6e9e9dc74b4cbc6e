package mpi

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecordStore is the narrow authoritative-store contract the service and the
// reconciliation job depend on. Tests substitute in-memory fakes.
type RecordStore interface {
	FindByID(ctx context.Context, id string) (*PatientRecord, error)
	FindFlagged(ctx context.Context) ([]PatientRecord, error)
	Save(ctx context.Context, record *PatientRecord) error
	Delete(ctx context.Context, id string) error
}

// Repository is the gorm-backed RecordStore.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) AutoMigrate() error {
	return r.db.AutoMigrate(&PatientRecord{})
}

func (r *Repository) FindByID(ctx context.Context, id string) (*PatientRecord, error) {
	var record PatientRecord
	result := r.db.WithContext(ctx).First(&record, "id = ?", id)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if result.Error != nil {
		return nil, result.Error
	}
	return &record, nil
}

// FindFlagged returns the records awaiting reconciliation. The flag is the
// queue: there is no separate task entity.
func (r *Repository) FindFlagged(ctx context.Context) ([]PatientRecord, error) {
	var records []PatientRecord
	result := r.db.WithContext(ctx).
		Where("reportar_error = ?", true).
		Order("updated_at ASC").
		Find(&records)
	return records, result.Error
}

func (r *Repository) Save(ctx context.Context, record *PatientRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&PatientRecord{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
