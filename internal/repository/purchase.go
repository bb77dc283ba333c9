package repository

import (
	"context"
	"storefront-downloads/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	// Append stores the record unless one already exists for the same
	// checkout session; created reports whether a row was written.
	Append(ctx context.Context, record *model.PurchaseRecord) (created bool, err error)
	List(ctx context.Context) ([]*model.PurchaseRecord, error)
	FindBySessionID(ctx context.Context, sessionID string) (*model.PurchaseRecord, error)
}

type purchaseRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepoImpl{
		db: db,
	}
}

func (r *purchaseRepoImpl) Append(ctx context.Context, record *model.PurchaseRecord) (bool, error) {
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}},
		DoNothing: true,
	}).Create(record)

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *purchaseRepoImpl) List(ctx context.Context) ([]*model.PurchaseRecord, error) {
	records := make([]*model.PurchaseRecord, 0)

	err := r.db.WithContext(ctx).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *purchaseRepoImpl) FindBySessionID(ctx context.Context, sessionID string) (*model.PurchaseRecord, error) {
	var record model.PurchaseRecord
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&record).Error

	if err != nil {
		return nil, err
	}

	return &record, nil
}
