package repository

import (
	"context"
	"time"

	"Datametry/internal/interfaces"
	"Datametry/internal/model"

	"gorm.io/gorm"
)

// ItemRepository 物品观测的关系库实现（items 表，只追加）
type ItemRepository struct {
	db *gorm.DB
}

// NewItemRepository 创建物品观测仓储
func NewItemRepository(db *gorm.DB) interfaces.ItemStore {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) SaveObservation(ctx context.Context, obs *model.ItemObservation) error {
	return r.db.WithContext(ctx).Create(obs).Error
}

func (r *ItemRepository) ListObservations(ctx context.Context, filter interfaces.ItemFilter) ([]*model.ItemObservation, error) {
	db := r.db.WithContext(ctx).Model(&model.ItemObservation{})
	if filter.Item != nil {
		db = db.Where("item = ?", *filter.Item)
	}
	if filter.Seller != nil {
		db = db.Where("seller = ?", *filter.Seller)
	}
	var rows []*model.ItemObservation
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *ItemRepository) DeleteObservationsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("items.timestamp < ?", cutoff).Delete(&model.ItemObservation{})
	return res.RowsAffected, res.Error
}
