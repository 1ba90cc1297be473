package repository

import (
	"context"
	"fmt"

	"Datametry/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AggregateFilter 聚合快照筛选条件
type AggregateFilter struct {
	Item   *string // 物品名
	Seller *string // 最高价卖家
}

// AggregateRepository 物品聚合快照仓储（formatted_items）
type AggregateRepository interface {
	// UpsertAggregates 整批在一个事务内按 item upsert，任一行失败整批回滚
	UpsertAggregates(ctx context.Context, rows []*model.ItemAggregate) error
	// ListAggregates 按条件列出快照，不保证顺序
	ListAggregates(ctx context.Context, filter AggregateFilter) ([]*model.ItemAggregate, error)
}

// aggregateUpdateColumns 冲突时整行覆盖的非键列
var aggregateUpdateColumns = []string{
	"timestamp", "median", "all_count", "mid_price", "the_most_price", "the_most_seller",
}

type aggregateRepository struct {
	db *gorm.DB
}

// NewAggregateRepository 创建聚合快照仓储
func NewAggregateRepository(db *gorm.DB) AggregateRepository {
	return &aggregateRepository{db: db}
}

func (r *aggregateRepository) UpsertAggregates(ctx context.Context, rows []*model.ItemAggregate) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, row := range rows {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "item"}},
				DoUpdates: clause.AssignmentColumns(aggregateUpdateColumns),
			}).Create(row).Error; err != nil {
				return fmt.Errorf("保存聚合快照失败: %w, item: %s", err, row.Item)
			}
		}
		return nil
	})
}

func (r *aggregateRepository) ListAggregates(ctx context.Context, filter AggregateFilter) ([]*model.ItemAggregate, error) {
	db := r.db.WithContext(ctx).Model(&model.ItemAggregate{})
	if filter.Item != nil {
		db = db.Where("item = ?", *filter.Item)
	}
	if filter.Seller != nil {
		db = db.Where("the_most_seller = ?", *filter.Seller)
	}
	var rows []*model.ItemAggregate
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
