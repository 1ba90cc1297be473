package interfaces

import (
	"context"
	"time"

	"Datametry/internal/model"
)

// ItemFilter 物品观测筛选条件，nil 表示不过滤
type ItemFilter struct {
	Item   *string
	Seller *string
}

// Match 判断观测是否满足筛选条件（供无法下推查询的存储使用）
func (f ItemFilter) Match(obs *model.ItemObservation) bool {
	if f.Item != nil && (obs.Item == nil || *obs.Item != *f.Item) {
		return false
	}
	if f.Seller != nil && (obs.Seller == nil || *obs.Seller != *f.Seller) {
		return false
	}
	return true
}

// ItemStore 物品观测存储，postgres 与 redis 两种后端实现
type ItemStore interface {
	// SaveObservation 追加一条观测
	SaveObservation(ctx context.Context, obs *model.ItemObservation) error
	// ListObservations 按条件列出观测，不保证顺序
	ListObservations(ctx context.Context, filter ItemFilter) ([]*model.ItemObservation, error)
	// DeleteObservationsBefore 删除早于 cutoff 的观测，返回删除条数
	DeleteObservationsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
