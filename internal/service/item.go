package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Datametry/internal/interfaces"
	"Datametry/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// ItemRequest 机器人上报的单条拍卖行观测，字段均可缺省
type ItemRequest struct {
	Item   *string  `json:"item"`
	Count  *int64   `json:"count"`
	Price  *float64 `json:"price"`
	Seller *string  `json:"seller"`
	Name   *string  `json:"name"`
	RName  *string  `json:"rname"`
}

// ItemService 物品观测写入与查询
type ItemService struct {
	store  interfaces.ItemStore
	logger *logrus.Logger
	now    func() time.Time
}

// NewItemService 创建 ItemService
func NewItemService(store interfaces.ItemStore, logger *logrus.Logger) *ItemService {
	return &ItemService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// Record 以当前 UTC 时间追加一条观测；raw 为原始请求体，合法 JSON 时随观测保存
func (s *ItemService) Record(ctx context.Context, req ItemRequest, raw []byte) (*model.ItemObservation, error) {
	obs := &model.ItemObservation{
		Timestamp: s.now().UTC(),
		Item:      req.Item,
		Count:     req.Count,
		Price:     req.Price,
		Seller:    req.Seller,
		Name:      req.Name,
		RName:     req.RName,
	}
	if len(raw) > 0 && json.Valid(raw) {
		obs.Raw = datatypes.JSON(raw)
	}
	if err := s.store.SaveObservation(ctx, obs); err != nil {
		return nil, fmt.Errorf("保存物品观测失败: %w", err)
	}
	return obs, nil
}

// List 按物品名/卖家筛选观测
func (s *ItemService) List(ctx context.Context, filter interfaces.ItemFilter) ([]*model.ItemObservation, error) {
	rows, err := s.store.ListObservations(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("查询物品观测失败: %w", err)
	}
	return rows, nil
}
