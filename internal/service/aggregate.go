package service

import (
	"context"
	"fmt"
	"time"

	"Datametry/internal/model"
	"Datametry/internal/repository"

	"github.com/sirupsen/logrus"
)

// ResultsRequest 外部聚合任务提交的单物品快照，除 timestamp 外均为必填
type ResultsRequest struct {
	Timestamp     *time.Time `json:"timestamp"` // 缺省取当前时间
	Item          *string    `json:"item"`
	Median        *int64     `json:"median"`
	AllCount      *int64     `json:"allCount"`
	MidPrice      *int64     `json:"midPrice"`
	TheMostPrice  *int64     `json:"TheMostPrice"`
	TheMostSeller *string    `json:"TheMostSeller"`
}

// missingField 第一个缺失的必填字段（JSON 名），全部齐全时为空
func (r ResultsRequest) missingField() string {
	switch {
	case r.Item == nil:
		return "item"
	case r.Median == nil:
		return "median"
	case r.AllCount == nil:
		return "allCount"
	case r.MidPrice == nil:
		return "midPrice"
	case r.TheMostPrice == nil:
		return "TheMostPrice"
	case r.TheMostSeller == nil:
		return "TheMostSeller"
	}
	return ""
}

// AggregateService 聚合快照写入与查询
type AggregateService struct {
	repo   repository.AggregateRepository
	logger *logrus.Logger
	now    func() time.Time
}

// NewAggregateService 创建 AggregateService
func NewAggregateService(repo repository.AggregateRepository, logger *logrus.Logger) *AggregateService {
	return &AggregateService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// UpsertBatch 整批按 item 覆盖写入；任一行缺字段或写入失败时整批不生效
func (s *AggregateService) UpsertBatch(ctx context.Context, reqs []ResultsRequest) error {
	if len(reqs) == 0 {
		return nil
	}
	now := s.now().UTC()
	rows := make([]*model.ItemAggregate, 0, len(reqs))
	for i, r := range reqs {
		if field := r.missingField(); field != "" {
			return fmt.Errorf("%w: row %d missing %s", model.ErrInvalidAggregate, i, field)
		}
		ts := now
		if r.Timestamp != nil {
			ts = r.Timestamp.UTC()
		}
		rows = append(rows, &model.ItemAggregate{
			Timestamp:     ts,
			Item:          *r.Item,
			Median:        *r.Median,
			AllCount:      *r.AllCount,
			MidPrice:      *r.MidPrice,
			TheMostPrice:  *r.TheMostPrice,
			TheMostSeller: *r.TheMostSeller,
		})
	}
	if err := s.repo.UpsertAggregates(ctx, rows); err != nil {
		return err
	}
	s.logger.WithField("count", len(rows)).Debug("聚合快照已更新")
	return nil
}

// List 按物品名/最高价卖家筛选快照
func (s *AggregateService) List(ctx context.Context, filter repository.AggregateFilter) ([]*model.ItemAggregate, error) {
	return s.repo.ListAggregates(ctx, filter)
}
