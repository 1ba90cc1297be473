package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"Datametry/internal/config"
	"Datametry/internal/interfaces"
	"Datametry/internal/repository"

	"github.com/sirupsen/logrus"
)

// SweepResult 一轮清理删除的行数
type SweepResult struct {
	Messages int64
	Players  int64
	Items    int64
}

// RetentionSweeper 周期性删除超出保留窗口的消息（以及可选的孤立玩家、过期物品观测）
type RetentionSweeper struct {
	messages repository.MessageRepository
	players  repository.PlayerRepository
	items    interfaces.ItemStore // 为 nil 时不清理物品观测
	cfg      config.RetentionConfig
	itemTTL  time.Duration
	logger   *logrus.Logger
	now      func() time.Time
}

// NewRetentionSweeper 创建清理任务；itemTTL<=0 表示物品观测永久保留
func NewRetentionSweeper(
	messages repository.MessageRepository,
	players repository.PlayerRepository,
	items interfaces.ItemStore,
	cfg config.RetentionConfig,
	itemTTL time.Duration,
	logger *logrus.Logger,
) *RetentionSweeper {
	return &RetentionSweeper{
		messages: messages,
		players:  players,
		items:    items,
		cfg:      cfg,
		itemTTL:  itemTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// Sweep 以 now 为基准执行一轮清理；各步骤互不影响，错误合并返回
func (s *RetentionSweeper) Sweep(ctx context.Context, now time.Time) (SweepResult, error) {
	var (
		res  SweepResult
		errs []error
		err  error
	)

	cutoff := now.UTC().Add(-s.cfg.Window)
	if res.Messages, err = s.messages.DeleteMessagesBefore(ctx, cutoff); err != nil {
		errs = append(errs, fmt.Errorf("删除过期消息失败: %w", err))
	}

	if s.cfg.PrunePlayers && s.players != nil {
		if res.Players, err = s.players.PrunePlayersWithoutMessages(ctx); err != nil {
			errs = append(errs, fmt.Errorf("删除孤立玩家失败: %w", err))
		}
	}

	if s.itemTTL > 0 && s.items != nil {
		if res.Items, err = s.items.DeleteObservationsBefore(ctx, now.UTC().Add(-s.itemTTL)); err != nil {
			errs = append(errs, fmt.Errorf("删除过期物品观测失败: %w", err))
		}
	}
	return res, errors.Join(errs...)
}

// Run 立即清理一次，之后每 interval 清理一次，直到 ctx 取消；单轮失败只记录日志
func (s *RetentionSweeper) Run(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"window":   s.cfg.Window,
		"interval": s.cfg.Interval,
	}).Info("消息清理任务启动")

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("消息清理任务退出")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *RetentionSweeper) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.WithField("panic", r).Error("消息清理发生panic")
		}
	}()

	res, err := s.Sweep(ctx, s.now())
	entry := s.logger.WithFields(logrus.Fields{
		"messages": res.Messages,
		"players":  res.Players,
		"items":    res.Items,
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		entry.WithError(err).Warn("消息清理失败")
		return
	}
	entry.Info("消息清理完成")
}
