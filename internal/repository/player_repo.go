package repository

import (
	"context"
	"fmt"

	"Datametry/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerRepository 玩家仓储，nickname 唯一
type PlayerRepository interface {
	// UpsertPlayer 按 nickname 插入或更新 privilege/clan/suffix，返回玩家ID（更新时ID不变）
	UpsertPlayer(ctx context.Context, player *model.Player) (uint64, error)
	// GetPlayerByNickname 通过昵称获取玩家
	GetPlayerByNickname(ctx context.Context, nickname string) (*model.Player, error)
	// PrunePlayersWithoutMessages 删除已没有任何消息的玩家；并发写入了新消息的玩家不会被删除
	PrunePlayersWithoutMessages(ctx context.Context) (int64, error)
}

type playerRepository struct {
	db *gorm.DB
}

// NewPlayerRepository 创建玩家仓储；db 可以是事务
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) UpsertPlayer(ctx context.Context, player *model.Player) (uint64, error) {
	db := r.db.WithContext(ctx)
	if player.Nickname == nil {
		// NULL 不触发唯一冲突，匿名玩家直接插入
		if err := db.Create(player).Error; err != nil {
			return 0, err
		}
		return player.ID, nil
	}

	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "nickname"}},
		DoUpdates: clause.AssignmentColumns([]string{"privilege", "clan", "suffix"}),
	}).Create(player).Error; err != nil {
		return 0, err
	}

	// 冲突更新时部分驱动回填的自增ID不可靠，按昵称回查
	var id uint64
	if err := db.Model(&model.Player{}).Where("nickname = ?", *player.Nickname).Select("id").Scan(&id).Error; err != nil {
		return 0, err
	}
	if id == 0 {
		return 0, fmt.Errorf("玩家%s写入后未查到ID", *player.Nickname)
	}
	player.ID = id
	return id, nil
}

func (r *playerRepository) GetPlayerByNickname(ctx context.Context, nickname string) (*model.Player, error) {
	var p model.Player
	if err := r.db.WithContext(ctx).Where("nickname = ?", nickname).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// pruneBatchSize 每条 DELETE 携带的玩家ID上限
const pruneBatchSize = 1000

// withoutMessages 玩家没有任何消息的条件子查询
func withoutMessages(db *gorm.DB) *gorm.DB {
	return db.Session(&gorm.Session{NewDB: true}).
		Model(&model.Message{}).
		Select("1").
		Where("messages.player_id = players.id")
}

// PrunePlayersWithoutMessages 先锁定候选玩家行，再用新语句复查后删除。
// 与并发 SaveMessage 的玩家 upsert 互斥：加锁前已提交的消息在复查中可见，加锁后的写入等待本事务结束
func (r *playerRepository) PrunePlayersWithoutMessages(ctx context.Context) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		candidates := tx.Model(&model.Player{}).Where("NOT EXISTS (?)", withoutMessages(tx))
		if tx.Dialector.Name() == "postgres" {
			candidates = candidates.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var ids []uint64
		if err := candidates.Pluck("id", &ids).Error; err != nil {
			return fmt.Errorf("查询孤立玩家失败: %w", err)
		}

		for start := 0; start < len(ids); start += pruneBatchSize {
			end := min(start+pruneBatchSize, len(ids))
			res := tx.Where("id IN ?", ids[start:end]).
				Where("NOT EXISTS (?)", withoutMessages(tx)).
				Delete(&model.Player{})
			if res.Error != nil {
				return fmt.Errorf("删除孤立玩家失败: %w", res.Error)
			}
			deleted += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
