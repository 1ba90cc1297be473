package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"Datametry/internal/model"

	"gorm.io/gorm"
)

// MessageFilter 消息搜索条件
type MessageFilter struct {
	Since    time.Time // 只返回该时间之后（含）的消息
	Term     string    // 子串，大小写不敏感，为空时不过滤
	Nickname *string   // 可选：精确匹配玩家昵称
}

// MessageView 搜索结果视图，避免在 service 中依赖 gorm 标签
type MessageView struct {
	Timestamp time.Time
	Nickname  *string
	Text      string
}

// MessageRepository 聊天消息仓储
type MessageRepository interface {
	// SaveMessage 在同一事务内 upsert 玩家并写入消息
	SaveMessage(ctx context.Context, player *model.Player, text string, at time.Time) (*model.Message, error)
	// DeleteMessagesBefore 删除早于 cutoff 的消息，返回删除条数
	DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	// SearchMessages 按时间窗口、子串与昵称搜索，按时间升序
	SearchMessages(ctx context.Context, filter MessageFilter) ([]*MessageView, error)
}

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建消息仓储
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

func (r *messageRepository) SaveMessage(ctx context.Context, player *model.Player, text string, at time.Time) (*model.Message, error) {
	var msg *model.Message
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		playerID, err := NewPlayerRepository(tx).UpsertPlayer(ctx, player)
		if err != nil {
			return fmt.Errorf("保存玩家失败: %w", err)
		}
		msg = &model.Message{
			PlayerID:  playerID,
			Text:      text,
			Timestamp: at,
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("保存消息失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *messageRepository) DeleteMessagesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("messages.timestamp < ?", cutoff).Delete(&model.Message{})
	return res.RowsAffected, res.Error
}

func (r *messageRepository) SearchMessages(ctx context.Context, filter MessageFilter) ([]*MessageView, error) {
	db := r.db.WithContext(ctx).
		Table("messages").
		Select("messages.timestamp AS timestamp, players.nickname AS nickname, messages.message AS text").
		Joins("JOIN players ON players.id = messages.player_id").
		Where("messages.timestamp >= ?", filter.Since)

	if filter.Nickname != nil {
		db = db.Where("players.nickname = ?", *filter.Nickname)
	}
	if filter.Term != "" {
		pattern := "%" + escapeLike(strings.ToLower(filter.Term)) + "%"
		db = db.Where(`LOWER(messages.message) LIKE ? ESCAPE '\'`, pattern)
	}

	var views []*MessageView
	if err := db.Order("messages.timestamp ASC").Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike 转义 LIKE 通配符，使搜索词按字面匹配
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
