package model

import "time"

// Player 聊天中出现过的玩家，nickname 为自然唯一键
// 前缀解析失败时 nickname 为 NULL，此类匿名玩家每条消息单独一行
type Player struct {
	ID        uint64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Nickname  *string `gorm:"column:nickname;type:text;uniqueIndex" json:"nickname"` // 昵称
	Privilege *string `gorm:"column:privilege;type:text" json:"privilege"`           // 权限标签，如 [Admin] / {VIP}
	Clan      *string `gorm:"column:clan;type:text" json:"clan"`                     // 公会标签，如 <Clan>
	Suffix    *string `gorm:"column:suffix;type:text" json:"suffix"`                 // 昵称后的附加文本
}

func (Player) TableName() string { return "players" }

// Message 聊天消息，创建后不可变，超过保留期由清理任务删除
type Message struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	PlayerID  uint64    `gorm:"column:player_id;not null;index" json:"player_id"`
	Player    *Player   `gorm:"foreignKey:PlayerID;constraint:OnDelete:CASCADE" json:"-"`
	Text      string    `gorm:"column:message;type:text;not null" json:"message"`
	Timestamp time.Time `gorm:"column:timestamp;not null;index" json:"timestamp"`
}

func (Message) TableName() string { return "messages" }
