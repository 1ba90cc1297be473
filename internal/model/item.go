package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrInvalidAggregate 聚合快照校验失败
var ErrInvalidAggregate = errors.New("invalid aggregate")

// ItemObservation 拍卖行单条物品观测，只追加不修改
type ItemObservation struct {
	ID        uint64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Timestamp time.Time      `gorm:"column:timestamp;not null;index" json:"timestamp"`
	Item      *string        `gorm:"column:item;type:text;index" json:"item"`
	Count     *int64         `gorm:"column:count" json:"count"`
	Price     *float64       `gorm:"column:price" json:"price"`
	Seller    *string        `gorm:"column:seller;type:text" json:"seller"`
	Name      *string        `gorm:"column:name;type:text" json:"name"`   // 展示名
	RName     *string        `gorm:"column:rname;type:text" json:"rname"` // 本地化展示名
	Raw       datatypes.JSON `gorm:"column:raw" json:"raw,omitempty"`     // 原始请求体
}

func (ItemObservation) TableName() string { return "items" }

// ItemAggregate 外部聚合任务算出的单物品统计快照，item 唯一，新快照覆盖旧快照
type ItemAggregate struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Timestamp     time.Time `gorm:"column:timestamp;not null" json:"timestamp"`
	Item          string    `gorm:"column:item;type:text;uniqueIndex;not null" json:"item"`
	Median        int64     `gorm:"column:median" json:"median"`
	AllCount      int64     `gorm:"column:all_count" json:"allCount"`
	MidPrice      int64     `gorm:"column:mid_price" json:"midPrice"`
	TheMostPrice  int64     `gorm:"column:the_most_price" json:"TheMostPrice"`
	TheMostSeller string    `gorm:"column:the_most_seller;type:text" json:"TheMostSeller"`
}

func (ItemAggregate) TableName() string { return "formatted_items" }

// Validate 校验快照字段
func (a *ItemAggregate) Validate() error {
	if strings.TrimSpace(a.Item) == "" {
		return fmt.Errorf("%w: item is required", ErrInvalidAggregate)
	}
	if a.Median < 0 || a.AllCount < 0 || a.MidPrice < 0 || a.TheMostPrice < 0 {
		return fmt.Errorf("%w: negative value for item %q", ErrInvalidAggregate, a.Item)
	}
	return nil
}

// BeforeSave 写入前校验，失败时所在事务整体回滚
func (a *ItemAggregate) BeforeSave(tx *gorm.DB) error {
	return a.Validate()
}
