// Package pgstore 物品观测的 PostgreSQL 后端（items 表）
package pgstore

import (
	"errors"

	"Datametry/internal/adapter"
	"Datametry/internal/config"
	"Datametry/internal/interfaces"
	"Datametry/internal/repository"
)

func init() {
	adapter.Register(config.ItemBackendPostgres, New)
}

// New 基于已打开的 gorm 连接创建存储
func New(deps adapter.Deps) (interfaces.ItemStore, error) {
	if deps.DB == nil {
		return nil, errors.New("postgres 后端需要数据库连接")
	}
	return repository.NewItemRepository(deps.DB), nil
}
