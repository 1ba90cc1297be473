package adapter

import (
	"errors"
	"fmt"

	"Datametry/internal/interfaces"

	"github.com/sirupsen/logrus"
)

// NewItemStore 按 items.backend 从工厂注册表创建物品存储后端
func NewItemStore(deps Deps) (interfaces.ItemStore, error) {
	if deps.Config == nil {
		return nil, errors.New("创建物品存储失败: 缺少配置")
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	backend := deps.Config.Items.Backend
	registered := ListFactories()
	deps.Logger.WithFields(logrus.Fields{
		"backend":    backend,
		"registered": registered,
	}).Info("初始化物品存储后端")

	factory, ok := GetFactory(backend)
	if !ok {
		return nil, fmt.Errorf("物品存储后端%s未注册（已注册：%v）", backend, registered)
	}
	store, err := factory(deps)
	if err != nil {
		return nil, fmt.Errorf("创建物品存储后端%s失败: %w", backend, err)
	}
	if store == nil {
		return nil, fmt.Errorf("物品存储后端%s的工厂函数返回nil", backend)
	}
	return store, nil
}
