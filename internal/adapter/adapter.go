// internal/adapter/adapter.go
package adapter

import (
	"fmt"
	"sort"
	"sync"

	"Datametry/internal/config"
	"Datametry/internal/interfaces"

	"github.com/gomodule/redigo/redis"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps 创建物品存储后端所需的依赖，未启用的连接为 nil
type Deps struct {
	DB     *gorm.DB
	Redis  *redis.Pool
	Config *config.Config
	Logger *logrus.Logger
}

// Factory 物品存储后端工厂函数签名
type Factory func(deps Deps) (interfaces.ItemStore, error)

// ========== 全局工厂函数注册表 ==========
var (
	factoryMu       sync.RWMutex
	factoryRegistry = make(map[string]Factory)
)

// Register 供后端包 init 函数调用，注册工厂函数
func Register(backend string, factory Factory) {
	if factory == nil {
		panic(fmt.Sprintf("后端%s的工厂函数不能为nil", backend))
	}
	factoryMu.Lock()
	defer factoryMu.Unlock()
	if _, exists := factoryRegistry[backend]; exists {
		logrus.Warnf("后端%s已注册，将覆盖原有实现", backend)
	}
	factoryRegistry[backend] = factory
}

// GetFactory 获取指定后端的工厂函数
func GetFactory(backend string) (Factory, bool) {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	factory, ok := factoryRegistry[backend]
	return factory, ok
}

// ListFactories 列出所有已注册的后端名（升序）
func ListFactories() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()
	backends := make([]string, 0, len(factoryRegistry))
	for b := range factoryRegistry {
		backends = append(backends, b)
	}
	sort.Strings(backends)
	return backends
}
