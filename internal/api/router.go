package api

import (
	"Datametry/internal/config"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handlers 路由依赖的全部处理器
type Handlers struct {
	Message *MessageHandler
	Item    *ItemHandler
	Worker  *WorkerHandler
	Health  *HealthHandler
}

// NewRouter 注册所有路由；server.pprof 开启时挂载 /debug/pprof
func NewRouter(cfg config.ServerConfig, h Handlers, logger *logrus.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger(logger))

	if cfg.Pprof {
		// 注册ppof 方便调试和监测性能问题
		pprof.Register(r)
	}

	r.POST("/message/", h.Message.SaveMessage)
	r.POST("/search/", h.Message.SearchMessages)

	r.POST("/item/", h.Item.RecordItem)
	r.GET("/item/", h.Item.ListItems)
	r.POST("/results/", h.Item.UpsertResults)
	r.GET("/items/", h.Item.ListAggregates)

	r.GET("/start/", h.Worker.Start)
	r.GET("/healthz", h.Health.Healthz)
	return r
}
