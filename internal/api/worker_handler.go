package api

import (
	"net/http"

	"Datametry/internal/interfaces"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// workersStarted /start/ 成功时的固定回复
const workersStarted = "Боты запущены"

// WorkerHandler 机器人进程启动接口
type WorkerHandler struct {
	launcher interfaces.WorkerLauncher
	logger   *logrus.Logger
}

// NewWorkerHandler 创建 WorkerHandler
func NewWorkerHandler(launcher interfaces.WorkerLauncher, logger *logrus.Logger) *WorkerHandler {
	return &WorkerHandler{launcher: launcher, logger: logger}
}

// Start 启动所有配置的机器人
// GET /start/
func (h *WorkerHandler) Start(c *gin.Context) {
	runs, err := h.launcher.Launch(c.Request.Context())
	if err != nil {
		entry(c, h.logger).WithError(err).WithField("started", len(runs)).Error("启动机器人失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	entry(c, h.logger).WithField("started", len(runs)).Info("机器人已启动")
	c.JSON(http.StatusOK, workersStarted)
}
