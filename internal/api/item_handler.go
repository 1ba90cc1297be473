package api

import (
	"encoding/json"
	"net/http"

	"Datametry/internal/interfaces"
	"Datametry/internal/repository"
	"Datametry/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ItemHandler 物品观测与聚合快照接口
type ItemHandler struct {
	items      *service.ItemService
	aggregates *service.AggregateService
	logger     *logrus.Logger
}

// NewItemHandler 创建 ItemHandler
func NewItemHandler(items *service.ItemService, aggregates *service.AggregateService, logger *logrus.Logger) *ItemHandler {
	return &ItemHandler{
		items:      items,
		aggregates: aggregates,
		logger:     logger,
	}
}

// optionalQuery 缺省或空值返回 nil
func optionalQuery(c *gin.Context, key string) *string {
	if v := c.Query(key); v != "" {
		return &v
	}
	return nil
}

// RecordItem 追加一条物品观测
// POST /item/ {"item": "...", "count": 1, "price": 100, "seller": "...", "name": "...", "rname": "..."}
func (h *ItemHandler) RecordItem(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": http.StatusBadRequest})
		return
	}
	var req service.ItemRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		entry(c, h.logger).WithError(err).Warn("物品观测请求体无效")
		c.JSON(http.StatusOK, gin.H{"status": http.StatusBadRequest})
		return
	}
	if _, err := h.items.Record(c.Request.Context(), req, raw); err != nil {
		entry(c, h.logger).WithError(err).Error("保存物品观测失败")
		c.JSON(http.StatusOK, gin.H{"status": http.StatusBadRequest})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK})
}

// ListItems 列出物品观测
// GET /item/?item=...&seller=...
func (h *ItemHandler) ListItems(c *gin.Context) {
	rows, err := h.items.List(c.Request.Context(), interfaces.ItemFilter{
		Item:   optionalQuery(c, "item"),
		Seller: optionalQuery(c, "seller"),
	})
	if err != nil {
		entry(c, h.logger).WithError(err).Error("查询物品观测失败")
		c.JSON(http.StatusOK, gin.H{"status": http.StatusTooManyRequests})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "data": rows})
}

// UpsertResults 整批写入聚合快照
// POST /results/ [{"item": "...", "median": 1, "allCount": 1, "midPrice": 1, "TheMostPrice": 1, "TheMostSeller": "..."}]
func (h *ItemHandler) UpsertResults(c *gin.Context) {
	var reqs []service.ResultsRequest
	if err := c.ShouldBindJSON(&reqs); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "detail": err.Error()})
		return
	}
	if err := h.aggregates.UpsertBatch(c.Request.Context(), reqs); err != nil {
		entry(c, h.logger).WithError(err).WithField("count", len(reqs)).Error("写入聚合快照失败，整批回滚")
		c.JSON(http.StatusOK, gin.H{"status": "error", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// ListAggregates 按物品名/卖家列出聚合快照
// GET /items/?item=...&seller=...
func (h *ItemHandler) ListAggregates(c *gin.Context) {
	rows, err := h.aggregates.List(c.Request.Context(), repository.AggregateFilter{
		Item:   optionalQuery(c, "item"),
		Seller: optionalQuery(c, "seller"),
	})
	if err != nil {
		entry(c, h.logger).WithError(err).Error("查询聚合快照失败")
		c.JSON(http.StatusOK, gin.H{"status": http.StatusInternalServerError, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": http.StatusOK, "data": rows})
}
