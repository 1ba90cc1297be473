package api

import (
	"errors"
	"net/http"

	"Datametry/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const invalidMessageFormat = "Invalid message format. Expected " + service.Delimiter + " separator."

// MessageHandler 聊天消息写入与搜索接口
type MessageHandler struct {
	messages *service.MessageService
	search   *service.SearchService
	logger   *logrus.Logger
}

// NewMessageHandler 创建 MessageHandler
func NewMessageHandler(messages *service.MessageService, search *service.SearchService, logger *logrus.Logger) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		search:   search,
		logger:   logger,
	}
}

type messageRequest struct {
	Text string `json:"text"`
}

// SaveMessage 保存一行聊天
// POST /message/ {"text": "<clan> [priv] nick ⇨ body"}
func (h *MessageHandler) SaveMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "error", "msg": err.Error()})
		return
	}

	body, err := h.messages.Ingest(c.Request.Context(), req.Text)
	switch {
	case errors.Is(err, service.ErrMissingDelimiter):
		c.JSON(http.StatusOK, gin.H{"status": "error", "msg": invalidMessageFormat})
		return
	case err != nil:
		entry(c, h.logger).WithError(err).Error("保存消息失败")
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "msg": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "msg": body})
}

// SearchMessages 按子串搜索近期消息
// POST /search/ {"search_term": "...", "seconds": 3600, "nickname": "..."}
func (h *MessageHandler) SearchMessages(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, gin.H{"error": err.Error()})
		return
	}

	result, err := h.search.Search(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrSearchTermTooLong):
		c.JSON(http.StatusOK, gin.H{"error": "Search term too long"})
		return
	case errors.Is(err, service.ErrNegativeSeconds):
		c.JSON(http.StatusOK, gin.H{"error": "Seconds must not be negative"})
		return
	case err != nil:
		entry(c, h.logger).WithError(err).Error("搜索消息失败")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}
