// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"alberto-chat-go/internal/model"
	"alberto-chat-go/internal/repository"
	"alberto-chat-go/internal/service"
	"alberto-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 负责处理 /historicos 下的所有 API 请求。
type HistoryHandler struct {
	historyService service.HistoryService
}

// NewHistoryHandler 创建一个新的 HistoryHandler 实例。
func NewHistoryHandler(historyService service.HistoryService) *HistoryHandler {
	return &HistoryHandler{historyService: historyService}
}

// parseFilter 从查询参数解析过滤条件。limit 必须是正整数，解析失败返回错误。
func parseFilter(c *gin.Context) (repository.HistoryFilter, error) {
	filter := repository.HistoryFilter{
		UserID:         c.Query("user_id"),
		ConversationID: c.Query("conversation_id"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || limit <= 0 {
			return filter, fmt.Errorf("limit 必须是正整数: %q", raw)
		}
		filter.Limit = limit
	}
	return filter, nil
}

// List 处理查询历史记录的请求，返回按 created_at 降序的记录数组。
func (h *HistoryHandler) List(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	messages, err := h.historyService.List(c.Request.Context(), filter)
	if err != nil {
		log.Errorf("查询历史记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

// createMessageRequest 定义了创建历史记录 API 的请求体结构。
// created_at 可选，缺省时由服务端补齐。
type createMessageRequest struct {
	ConversationID string    `json:"conversation_id" binding:"required"`
	UserID         string    `json:"user_id" binding:"required"`
	SenderName     string    `json:"sender_name" binding:"required"`
	Content        string    `json:"content" binding:"required"`
	CorrelatorID   string    `json:"correlator_id" binding:"required"`
	CreatedAt      time.Time `json:"created_at"`
}

// Create 处理写入一条历史记录的请求。
func (h *HistoryHandler) Create(c *gin.Context) {
	var req createMessageRequest
	// 绑定并验证 JSON 请求体，任何必填字段缺失都在触达存储层之前拒绝
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Create: 无效的请求负载, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	msg := &model.Message{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		SenderName:     req.SenderName,
		Content:        req.Content,
		CorrelatorID:   req.CorrelatorID,
		CreatedAt:      req.CreatedAt,
	}

	stored, err := h.historyService.Create(c.Request.Context(), msg)
	if err != nil {
		log.Errorf("写入历史记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	log.Infof("Created history with ID: %s", stored.ID)
	c.JSON(http.StatusOK, stored)
}

// Delete 处理按过滤条件批量删除的请求。匹配零条返回 404，绝不静默成功。
func (h *HistoryHandler) Delete(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	count, err := h.historyService.Delete(c.Request.Context(), filter)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Nenhum histórico encontrado para deletar"})
			return
		}
		log.Errorf("删除历史记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("%d histórico(s) deletado(s)", count)})
}

// Search 处理消息全文检索请求，检索未启用时返回 503。
func (h *HistoryHandler) Search(c *gin.Context) {
	queryText := c.Query("q")
	if queryText == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "查询参数 q 不能为空"})
		return
	}

	messages, err := h.historyService.Search(c.Request.Context(), queryText, c.Query("user_id"), c.Query("conversation_id"))
	if err != nil {
		if errors.Is(err, service.ErrSearchDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": "消息检索未启用"})
			return
		}
		log.Errorf("检索历史记录失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}
