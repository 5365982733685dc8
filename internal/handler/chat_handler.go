// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"alberto-chat-go/internal/middleware"
	"alberto-chat-go/internal/service"
	"alberto-chat-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理提问请求的两种传输形态：HTTP 流式响应和 WebSocket。
type ChatHandler struct {
	chatService service.ChatService
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// askQuestionRequest 定义了提问 API 的请求体结构。
type askQuestionRequest struct {
	Question       string `json:"question" binding:"required"`
	UserID         string `json:"user_id" binding:"required"`
	ConversationID string `json:"conversation_id" binding:"required"`
	CorrelatorID   string `json:"correlator_id" binding:"required"`
}

func (r *askQuestionRequest) toServiceRequest() service.AskRequest {
	return service.AskRequest{
		Question:       r.Question,
		UserID:         r.UserID,
		ConversationID: r.ConversationID,
		CorrelatorID:   r.CorrelatorID,
	}
}

// streamTokenWriter 把 token 直接写入 HTTP 响应并立即刷出，不做额外缓冲。
type streamTokenWriter struct {
	c     *gin.Context
	wrote bool
}

// WriteToken 满足 llm.TokenWriter 接口。
func (w *streamTokenWriter) WriteToken(token []byte) error {
	if len(token) == 0 {
		return nil
	}
	if _, err := w.c.Writer.Write(token); err != nil {
		return err
	}
	w.wrote = true
	w.c.Writer.Flush()
	return nil
}

// AskQuestion 处理一次提问，以 text/plain 流式返回模型的回答。
// 只有在还没有写出任何 token 之前的失败才能转成 500；
// 流已经开始后出错只能提前结束响应。
func (h *ChatHandler) AskQuestion(c *gin.Context) {
	var req askQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("AskQuestion: 无效的请求负载, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": err.Error()})
		return
	}

	c.Header("Content-Type", "text/plain; charset=utf-8")

	writer := &streamTokenWriter{c: c}
	err := h.chatService.AskQuestion(c.Request.Context(), req.toServiceRequest(), writer)
	if err != nil {
		log.Errorf("处理提问失败: correlator=%s, error: %v", req.CorrelatorID, err)
		if !writer.wrote {
			c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		}
		return
	}
}

// wsTokenWriter 把每个 token 作为一个文本帧写入 WebSocket 连接。
type wsTokenWriter struct {
	conn *websocket.Conn
}

func (w *wsTokenWriter) WriteToken(token []byte) error {
	return w.conn.WriteMessage(websocket.TextMessage, token)
}

// AskQuestionWS 处理 WebSocket 形态的提问：每个文本帧是一个与 HTTP 端点
// 相同结构的 JSON 请求，回答逐 token 下发，结束后发送 completion 通知帧。
func (h *ChatHandler) AskQuestionWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Infof("WebSocket 连接已建立: %s", c.ClientIP())

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		var req askQuestionRequest
		if err := json.Unmarshal(message, &req); err != nil {
			writeWSError(conn, "无效的请求负载: "+err.Error())
			continue
		}
		if req.Question == "" || req.UserID == "" || req.ConversationID == "" {
			writeWSError(conn, "question、user_id、conversation_id 不能为空")
			continue
		}
		if req.CorrelatorID == "" {
			req.CorrelatorID = c.GetString(middleware.CorrelatorKey)
		}

		writer := &wsTokenWriter{conn: conn}
		if err := h.chatService.AskQuestion(c.Request.Context(), req.toServiceRequest(), writer); err != nil {
			log.Errorf("处理 WebSocket 提问失败: correlator=%s, error: %v", req.CorrelatorID, err)
			writeWSError(conn, err.Error())
		}
		sendCompletion(conn)
	}
}

func writeWSError(conn *websocket.Conn, detail string) {
	payload, _ := json.Marshal(map[string]string{"error": detail})
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}

// sendCompletion 发送完成通知 JSON
func sendCompletion(conn *websocket.Conn) {
	notif := map[string]interface{}{
		"type":      "completion",
		"status":    "finished",
		"timestamp": time.Now().UnixMilli(),
	}
	payload, _ := json.Marshal(notif)
	_ = conn.WriteMessage(websocket.TextMessage, payload)
}
