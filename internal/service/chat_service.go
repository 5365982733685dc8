package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alberto-chat-go/internal/model"
	"alberto-chat-go/internal/tool"
	"alberto-chat-go/pkg/history"
	"alberto-chat-go/pkg/kafka"
	"alberto-chat-go/pkg/llm"
	"alberto-chat-go/pkg/log"
)

// AskRequest 是一次提问请求的完整输入。
type AskRequest struct {
	Question       string
	UserID         string
	ConversationID string
	CorrelatorID   string
}

// ChatService 定义了会话编排的接口。
type ChatService interface {
	// AskQuestion 执行一轮完整的问答编排，流式 token 写入 writer。
	// 开始流式输出之前的失败通过返回值上报；之后的失败只能截断流。
	AskQuestion(ctx context.Context, req AskRequest, writer llm.TokenWriter) error
}

type chatService struct {
	historyClient history.Client
	dispatcher    *tool.Dispatcher
	llmClient     llm.Client
	windowSize    int
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(historyClient history.Client, dispatcher *tool.Dispatcher, llmClient llm.Client, windowSize int) ChatService {
	if windowSize <= 0 {
		windowSize = 10
	}
	return &chatService{
		historyClient: historyClient,
		dispatcher:    dispatcher,
		llmClient:     llmClient,
		windowSize:    windowSize,
	}
}

// AskQuestion 的生命周期是严格线性的，任何一步失败都短路后续步骤：
// 取历史 → 调度工具 → 落库用户消息 → 渲染 prompt → 流式补全 → 落库助手回复。
func (s *chatService) AskQuestion(ctx context.Context, req AskRequest, writer llm.TokenWriter) error {
	// 1. 取最近的会话窗口，反转为时间正序作为上下文
	messages, err := s.historyClient.List(ctx, req.UserID, req.ConversationID, s.windowSize)
	if err != nil {
		return fmt.Errorf("获取会话历史失败: %w", err)
	}
	reverseMessages(messages)

	// 2. 用原始问题调度工具
	executedTools, err := s.dispatcher.Execute(ctx, req.Question)
	if err != nil {
		return fmt.Errorf("工具调度失败: %w", err)
	}

	// 3. 先把用户这轮落库。必须在请求模型之前持久化，失败就中止整个请求。
	if _, err := s.persistTurn(ctx, req, "user", req.Question); err != nil {
		return fmt.Errorf("持久化用户消息失败: %w", err)
	}

	// 4. 渲染 prompt
	prompt := BuildPrompt(req.Question, messages, executedTools)

	// 5. 流式补全：token 逐个转发给调用方，同时折叠进累加器
	interceptor := &tokenInterceptor{dst: writer, acc: &strings.Builder{}}
	streamErr := s.llmClient.StreamCompletion(ctx, prompt, interceptor)

	// 6. 流结束后把完整回复落库。即使客户端中途断开（流被取消），已生成的
	// 部分也要写入，保证记录与用户实际收到的内容一致，所以用后台上下文。
	fullAnswer := interceptor.acc.String()
	var persistErr error
	if fullAnswer != "" {
		persistCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, persistErr = s.persistTurn(persistCtx, req, "assistant", fullAnswer); persistErr != nil {
			// 客户端已经收完了流，这个失败无法再转成请求错误，只能留痕
			log.Errorw("持久化助手回复失败，回复已发送无法回滚",
				"conversationID", req.ConversationID,
				"correlatorID", req.CorrelatorID,
				"error", persistErr,
			)
		}
	}

	s.publishTurnEvent(req, len(executedTools), persistErr)

	if streamErr != nil {
		return fmt.Errorf("流式补全失败: %w", streamErr)
	}
	return nil
}

// persistTurn 向历史服务写入一条消息记录。
func (s *chatService) persistTurn(ctx context.Context, req AskRequest, senderName, content string) (model.Message, error) {
	return s.historyClient.Create(ctx, model.Message{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		SenderName:     senderName,
		Content:        content,
		CorrelatorID:   req.CorrelatorID,
	})
}

// publishTurnEvent 上报本轮对话的结果事件，失败只记日志。
func (s *chatService) publishTurnEvent(req AskRequest, toolsExecuted int, persistErr error) {
	ev := kafka.TurnEvent{
		CorrelatorID:       req.CorrelatorID,
		ConversationID:     req.ConversationID,
		UserID:             req.UserID,
		ToolsExecuted:      toolsExecuted,
		AssistantPersisted: persistErr == nil,
		Timestamp:          time.Now().UTC(),
	}
	if persistErr != nil {
		ev.Error = persistErr.Error()
	}
	if err := kafka.ProduceTurnEvent(ev); err != nil {
		log.Errorf("上报对话轮次事件失败: %v", err)
	}
}

// reverseMessages 把历史服务返回的降序记录原地反转为时间正序。
func reverseMessages(messages []model.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}

// tokenInterceptor 把同一个 token 流同时转发给下游 writer 和累加器。
// 下游写失败（通常是客户端断开）后停止转发但继续累加，让上游把流排空，
// 以便落库的回复尽可能完整。
type tokenInterceptor struct {
	dst     llm.TokenWriter
	acc     *strings.Builder
	dropped bool
}

// WriteToken 满足 llm.TokenWriter 接口。
func (w *tokenInterceptor) WriteToken(token []byte) error {
	w.acc.Write(token)
	if w.dropped {
		return nil
	}
	if err := w.dst.WriteToken(token); err != nil {
		log.Warnf("向客户端转发 token 失败，停止下发: %v", err)
		w.dropped = true
	}
	return nil
}
