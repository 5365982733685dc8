// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"fmt"

	"alberto-chat-go/internal/model"
	"alberto-chat-go/internal/repository"
	"alberto-chat-go/pkg/log"
)

// ErrNotFound 表示删除操作没有匹配到任何记录。
var ErrNotFound = errors.New("no history records matched the filter")

// ErrSearchDisabled 表示全文检索未启用。
var ErrSearchDisabled = errors.New("message search is not enabled")

// MessageIndex 定义了消息全文索引的操作，由 pkg/es 提供实现。
// 把接口放在消费方，测试时可以直接注入假实现。
type MessageIndex interface {
	IndexMessage(ctx context.Context, msg model.Message) error
	DeleteByFilter(ctx context.Context, userID, conversationID string) error
	SearchMessages(ctx context.Context, queryText, userID, conversationID string) ([]model.Message, error)
}

// HistoryService 定义了历史记录业务逻辑的接口。
type HistoryService interface {
	List(ctx context.Context, filter repository.HistoryFilter) ([]model.Message, error)
	Create(ctx context.Context, msg *model.Message) (*model.Message, error)
	Delete(ctx context.Context, filter repository.HistoryFilter) (int64, error)
	Search(ctx context.Context, queryText, userID, conversationID string) ([]model.Message, error)
}

type historyService struct {
	repo  repository.HistoryRepository
	index MessageIndex // 为 nil 时禁用全文检索
}

// NewHistoryService 创建一个新的 HistoryService。index 传 nil 时关闭检索能力。
func NewHistoryService(repo repository.HistoryRepository, index MessageIndex) HistoryService {
	return &historyService{repo: repo, index: index}
}

// List 按过滤条件返回记录，created_at 降序。
func (s *historyService) List(ctx context.Context, filter repository.HistoryFilter) ([]model.Message, error) {
	return s.repo.Find(ctx, filter)
}

// Create 写入一条记录。索引镜像是尽力而为的：索引失败只记日志，绝不让写入失败。
func (s *historyService) Create(ctx context.Context, msg *model.Message) (*model.Message, error) {
	stored, err := s.repo.Insert(ctx, msg)
	if err != nil {
		return nil, err
	}

	if s.index != nil {
		if err := s.index.IndexMessage(ctx, *stored); err != nil {
			log.Errorf("将消息镜像到索引失败: id=%s, error: %v", stored.ID, err)
		}
	}
	return stored, nil
}

// Delete 删除全部匹配记录；匹配零条时返回 ErrNotFound。
func (s *historyService) Delete(ctx context.Context, filter repository.HistoryFilter) (int64, error) {
	count, err := s.repo.Delete(ctx, filter)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, ErrNotFound
	}

	if s.index != nil {
		if err := s.index.DeleteByFilter(ctx, filter.UserID, filter.ConversationID); err != nil {
			log.Errorf("同步删除索引文档失败: %v", err)
		}
	}
	return count, nil
}

// Search 在消息正文上做全文检索。
func (s *historyService) Search(ctx context.Context, queryText, userID, conversationID string) ([]model.Message, error) {
	if s.index == nil {
		return nil, ErrSearchDisabled
	}
	messages, err := s.index.SearchMessages(ctx, queryText, userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to search history: %w", err)
	}
	return messages, nil
}
