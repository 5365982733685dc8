// Package history 提供了历史服务 HTTP API 的客户端。
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"alberto-chat-go/internal/config"
	"alberto-chat-go/internal/model"
)

// Client defines the interface for a history service client.
type Client interface {
	// List 返回匹配过滤条件的记录，created_at 降序（最新在前），由调用方决定是否反转。
	List(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error)
	// Create 写入一条记录并返回包含标识符的完整记录。
	Create(ctx context.Context, msg model.Message) (model.Message, error)
}

type httpClient struct {
	baseURL string
	client  *http.Client
}

// NewClient 创建一个新的历史服务客户端实例。
func NewClient(cfg config.HistoryConfig) Client {
	return &httpClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{},
	}
}

func (c *httpClient) List(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error) {
	params := url.Values{}
	if userID != "" {
		params.Set("user_id", userID)
	}
	if conversationID != "" {
		params.Set("conversation_id", conversationID)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	reqURL := c.baseURL + "/historicos"
	if encoded := params.Encode(); encoded != "" {
		reqURL += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("创建历史查询请求失败: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("调用历史服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("历史服务返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	var messages []model.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, fmt.Errorf("解析历史服务响应失败: %w", err)
	}
	return messages, nil
}

func (c *httpClient) Create(ctx context.Context, msg model.Message) (model.Message, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return model.Message{}, fmt.Errorf("序列化历史记录失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/historicos", bytes.NewReader(payload))
	if err != nil {
		return model.Message{}, fmt.Errorf("创建历史写入请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return model.Message{}, fmt.Errorf("调用历史服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return model.Message{}, fmt.Errorf("历史服务返回错误 [%d]: %s", resp.StatusCode, string(body))
	}

	var stored model.Message
	if err := json.NewDecoder(resp.Body).Decode(&stored); err != nil {
		return model.Message{}, fmt.Errorf("解析历史服务响应失败: %w", err)
	}
	return stored, nil
}
