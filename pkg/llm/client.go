// Package llm provides a client for interacting with Large Language Models.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"alberto-chat-go/internal/config"
)

// TokenWriter 定义了接收流式 token 的写入接口。
// HTTP 流式响应、WebSocket 连接和测试桩都可以实现它。
type TokenWriter interface {
	WriteToken(token []byte) error
}

// ToolSchema 描述一个可供模型调用的工具，Parameters 是 JSON-Schema 参数对象。
type ToolSchema struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ToolCall 是模型返回的一次工具调用请求。
type ToolCall struct {
	Name string
	Args map[string]any
}

// Client defines the interface for an LLM client.
type Client interface {
	// StreamCompletion 用渲染好的 prompt 调用补全接口，把流式 token 逐个写入 writer。
	StreamCompletion(ctx context.Context, prompt string, writer TokenWriter) error
	// RequestToolCalls 把用户问题和全部工具模式发给模型，返回模型请求的工具调用序列。
	RequestToolCalls(ctx context.Context, question string, tools []ToolSchema) ([]ToolCall, error)
}

type openAIClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

// NewClient creates a new LLM client for an OpenAI-compatible endpoint.
func NewClient(cfg config.LLMConfig) Client {
	return &openAIClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type functionPayload struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type toolPayload struct {
	Type     string          `json:"type"`
	Function functionPayload `json:"function"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []Message     `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature *float64      `json:"temperature,omitempty"`
	Tools       []toolPayload `json:"tools,omitempty"`
}

type streamResponse struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

type toolCallResponse struct {
	Choices []struct {
		Message struct {
			ToolCalls []struct {
				Function struct {
					Name string `json:"name"`
					// OpenAI 把参数编码成 JSON 字符串
					Arguments string `json:"arguments"`
				} `json:"function"`
			} `json:"tool_calls"`
		} `json:"message"`
	} `json:"choices"`
}

// post 发送一次 chat/completions 请求并返回响应，调用方负责关闭 Body。
func (c *openAIClient) post(ctx context.Context, reqBody chatRequest, accept string) (*http.Response, error) {
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.BaseURL+"/chat/completions", bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call chat api: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}
	return resp, nil
}

func (c *openAIClient) temperature() *float64 {
	if c.cfg.Temperature == 0 {
		return nil
	}
	t := c.cfg.Temperature
	return &t
}

// StreamCompletion calls the chat completions API and streams the response tokens.
func (c *openAIClient) StreamCompletion(ctx context.Context, prompt string, writer TokenWriter) error {
	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []Message{{Role: "user", Content: prompt}},
		Stream:      true,
		Temperature: c.temperature(),
	}

	resp, err := c.post(ctx, reqBody, "text/event-stream")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("failed to read from stream: %w", err)
		}

		if strings.HasPrefix(line, "data: ") {
			data := strings.TrimPrefix(line, "data: ")
			if strings.TrimSpace(data) == "[DONE]" {
				break
			}

			var chunk streamResponse
			if err := json.Unmarshal([]byte(data), &chunk); err != nil {
				continue
			}

			if len(chunk.Choices) > 0 {
				content := chunk.Choices[0].Delta.Content
				if content == "" {
					continue
				}
				if err := writer.WriteToken([]byte(content)); err != nil {
					return fmt.Errorf("failed to forward token: %w", err)
				}
			}
		}
	}
	return nil
}

// RequestToolCalls sends the question with the tool schemas and returns the
// tool calls the model asked for, in model order.
func (c *openAIClient) RequestToolCalls(ctx context.Context, question string, tools []ToolSchema) ([]ToolCall, error) {
	payload := make([]toolPayload, 0, len(tools))
	for _, t := range tools {
		payload = append(payload, toolPayload{
			Type: "function",
			Function: functionPayload{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []Message{{Role: "user", Content: question}},
		Temperature: c.temperature(),
		Tools:       payload,
	}

	resp, err := c.post(ctx, reqBody, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed toolCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode tool call response: %w", err)
	}

	if len(parsed.Choices) == 0 {
		return nil, nil
	}

	calls := make([]ToolCall, 0, len(parsed.Choices[0].Message.ToolCalls))
	for _, tc := range parsed.Choices[0].Message.ToolCalls {
		args := map[string]any{}
		if raw := strings.TrimSpace(tc.Function.Arguments); raw != "" {
			if err := json.Unmarshal([]byte(raw), &args); err != nil {
				return nil, fmt.Errorf("failed to parse arguments for tool %s: %w", tc.Function.Name, err)
			}
		}
		calls = append(calls, ToolCall{Name: tc.Function.Name, Args: args})
	}
	return calls, nil
}
