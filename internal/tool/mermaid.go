package tool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// DiagramStore 定义了图表产物的上传能力，由 pkg/storage 提供实现。
type DiagramStore interface {
	// Upload 存储图表源码并返回可访问的 URL。
	Upload(ctx context.Context, objectName string, content []byte) (string, error)
}

// MermaidTool 根据给定的 mermaid 源码返回一个图表图片的 URL。
// 配置了对象存储时把源码归档并返回预签名地址，否则退回 mermaid.ink 渲染地址。
type MermaidTool struct {
	store DiagramStore // 为 nil 时只返回 mermaid.ink 地址
}

func NewMermaidTool(store DiagramStore) *MermaidTool {
	return &MermaidTool{store: store}
}

func (t *MermaidTool) Name() string {
	return "generate_mermaid_diagram"
}

func (t *MermaidTool) Description() string {
	return "Based on the given mermaid_code, return a url containing an image of the diagram."
}

func (t *MermaidTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"mermaid_code": { "type": "string" }
		},
		"required": ["mermaid_code"]
	}`)
}

func (t *MermaidTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	raw, ok := args["mermaid_code"]
	if !ok {
		return "", fmt.Errorf("缺少参数 mermaid_code")
	}
	code, ok := raw.(string)
	if !ok || code == "" {
		return "", fmt.Errorf("参数 mermaid_code 必须是非空字符串")
	}

	if t.store != nil {
		objectName := uuid.NewString() + ".mmd"
		url, err := t.store.Upload(ctx, objectName, []byte(code))
		if err != nil {
			return "", fmt.Errorf("上传图表源码失败: %w", err)
		}
		return url, nil
	}

	// mermaid.ink 接受 base64url 编码的源码并渲染成图片
	encoded := base64.URLEncoding.EncodeToString([]byte(code))
	return "https://mermaid.ink/img/" + encoded, nil
}
