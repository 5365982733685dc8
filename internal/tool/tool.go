// Package tool 实现了供模型调用的辅助工具及其注册表和调度器。
package tool

import (
	"context"
	"encoding/json"
)

// Tool is the common abstraction for all invocable tools.
type Tool interface {
	Name() string
	Description() string
	// Schema 返回参数的 JSON-Schema 对象，用于告知模型如何构造调用参数。
	Schema() json.RawMessage
	// Execute 校验并执行这次调用，返回文本结果。参数校验失败或执行失败都会
	// 让整个请求失败，没有重试。
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Executed 是一次已执行的工具调用记录，只存在于单次请求的生命周期内，
// 不直接持久化，最终折叠进渲染后的 prompt。
type Executed struct {
	Name        string
	Description string
	Args        map[string]any
	Output      string
}
