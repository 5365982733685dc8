package tool

import (
	"context"
	"errors"
	"fmt"

	"alberto-chat-go/pkg/llm"
	"alberto-chat-go/pkg/log"
)

// ErrUnknownTool 表示模型请求了一个未注册的工具。
var ErrUnknownTool = errors.New("unknown tool")

// Dispatcher 询问模型需要调用哪些工具，并按模型给出的顺序同步执行。
type Dispatcher struct {
	llmClient llm.Client
	registry  *Registry
}

func NewDispatcher(llmClient llm.Client, registry *Registry) *Dispatcher {
	return &Dispatcher{llmClient: llmClient, registry: registry}
}

// Execute 用原始问题（不含会话历史）向模型请求工具调用，逐个执行并收集结果。
// 模型没有请求任何工具时返回空切片。任何一步失败都让整个请求失败。
func (d *Dispatcher) Execute(ctx context.Context, question string) ([]Executed, error) {
	calls, err := d.llmClient.RequestToolCalls(ctx, question, d.registry.Schemas())
	if err != nil {
		return nil, fmt.Errorf("请求工具调用失败: %w", err)
	}

	executed := make([]Executed, 0, len(calls))
	for _, call := range calls {
		t, ok := d.registry.Get(call.Name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTool, call.Name)
		}

		output, err := t.Execute(ctx, call.Args)
		if err != nil {
			return nil, fmt.Errorf("工具 %s 执行失败: %w", call.Name, err)
		}

		executed = append(executed, Executed{
			Name:        t.Name(),
			Description: t.Description(),
			Args:        call.Args,
			Output:      output,
		})
		log.Infof("Executed tool: %s with args: %v", call.Name, call.Args)
	}
	return executed, nil
}
