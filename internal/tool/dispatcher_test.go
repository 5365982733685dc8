package tool

import (
	"context"
	"errors"
	"testing"

	"alberto-chat-go/pkg/llm"
)

type stubLLM struct {
	calls       []llm.ToolCall
	err         error
	seenTools   []llm.ToolSchema
	seenMessage string
}

func (s *stubLLM) StreamCompletion(ctx context.Context, prompt string, writer llm.TokenWriter) error {
	return errors.New("not used in dispatcher tests")
}

func (s *stubLLM) RequestToolCalls(ctx context.Context, question string, tools []llm.ToolSchema) ([]llm.ToolCall, error) {
	s.seenMessage = question
	s.seenTools = tools
	return s.calls, s.err
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	if err := r.Register(NewSumTool()); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := r.Register(NewMermaidTool(nil)); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	return r
}

func TestDispatcher_NoCalls(t *testing.T) {
	stub := &stubLLM{}
	d := NewDispatcher(stub, newTestRegistry(t))

	executed, err := d.Execute(context.Background(), "bom dia")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(executed) != 0 {
		t.Fatalf("expected no executions, got %d", len(executed))
	}
	// 注册表的全部模式都要随问题一起发给模型
	if stub.seenMessage != "bom dia" {
		t.Fatalf("dispatcher must send the raw question, got %q", stub.seenMessage)
	}
	if len(stub.seenTools) != 2 {
		t.Fatalf("expected 2 tool schemas sent to the model, got %d", len(stub.seenTools))
	}
}

func TestDispatcher_ExecutesInModelOrder(t *testing.T) {
	stub := &stubLLM{calls: []llm.ToolCall{
		{Name: "generate_mermaid_diagram", Args: map[string]any{"mermaid_code": "graph TD;"}},
		{Name: "sum_numbers", Args: map[string]any{"num1": float64(1), "num2": float64(2)}},
	}}
	d := NewDispatcher(stub, newTestRegistry(t))

	executed, err := d.Execute(context.Background(), "pergunta")
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if len(executed) != 2 {
		t.Fatalf("expected 2 executions, got %d", len(executed))
	}
	if executed[0].Name != "generate_mermaid_diagram" || executed[1].Name != "sum_numbers" {
		t.Fatalf("executions out of model order: %+v", executed)
	}
	if executed[1].Output != "3" {
		t.Fatalf("unexpected sum output: %q", executed[1].Output)
	}
	if executed[0].Description == "" {
		t.Fatal("executed record must carry the tool description")
	}
}

func TestDispatcher_UnknownTool(t *testing.T) {
	stub := &stubLLM{calls: []llm.ToolCall{{Name: "missing_tool", Args: map[string]any{}}}}
	d := NewDispatcher(stub, newTestRegistry(t))

	_, err := d.Execute(context.Background(), "pergunta")
	if !errors.Is(err, ErrUnknownTool) {
		t.Fatalf("expected ErrUnknownTool, got %v", err)
	}
}

func TestDispatcher_ToolFailurePropagates(t *testing.T) {
	stub := &stubLLM{calls: []llm.ToolCall{{Name: "sum_numbers", Args: map[string]any{"num1": "x", "num2": "y"}}}}
	d := NewDispatcher(stub, newTestRegistry(t))

	if _, err := d.Execute(context.Background(), "pergunta"); err == nil {
		t.Fatal("expected tool failure to propagate")
	}
}

func TestDispatcher_ModelFailurePropagates(t *testing.T) {
	stub := &stubLLM{err: errors.New("model down")}
	d := NewDispatcher(stub, newTestRegistry(t))

	if _, err := d.Execute(context.Background(), "pergunta"); err == nil {
		t.Fatal("expected model failure to propagate")
	}
}
