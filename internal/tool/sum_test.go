package tool

import (
	"context"
	"testing"
)

func TestSumTool_Execute(t *testing.T) {
	st := NewSumTool()

	out, err := st.Execute(context.Background(), map[string]any{"num1": float64(2), "num2": float64(3)})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "5" {
		t.Fatalf("expected 5, got %q", out)
	}
}

func TestSumTool_StringArgs(t *testing.T) {
	st := NewSumTool()

	// 部分模型会把数字参数编码成字符串
	out, err := st.Execute(context.Background(), map[string]any{"num1": "10", "num2": "32"})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if out != "42" {
		t.Fatalf("expected 42, got %q", out)
	}
}

func TestSumTool_MissingArg(t *testing.T) {
	st := NewSumTool()

	if _, err := st.Execute(context.Background(), map[string]any{"num1": float64(2)}); err == nil {
		t.Fatal("expected error for missing num2")
	}
}

func TestSumTool_NonNumericArg(t *testing.T) {
	st := NewSumTool()

	if _, err := st.Execute(context.Background(), map[string]any{"num1": "dois", "num2": float64(3)}); err == nil {
		t.Fatal("expected error for non-numeric argument")
	}
}
