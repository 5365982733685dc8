package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
)

// SumTool 把两个数字相加并以字符串返回结果。
type SumTool struct{}

func NewSumTool() *SumTool {
	return &SumTool{}
}

func (t *SumTool) Name() string {
	return "sum_numbers"
}

func (t *SumTool) Description() string {
	return "Sum two numbers and return the result."
}

func (t *SumTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"num1": { "type": "integer" },
			"num2": { "type": "integer" }
		},
		"required": ["num1", "num2"]
	}`)
}

// numberArg 解析一个数字参数。JSON 解码出来的数字是 float64，
// 但部分模型会把整数编码成字符串，这里都接受。
func numberArg(args map[string]any, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, fmt.Errorf("缺少参数 %s", key)
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("参数 %s 不是数字: %q", key, v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("参数 %s 不是数字: %T", key, raw)
	}
}

func (t *SumTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	num1, err := numberArg(args, "num1")
	if err != nil {
		return "", err
	}
	num2, err := numberArg(args, "num2")
	if err != nil {
		return "", err
	}
	return strconv.FormatFloat(num1+num2, 'f', -1, 64), nil
}
