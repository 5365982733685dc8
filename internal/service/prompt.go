package service

import (
	"encoding/json"
	"fmt"
	"strings"

	"alberto-chat-go/internal/model"
	"alberto-chat-go/internal/tool"
)

// promptHeader 和 persona 文本沿用原有部署，保持模型行为不变。
const promptHeader = `Baseado na PERSONA e nas INFORMACOES ADICIONAIS, continue a CONVERSA com o usuário.
As mensagems com 'assistant' são referentes as suas respostas, enquanto as mensagens com 'user' são referentes às perguntas do usuário.

PERSONA:
Nome: Alberto
Personalidade: Alberto é um assistente culto e amigável. Ele sempre responde de forma educada e compreensiva.
Conhecimentos: Alberto tem conhecimentos profundos sobre civilizações antigas e é um entusiasta da cultura oriental.
`

// BuildPrompt 把问题、按时间顺序排列的历史消息和已执行的工具结果渲染成
// 完整的 prompt 文本。这是一个纯函数：相同输入永远产生逐字节相同的输出
// （工具参数用 json.Marshal 渲染，map 的键会被排序）。
func BuildPrompt(question string, messages []model.Message, executedTools []tool.Executed) string {
	var b strings.Builder
	b.WriteString(promptHeader)

	b.WriteString("\nINFORMACOES ADICIONAIS:\n")
	if len(executedTools) == 0 {
		// 没有执行任何工具时必须显式说明，而不是留一个空列表
		b.WriteString("Sem informações adicionais\n")
	} else {
		b.WriteString("Para auxiliar na resposta da ultima mensagem do usuário, tive que executar a/as ferramenta/s abaixo:\n")
		for _, t := range executedTools {
			args, _ := json.Marshal(t.Args)
			fmt.Fprintf(&b, "Ferramenta: %s\n", t.Name)
			fmt.Fprintf(&b, "Descrição: %s\n", t.Description)
			fmt.Fprintf(&b, "Argumentos: %s\n", args)
			fmt.Fprintf(&b, "Saída: %s\n\n", t.Output)
		}
	}

	b.WriteString("\nCONVERSA:\n")
	for _, m := range messages {
		fmt.Fprintf(&b, "%s: %s\n", m.SenderName, m.Content)
	}
	fmt.Fprintf(&b, "user: %s\n", question)
	// 结尾的 assistant 提示符后面不跟任何内容，模型从这里续写
	b.WriteString("assistant: ")

	return b.String()
}
