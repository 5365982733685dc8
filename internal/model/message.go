// Package model 包含了应用的数据模型定义。
package model

import "time"

// Message 代表一条会话消息记录。ID 是存储层生成的标识符，对外始终以
// 不透明字符串呈现。记录一旦写入即不可变，只能按过滤条件批量删除。
type Message struct {
	ID             string    `json:"id,omitempty"`
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	CorrelatorID   string    `json:"correlator_id"`
	CreatedAt      time.Time `json:"created_at"`
}
