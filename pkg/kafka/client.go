// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"alberto-chat-go/internal/config"
	"alberto-chat-go/pkg/log"

	"github.com/segmentio/kafka-go"
)

// TurnEvent 是一轮对话结束后上报的事件，用于运维侧观察每轮对话的落库结果。
// 特别地，助手回复持久化失败时客户端已经收完了流，无法再返回错误，
// 这个事件是该失败唯一的下游出口（除日志外）。
type TurnEvent struct {
	CorrelatorID       string    `json:"correlator_id"`
	ConversationID     string    `json:"conversation_id"`
	UserID             string    `json:"user_id"`
	ToolsExecuted      int       `json:"tools_executed"`
	AssistantPersisted bool      `json:"assistant_persisted"`
	Error              string    `json:"error,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

var producer *kafka.Writer

// InitProducer 初始化 Kafka 生产者。Brokers 为空时不启用，上报退化为空操作。
func InitProducer(cfg config.KafkaConfig) {
	if cfg.Brokers == "" {
		log.Info("Kafka 未配置，跳过事件上报初始化")
		return
	}
	producer = &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Info("Kafka 生产者初始化成功")
}

// ProduceTurnEvent 发送一条对话轮次事件。上报是尽力而为的，失败只由调用方记日志。
func ProduceTurnEvent(ev TurnEvent) error {
	if producer == nil {
		return nil
	}

	eventBytes, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	return producer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(ev.ConversationID),
			Value: eventBytes,
		},
	)
}

// Close 关闭生产者，在服务优雅停机时调用。
func Close() {
	if producer == nil {
		return
	}
	if err := producer.Close(); err != nil {
		log.Error("关闭 Kafka 生产者失败", err)
	}
}
