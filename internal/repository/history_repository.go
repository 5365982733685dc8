// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"fmt"
	"time"

	"alberto-chat-go/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// HistoryFilter 描述查询和删除时的过滤条件，零值字段不参与过滤。
type HistoryFilter struct {
	UserID         string
	ConversationID string
	Limit          int64
}

// HistoryRepository 定义了消息记录的存储操作接口。
type HistoryRepository interface {
	// Insert 写入一条记录并返回包含存储层标识符的完整记录。
	Insert(ctx context.Context, msg *model.Message) (*model.Message, error)
	// Find 按过滤条件查询，按 created_at 降序排列；无匹配时返回空切片。
	Find(ctx context.Context, filter HistoryFilter) ([]model.Message, error)
	// Delete 删除全部匹配记录并返回删除条数。
	Delete(ctx context.Context, filter HistoryFilter) (int64, error)
}

// messageDoc 是消息记录在 MongoDB 中的文档形态。
// _id 不直接暴露，对外统一转换为十六进制字符串。
type messageDoc struct {
	ID             primitive.ObjectID `bson:"_id,omitempty"`
	ConversationID string             `bson:"conversation_id"`
	UserID         string             `bson:"user_id"`
	SenderName     string             `bson:"sender_name"`
	Content        string             `bson:"content"`
	CorrelatorID   string             `bson:"correlator_id"`
	CreatedAt      time.Time          `bson:"created_at"`
}

func (d *messageDoc) toModel() model.Message {
	return model.Message{
		ID:             d.ID.Hex(),
		ConversationID: d.ConversationID,
		UserID:         d.UserID,
		SenderName:     d.SenderName,
		Content:        d.Content,
		CorrelatorID:   d.CorrelatorID,
		CreatedAt:      d.CreatedAt,
	}
}

type mongoHistoryRepository struct {
	coll *mongo.Collection
}

// NewHistoryRepository 创建一个基于 MongoDB 集合的 HistoryRepository 实例。
func NewHistoryRepository(coll *mongo.Collection) HistoryRepository {
	return &mongoHistoryRepository{coll: coll}
}

// buildQuery 将过滤条件转换为 Mongo 查询文档，省略的条件不加约束。
func buildQuery(filter HistoryFilter) bson.M {
	query := bson.M{}
	if filter.UserID != "" {
		query["user_id"] = filter.UserID
	}
	if filter.ConversationID != "" {
		query["conversation_id"] = filter.ConversationID
	}
	return query
}

// Insert 写入一条消息记录。调用方未提供时间戳时由服务端补齐。
func (r *mongoHistoryRepository) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	doc := messageDoc{
		ConversationID: msg.ConversationID,
		UserID:         msg.UserID,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
		CorrelatorID:   msg.CorrelatorID,
		CreatedAt:      msg.CreatedAt,
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	result, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history record: %w", err)
	}

	oid, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	doc.ID = oid

	stored := doc.toModel()
	return &stored, nil
}

// Find 查询匹配的记录，按 created_at 降序（最新在前）。
func (r *mongoHistoryRepository) Find(ctx context.Context, filter HistoryFilter) ([]model.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(filter.Limit)
	}

	cursor, err := r.coll.Find(ctx, buildQuery(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history records: %w", err)
	}
	defer cursor.Close(ctx)

	messages := make([]model.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode history record: %w", err)
		}
		messages = append(messages, doc.toModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("history cursor error: %w", err)
	}
	return messages, nil
}

// Delete 删除全部匹配记录。匹配零条不算错误，由上层决定如何呈现。
func (r *mongoHistoryRepository) Delete(ctx context.Context, filter HistoryFilter) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, buildQuery(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to delete history records: %w", err)
	}
	return result.DeletedCount, nil
}
