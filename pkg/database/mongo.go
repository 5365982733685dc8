// Package database 负责初始化底层存储连接。
package database

import (
	"context"
	"time"

	"alberto-chat-go/internal/config"
	"alberto-chat-go/pkg/log"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var MongoClient *mongo.Client

// HistoryCollection 是存放会话消息记录的集合句柄，进程内只读。
var HistoryCollection *mongo.Collection

// InitMongo 初始化 MongoDB 客户端连接并解析出历史记录集合
func InitMongo(cfg config.MongoConfig) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	MongoClient, err = mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		log.Fatal("failed to connect to mongodb", err)
	}

	// 测试连接
	if err := MongoClient.Ping(ctx, readpref.Primary()); err != nil {
		log.Fatal("failed to ping mongodb", err)
	}

	HistoryCollection = MongoClient.Database(cfg.Database).Collection(cfg.Collection)

	log.Infof("MongoDB connected successfully, database=%s collection=%s", cfg.Database, cfg.Collection)
}

// CloseMongo 断开 MongoDB 连接，在服务优雅停机时调用。
func CloseMongo(ctx context.Context) {
	if MongoClient == nil {
		return
	}
	if err := MongoClient.Disconnect(ctx); err != nil {
		log.Error("failed to disconnect mongodb", err)
	}
}
