// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件和环境变量加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，历史服务和会话服务共用一份配置。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Log           LogConfig           `mapstructure:"log"`
	Mongo         MongoConfig         `mapstructure:"mongo"`
	History       HistoryConfig       `mapstructure:"history"`
	LLM           LLMConfig           `mapstructure:"llm"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	MinIO         MinIOConfig         `mapstructure:"minio"`
}

// ServerConfig 存储两个 HTTP 服务的监听配置。
type ServerConfig struct {
	HistoryPort      string `mapstructure:"history_port"`
	ConversationPort string `mapstructure:"conversation_port"`
	Mode             string `mapstructure:"mode"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// MongoConfig 存储 MongoDB 文档库的配置。
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// HistoryConfig 是会话服务访问历史服务时使用的客户端配置。
// WindowSize 是每轮请求拉取的最近消息条数。
type HistoryConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	WindowSize int    `mapstructure:"window_size"`
}

// LLMConfig 存储大语言模型相关的配置。
type LLMConfig struct {
	APIKey      string  `mapstructure:"api_key"`
	BaseURL     string  `mapstructure:"base_url"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
}

// KafkaConfig 存储 Kafka 相关的配置，Brokers 为空时禁用事件上报。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
}

// ElasticsearchConfig 存储消息全文检索相关的配置。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// MinIOConfig 存储 MinIO 对象存储的配置，图表工具的产物会上传到这里。
type MinIOConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	BucketName      string `mapstructure:"bucket_name"`
}

// setDefaults 注册每个配置项的默认值，配置文件和环境变量都缺失时生效。
func setDefaults() {
	viper.SetDefault("server.history_port", "8000")
	viper.SetDefault("server.conversation_port", "8001")
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.output_path", "")

	viper.SetDefault("mongo.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongo.database", "historico_db")
	viper.SetDefault("mongo.collection", "historicos")

	viper.SetDefault("history.base_url", "http://localhost:8000")
	viper.SetDefault("history.window_size", 10)

	viper.SetDefault("llm.api_key", "your-api-key")
	viper.SetDefault("llm.base_url", "http://localhost:11434/v1")
	viper.SetDefault("llm.model", "qwen2.5:7b-instruct-q8_0")
	viper.SetDefault("llm.temperature", 0.7)

	viper.SetDefault("kafka.brokers", "")
	viper.SetDefault("kafka.topic", "conversation-turns")

	viper.SetDefault("elasticsearch.enabled", false)
	viper.SetDefault("elasticsearch.addresses", "https://localhost:9200")
	viper.SetDefault("elasticsearch.index_name", "historicos")

	viper.SetDefault("minio.enabled", false)
	viper.SetDefault("minio.endpoint", "localhost:9000")
	viper.SetDefault("minio.bucket_name", "diagrams")
}

// bindEnv 绑定沿用自原部署的环境变量名，方便不落配置文件直接用环境变量启动。
func bindEnv() {
	_ = viper.BindEnv("mongo.uri", "MONGO_URI")
	_ = viper.BindEnv("mongo.database", "DB_NAME")
	_ = viper.BindEnv("mongo.collection", "COLLECTION_NAME")
	_ = viper.BindEnv("llm.api_key", "OPENAI_API_KEY")
	_ = viper.BindEnv("llm.base_url", "OPENAI_API_BASE_URL")
	_ = viper.BindEnv("llm.model", "OPENAI_MODEL")
	_ = viper.BindEnv("history.base_url", "HISTORY_API_BASE_URL")
}

// Init 初始化配置加载：默认值 < YAML 配置文件 < 环境变量。
// 配置文件不存在时不报错，全部使用默认值和环境变量。
func Init(configPath string) {
	setDefaults()
	bindEnv()

	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			panic(fmt.Errorf("读取配置文件失败: %w", err))
		}
		// 文件不存在时静默跳过，保持环境变量驱动的启动方式
	}

	if err := viper.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}
