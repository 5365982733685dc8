// Package es 提供了与 Elasticsearch 交互的客户端功能。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"alberto-chat-go/internal/config"
	"alberto-chat-go/internal/model"
	"alberto-chat-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// InitES 初始化 Elasticsearch 客户端
func InitES(esCfg config.ElasticsearchConfig) error {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return err
	}
	ESClient = client
	return createIndexIfNotExists(esCfg.IndexName)
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func createIndexIfNotExists(indexName string) error {
	res, err := ESClient.Indices.Exists([]string{indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 200 说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", indexName)
		return nil
	}
	// 404 说明索引不存在，需要创建
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 消息记录的索引结构：过滤字段用 keyword，正文用 text 做全文检索
	mapping := `{
		"mappings": {
			"properties": {
				"conversation_id": { "type": "keyword" },
				"user_id": { "type": "keyword" },
				"sender_name": { "type": "keyword" },
				"content": { "type": "text" },
				"correlator_id": { "type": "keyword" },
				"created_at": { "type": "date" }
			}
		}
	}`

	res, err = ESClient.Indices.Create(
		indexName,
		ESClient.Indices.Create.WithBody(strings.NewReader(mapping)),
	)

	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", indexName)
	return nil
}

// Index 是消息记录全文索引的句柄。
type Index struct {
	name string
}

// NewIndex 创建一个绑定到指定索引名的 Index。
func NewIndex(indexName string) *Index {
	return &Index{name: indexName}
}

// messageSource 是消息记录在索引中的文档形态，文档 ID 使用存储层标识符。
type messageSource struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	SenderName     string    `json:"sender_name"`
	Content        string    `json:"content"`
	CorrelatorID   string    `json:"correlator_id"`
	CreatedAt      time.Time `json:"created_at"`
}

// IndexMessage 将单条消息记录写入索引。
func (i *Index) IndexMessage(ctx context.Context, msg model.Message) error {
	src := messageSource{
		ConversationID: msg.ConversationID,
		UserID:         msg.UserID,
		SenderName:     msg.SenderName,
		Content:        msg.Content,
		CorrelatorID:   msg.CorrelatorID,
		CreatedAt:      msg.CreatedAt,
	}
	docBytes, err := json.Marshal(src)
	if err != nil {
		return err
	}

	req := esapi.IndexRequest{
		Index:      i.name,
		DocumentID: msg.ID,
		Body:       bytes.NewReader(docBytes),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, ESClient)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("索引消息到 Elasticsearch 出错: %s", res.String())
		return errors.New("failed to index message")
	}
	return nil
}

// filterClauses 构造与 Mongo 侧语义一致的过滤子句，空条件不参与过滤。
func filterClauses(userID, conversationID string) []map[string]any {
	clauses := make([]map[string]any, 0, 2)
	if userID != "" {
		clauses = append(clauses, map[string]any{"term": map[string]any{"user_id": userID}})
	}
	if conversationID != "" {
		clauses = append(clauses, map[string]any{"term": map[string]any{"conversation_id": conversationID}})
	}
	return clauses
}

// DeleteByFilter 按过滤条件删除索引中的消息文档，与存储层的批量删除保持一致。
func (i *Index) DeleteByFilter(ctx context.Context, userID, conversationID string) error {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{"filter": filterClauses(userID, conversationID)},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return err
	}

	res, err := ESClient.DeleteByQuery([]string{i.name}, bytes.NewReader(body),
		ESClient.DeleteByQuery.WithContext(ctx),
		ESClient.DeleteByQuery.WithRefresh(true),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.IsError() {
		log.Errorf("按条件删除索引文档出错: %s", res.String())
		return errors.New("failed to delete messages from index")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string        `json:"_id"`
			Source messageSource `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// SearchMessages 在索引中对消息正文做全文检索，可叠加用户与会话过滤。
func (i *Index) SearchMessages(ctx context.Context, queryText, userID, conversationID string) ([]model.Message, error) {
	query := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must":   []map[string]any{{"match": map[string]any{"content": queryText}}},
				"filter": filterClauses(userID, conversationID),
			},
		},
	}
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	res, err := ESClient.Search(
		ESClient.Search.WithContext(ctx),
		ESClient.Search.WithIndex(i.name),
		ESClient.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search returned error: %s", res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}

	messages := make([]model.Message, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		messages = append(messages, model.Message{
			ID:             hit.ID,
			ConversationID: hit.Source.ConversationID,
			UserID:         hit.Source.UserID,
			SenderName:     hit.Source.SenderName,
			Content:        hit.Source.Content,
			CorrelatorID:   hit.Source.CorrelatorID,
			CreatedAt:      hit.Source.CreatedAt,
		})
	}
	return messages, nil
}
