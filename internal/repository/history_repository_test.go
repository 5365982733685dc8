package repository

import (
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name   string
		filter HistoryFilter
		want   map[string]string
	}{
		{
			name:   "empty filter matches everything",
			filter: HistoryFilter{},
			want:   map[string]string{},
		},
		{
			name:   "user only",
			filter: HistoryFilter{UserID: "user456"},
			want:   map[string]string{"user_id": "user456"},
		},
		{
			name:   "conversation only",
			filter: HistoryFilter{ConversationID: "conv123"},
			want:   map[string]string{"conversation_id": "conv123"},
		},
		{
			name:   "both fields",
			filter: HistoryFilter{UserID: "user456", ConversationID: "conv123"},
			want:   map[string]string{"user_id": "user456", "conversation_id": "conv123"},
		},
		{
			// limit 只影响游标选项，绝不能出现在查询文档里
			name:   "limit does not constrain the query",
			filter: HistoryFilter{Limit: 10},
			want:   map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query := buildQuery(tt.filter)
			if len(query) != len(tt.want) {
				t.Fatalf("expected %d query fields, got %d: %+v", len(tt.want), len(query), query)
			}
			for key, want := range tt.want {
				if got, ok := query[key]; !ok || got != want {
					t.Fatalf("query[%q] = %v, want %q", key, got, want)
				}
			}
		})
	}
}

func TestMessageDocToModel(t *testing.T) {
	oid := primitive.NewObjectID()
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := messageDoc{
		ID:             oid,
		ConversationID: "conv123",
		UserID:         "user456",
		SenderName:     "assistant",
		Content:        "Olá!",
		CorrelatorID:   "corr789",
		CreatedAt:      createdAt,
	}

	msg := doc.toModel()

	if msg.ID != oid.Hex() {
		t.Fatalf("expected hex id %q, got %q", oid.Hex(), msg.ID)
	}
	if msg.ConversationID != "conv123" || msg.UserID != "user456" || msg.SenderName != "assistant" {
		t.Fatalf("grouping fields lost in conversion: %+v", msg)
	}
	if msg.Content != "Olá!" || msg.CorrelatorID != "corr789" || !msg.CreatedAt.Equal(createdAt) {
		t.Fatalf("payload fields lost in conversion: %+v", msg)
	}
}
