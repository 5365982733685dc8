package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"testing"
	"time"

	"alberto-chat-go/internal/model"
	"alberto-chat-go/internal/repository"
	"alberto-chat-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "json", "")
	os.Exit(m.Run())
}

// memoryRepo 是一个带真实过滤语义的内存 HistoryRepository 实现。
type memoryRepo struct {
	records []model.Message
	nextID  int
	failing bool
}

func (r *memoryRepo) Insert(ctx context.Context, msg *model.Message) (*model.Message, error) {
	if r.failing {
		return nil, errors.New("write failed")
	}
	stored := *msg
	r.nextID++
	stored.ID = fmt.Sprintf("id-%d", r.nextID)
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	r.records = append(r.records, stored)
	return &stored, nil
}

func (r *memoryRepo) matches(msg model.Message, filter repository.HistoryFilter) bool {
	if filter.UserID != "" && msg.UserID != filter.UserID {
		return false
	}
	if filter.ConversationID != "" && msg.ConversationID != filter.ConversationID {
		return false
	}
	return true
}

func (r *memoryRepo) Find(ctx context.Context, filter repository.HistoryFilter) ([]model.Message, error) {
	out := make([]model.Message, 0)
	for _, msg := range r.records {
		if r.matches(msg, filter) {
			out = append(out, msg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && int64(len(out)) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memoryRepo) Delete(ctx context.Context, filter repository.HistoryFilter) (int64, error) {
	kept := r.records[:0]
	var deleted int64
	for _, msg := range r.records {
		if r.matches(msg, filter) {
			deleted++
			continue
		}
		kept = append(kept, msg)
	}
	r.records = kept
	return deleted, nil
}

func seed(t *testing.T, svc HistoryService, userID, conversationID, content string, at time.Time) model.Message {
	t.Helper()
	stored, err := svc.Create(context.Background(), &model.Message{
		ConversationID: conversationID,
		UserID:         userID,
		SenderName:     "user",
		Content:        content,
		CorrelatorID:   "corr-1",
		CreatedAt:      at,
	})
	if err != nil {
		t.Fatalf("seed insert failed: %v", err)
	}
	return *stored
}

func TestHistoryServiceFilterExactness(t *testing.T) {
	svc := NewHistoryService(&memoryRepo{}, nil)
	now := time.Now().UTC()

	seed(t, svc, "userA", "conv1", "primeira", now)
	seed(t, svc, "userA", "conv2", "segunda", now.Add(time.Second))
	seed(t, svc, "userB", "conv1", "terceira", now.Add(2*time.Second))

	got, err := svc.List(context.Background(), repository.HistoryFilter{UserID: "userA"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for userA, got %d", len(got))
	}
	for _, msg := range got {
		if msg.UserID != "userA" {
			t.Fatalf("record for wrong user leaked into result: %+v", msg)
		}
	}

	got, err = svc.List(context.Background(), repository.HistoryFilter{UserID: "userA", ConversationID: "conv1"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 || got[0].Content != "primeira" {
		t.Fatalf("combined filter mismatch: %+v", got)
	}
}

func TestHistoryServiceListOrderAndLimit(t *testing.T) {
	svc := NewHistoryService(&memoryRepo{}, nil)
	base := time.Now().UTC()
	for i := 0; i < 15; i++ {
		seed(t, svc, "userA", "conv1", fmt.Sprintf("mensagem %d", i), base.Add(time.Duration(i)*time.Second))
	}

	got, err := svc.List(context.Background(), repository.HistoryFilter{UserID: "userA", Limit: 10})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("expected limit of 10 records, got %d", len(got))
	}
	// 降序：最新的一条在最前
	if got[0].Content != "mensagem 14" {
		t.Fatalf("expected newest record first, got %q", got[0].Content)
	}
	if got[9].Content != "mensagem 5" {
		t.Fatalf("expected the 10 most recent records, oldest returned is %q", got[9].Content)
	}
}

func TestHistoryServiceInsertRoundTrip(t *testing.T) {
	svc := NewHistoryService(&memoryRepo{}, nil)
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stored := seed(t, svc, "userA", "conv1", "Olá, tudo bem?", at)

	if stored.ID == "" {
		t.Fatal("stored record must carry a generated identifier")
	}

	got, err := svc.List(context.Background(), repository.HistoryFilter{UserID: "userA", ConversationID: "conv1"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0] != stored {
		t.Fatalf("round-trip mismatch:\ninserted %+v\nfetched  %+v", stored, got[0])
	}
}

func TestHistoryServiceDelete(t *testing.T) {
	svc := NewHistoryService(&memoryRepo{}, nil)
	now := time.Now().UTC()
	seed(t, svc, "userA", "conv1", "um", now)
	seed(t, svc, "userA", "conv1", "dois", now.Add(time.Second))
	seed(t, svc, "userB", "conv2", "três", now.Add(2*time.Second))

	count, err := svc.Delete(context.Background(), repository.HistoryFilter{UserID: "userA"})
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 deleted, got %d", count)
	}

	remaining, err := svc.List(context.Background(), repository.HistoryFilter{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(remaining) != 1 || remaining[0].UserID != "userB" {
		t.Fatalf("delete removed the wrong records: %+v", remaining)
	}
}

func TestHistoryServiceDeleteNotFound(t *testing.T) {
	svc := NewHistoryService(&memoryRepo{}, nil)

	_, err := svc.Delete(context.Background(), repository.HistoryFilter{UserID: "nonexistent"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// faultyIndex 总是失败的 MessageIndex：索引镜像失败绝不能影响写入。
type faultyIndex struct{}

func (faultyIndex) IndexMessage(ctx context.Context, msg model.Message) error {
	return errors.New("index down")
}

func (faultyIndex) DeleteByFilter(ctx context.Context, userID, conversationID string) error {
	return errors.New("index down")
}

func (faultyIndex) SearchMessages(ctx context.Context, queryText, userID, conversationID string) ([]model.Message, error) {
	return nil, errors.New("index down")
}

func TestHistoryServiceCreateSurvivesIndexFailure(t *testing.T) {
	svc := NewHistoryService(&memoryRepo{}, faultyIndex{})

	stored, err := svc.Create(context.Background(), &model.Message{
		ConversationID: "conv1",
		UserID:         "userA",
		SenderName:     "user",
		Content:        "olá",
		CorrelatorID:   "corr-1",
	})
	if err != nil {
		t.Fatalf("create must not fail when indexing fails: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("stored record missing identifier")
	}
}

func TestHistoryServiceSearchDisabled(t *testing.T) {
	svc := NewHistoryService(&memoryRepo{}, nil)

	_, err := svc.Search(context.Background(), "olá", "", "")
	if !errors.Is(err, ErrSearchDisabled) {
		t.Fatalf("expected ErrSearchDisabled, got %v", err)
	}
}
