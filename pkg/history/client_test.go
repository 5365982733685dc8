package history

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alberto-chat-go/internal/config"
	"alberto-chat-go/internal/model"
)

func TestClientList(t *testing.T) {
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "GET" || r.URL.Path != "/historicos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("user_id") != "user456" || q.Get("conversation_id") != "conv123" || q.Get("limit") != "10" {
			t.Errorf("unexpected query params: %v", q)
		}

		json.NewEncoder(w).Encode([]model.Message{
			{ID: "id-2", SenderName: "assistant", Content: "Oi", CreatedAt: createdAt},
			{ID: "id-1", SenderName: "user", Content: "Olá", CreatedAt: createdAt.Add(-time.Minute)},
		})
	}))
	defer server.Close()

	client := NewClient(config.HistoryConfig{BaseURL: server.URL})
	messages, err := client.List(context.Background(), "user456", "conv123", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(messages))
	}
	if messages[0].ID != "id-2" || messages[1].Content != "Olá" {
		t.Fatalf("unexpected messages: %+v", messages)
	}
}

func TestClientListOmitsEmptyParams(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.RawQuery; raw != "" {
			t.Errorf("empty filter must not send query params, got %q", raw)
		}
		io.WriteString(w, "[]")
	}))
	defer server.Close()

	client := NewClient(config.HistoryConfig{BaseURL: server.URL})
	messages, err := client.List(context.Background(), "", "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("expected empty result, got %+v", messages)
	}
}

func TestClientCreate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" || r.URL.Path != "/historicos" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var received model.Message
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		if received.SenderName != "user" || received.Content != "Quanto é 2+3?" {
			t.Errorf("unexpected payload: %+v", received)
		}

		received.ID = "65f0c0ffee0000000000bbbb"
		json.NewEncoder(w).Encode(received)
	}))
	defer server.Close()

	client := NewClient(config.HistoryConfig{BaseURL: server.URL})
	stored, err := client.Create(context.Background(), model.Message{
		ConversationID: "conv123",
		UserID:         "user456",
		SenderName:     "user",
		Content:        "Quanto é 2+3?",
		CorrelatorID:   "corr789",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("stored record must carry the generated identifier")
	}
	if stored.CorrelatorID != "corr789" {
		t.Fatalf("unexpected stored record: %+v", stored)
	}
}

func TestClientCreateNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"detail": "sender_name is required"}`)
	}))
	defer server.Close()

	client := NewClient(config.HistoryConfig{BaseURL: server.URL})
	_, err := client.Create(context.Background(), model.Message{})
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
	if !strings.Contains(err.Error(), "sender_name is required") {
		t.Fatalf("error should carry the response body, got: %v", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Fatalf("error should carry the status code, got: %v", err)
	}
}
