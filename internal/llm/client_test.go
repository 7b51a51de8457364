package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/leadzap/leadzap-backend/internal/llm"
)

func TestGenerate(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"content":"  Olá! Ainda posso ajudar?  "}}]}`))
	}))
	defer server.Close()

	client := llm.NewClient(server.URL, "test-key", "test-model")
	text, err := client.Generate(context.Background(), "be brief", "lead: oi\n")
	if err != nil {
		t.Fatal(err)
	}
	if text != "Olá! Ainda posso ajudar?" {
		t.Errorf("unexpected content: %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("unexpected auth header: %q", gotAuth)
	}
	if gotBody["model"] != "test-model" {
		t.Errorf("unexpected model: %v", gotBody["model"])
	}
	msgs, _ := gotBody["messages"].([]interface{})
	if len(msgs) != 2 {
		t.Fatalf("expected system + user messages, got %v", gotBody["messages"])
	}
}

func TestGenerateMissingKey(t *testing.T) {
	client := llm.NewClient("", "", "")
	if _, err := client.Generate(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestGenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := llm.NewClient(server.URL, "test-key", "")
	if _, err := client.Generate(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error on non-200 status")
	}
}

func TestGenerateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":{"message":"model overloaded","type":"server_error"}}`))
	}))
	defer server.Close()

	client := llm.NewClient(server.URL, "test-key", "")
	if _, err := client.Generate(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error on API error body")
	}
}

func TestGenerateEmptyContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"   "}}]}`))
	}))
	defer server.Close()

	client := llm.NewClient(server.URL, "test-key", "")
	if _, err := client.Generate(context.Background(), "p", "t"); err == nil {
		t.Fatal("expected error on empty content")
	}
}
