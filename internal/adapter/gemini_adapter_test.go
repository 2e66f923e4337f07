package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hpn/ifixai-chat/internal/domain"
)

func TestMapToGeminiRequest(t *testing.T) {
	tests := []struct {
		name     string
		input    []domain.ChatMessage
		validate func(*testing.T, GeminiRequest)
	}{
		{
			name:  "single user message",
			input: []domain.ChatMessage{{Role: domain.RoleUser, Content: "Hello, world!"}},
			validate: func(t *testing.T, req GeminiRequest) {
				if len(req.Contents) != 1 {
					t.Fatalf("len(Contents) = %d, want 1", len(req.Contents))
				}
				if req.Contents[0].Role != "user" {
					t.Errorf("Contents[0].Role = %s, want user", req.Contents[0].Role)
				}
				if req.Contents[0].Parts[0].Text != "Hello, world!" {
					t.Errorf("Contents[0].Parts[0].Text = %s, want 'Hello, world!'", req.Contents[0].Parts[0].Text)
				}
			},
		},
		{
			name: "assistant and system roles map to model",
			input: []domain.ChatMessage{
				{Role: domain.RoleSystem, Content: "Be brief."},
				{Role: domain.RoleUser, Content: "Hi"},
				{Role: domain.RoleAssistant, Content: "Hello!"},
				{Role: domain.RoleUser, Content: "How are you?"},
			},
			validate: func(t *testing.T, req GeminiRequest) {
				want := []string{"model", "user", "model", "user"}
				if len(req.Contents) != len(want) {
					t.Fatalf("len(Contents) = %d, want %d", len(req.Contents), len(want))
				}
				for i, role := range want {
					if req.Contents[i].Role != role {
						t.Errorf("Contents[%d].Role = %s, want %s", i, req.Contents[i].Role, role)
					}
				}
				if req.Contents[3].Parts[0].Text != "How are you?" {
					t.Errorf("last turn text = %q", req.Contents[3].Parts[0].Text)
				}
			},
		},
		{
			name: "last turn is sent as user whatever its role",
			input: []domain.ChatMessage{
				{Role: domain.RoleAssistant, Content: "continue"},
			},
			validate: func(t *testing.T, req GeminiRequest) {
				if req.Contents[0].Role != "user" {
					t.Errorf("Contents[0].Role = %s, want user", req.Contents[0].Role)
				}
			},
		},
		{
			name: "image turn is sent without history",
			input: []domain.ChatMessage{
				{Role: domain.RoleUser, Content: "earlier"},
				{Role: domain.RoleAssistant, Content: "sure"},
				{Role: domain.RoleUser, Content: "what is this", ImageURL: "data:image/png;base64,QUJD"},
			},
			validate: func(t *testing.T, req GeminiRequest) {
				if len(req.Contents) != 1 {
					t.Fatalf("len(Contents) = %d, want 1", len(req.Contents))
				}
				if req.Contents[0].Role != "user" {
					t.Errorf("Contents[0].Role = %s, want user", req.Contents[0].Role)
				}
				parts := req.Contents[0].Parts
				if len(parts) != 2 {
					t.Fatalf("len(parts) = %d, want 2", len(parts))
				}
				if parts[0].Text != "what is this" {
					t.Errorf("parts[0].Text = %q, want 'what is this'", parts[0].Text)
				}
				blob := parts[1].InlineData
				if blob == nil {
					t.Fatal("InlineData is nil")
				}
				if blob.MimeType != "image/jpeg" {
					t.Errorf("MimeType = %s, want image/jpeg", blob.MimeType)
				}
				if blob.Data != "QUJD" {
					t.Errorf("Data = %s, want QUJD", blob.Data)
				}
			},
		},
		{
			name: "raw base64 is passed through",
			input: []domain.ChatMessage{
				{Role: domain.RoleUser, Content: "look", ImageURL: "QUJD"},
			},
			validate: func(t *testing.T, req GeminiRequest) {
				if got := req.Contents[0].Parts[1].InlineData.Data; got != "QUJD" {
					t.Errorf("Data = %s, want QUJD", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, mapToGeminiRequest(tt.input))
		})
	}
}

func TestGeminiAdapter_Chat(t *testing.T) {
	var gotPath, gotKey string
	var gotBody GeminiRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello "},{"text":"from Gemini!"}]},"finishReason":"STOP"}]}`))
	}))
	defer server.Close()

	adapter := NewGeminiAdapter(WithBaseURL(server.URL))
	got, err := adapter.Chat(context.Background(), Request{
		Messages:   []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		Credential: "g-key",
	})
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}

	if got != "Hello from Gemini!" {
		t.Errorf("Chat() = %q, want %q", got, "Hello from Gemini!")
	}
	if gotPath != "/models/"+DefaultGeminiModel+":generateContent" {
		t.Errorf("path = %s", gotPath)
	}
	if gotKey != "g-key" {
		t.Errorf("key = %s, want g-key", gotKey)
	}
	if len(gotBody.Contents) != 1 {
		t.Errorf("len(Contents) = %d, want 1", len(gotBody.Contents))
	}
}

func TestGeminiAdapter_ChatModelOverride(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	adapter := NewGeminiAdapter(WithBaseURL(server.URL), WithDefaultModel("gemini-1.5-pro"))

	if _, err := adapter.Chat(context.Background(), Request{
		Messages:   []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		Credential: "k",
	}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if gotPath != "/models/gemini-1.5-pro:generateContent" {
		t.Errorf("default model path = %s", gotPath)
	}

	if _, err := adapter.Chat(context.Background(), Request{
		Messages:   []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
		Model:      "gemini-1.5-flash",
		Credential: "k",
	}); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if gotPath != "/models/gemini-1.5-flash:generateContent" {
		t.Errorf("explicit model path = %s", gotPath)
	}
}

func TestGeminiAdapter_ChatErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error message", http.StatusBadRequest, `{"error":{"code":400,"message":"API key not valid","status":"INVALID_ARGUMENT"}}`, "API key not valid"},
		{"raw error body", http.StatusInternalServerError, `boom`, "boom"},
		{"blocked prompt", http.StatusOK, `{"promptFeedback":{"blockReason":"SAFETY"}}`, "blocked: SAFETY"},
		{"malformed json", http.StatusOK, `{"candidates":`, "unmarshal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			adapter := NewGeminiAdapter(WithBaseURL(server.URL))
			_, err := adapter.Chat(context.Background(), Request{
				Messages:   []domain.ChatMessage{{Role: domain.RoleUser, Content: "hi"}},
				Credential: "k",
			})
			if err == nil {
				t.Fatal("Chat() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestNewGeminiAdapter_Options(t *testing.T) {
	customURL := "https://custom.api.google.com"
	adapter := NewGeminiAdapter(WithBaseURL(customURL + "/"))

	if adapter.baseURL != customURL {
		t.Errorf("baseURL = %s, want %s", adapter.baseURL, customURL)
	}
	if adapter.defaultModel != DefaultGeminiModel {
		t.Errorf("defaultModel = %s, want %s", adapter.defaultModel, DefaultGeminiModel)
	}
	if adapter.Agent() != domain.AgentGemini {
		t.Errorf("Agent() = %s, want gemini", adapter.Agent())
	}
}
