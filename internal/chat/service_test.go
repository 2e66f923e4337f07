package chat

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/store"
)

type fakeDispatcher struct {
	resp     domain.ChatResponse
	calls    int
	agent    domain.AgentType
	messages []domain.ChatMessage
	key      string
	model    string
}

func (f *fakeDispatcher) ChatWithAgent(_ context.Context, agent domain.AgentType, messages []domain.ChatMessage, key, model string) domain.ChatResponse {
	f.calls++
	f.agent = agent
	f.messages = append([]domain.ChatMessage(nil), messages...)
	f.key = key
	f.model = model
	return f.resp
}

type recordingObserver struct {
	outcomes []string
}

func (r *recordingObserver) ObserveChat(agent, outcome string, _ time.Duration) {
	r.outcomes = append(r.outcomes, agent+":"+outcome)
}

func newTestService(t *testing.T, d *fakeDispatcher, opts ...Option) (*Service, *store.DB) {
	t.Helper()
	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "chat.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opts = append([]Option{WithModelCatalog(db.Models), WithStreamDelay(0)}, opts...)
	return NewService(db.Conversations, db.Messages, d, opts...), db
}

func TestService_Send(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{resp: domain.ChatResponse{Content: "hi there"}}
	obs := &recordingObserver{}
	svc, db := newTestService(t, d, WithObserver(obs))

	conv, _ := db.Conversations.Create(ctx, "Chat", domain.AgentGPT, "")
	msg, err := svc.Send(ctx, conv.ID, SendInput{
		Message:   "hello",
		AgentType: "gpt",
		APIKey:    "sk-test",
		ImageURL:  "data:image/png;base64,QUJD",
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if msg.Content != "hi there" || msg.Role != domain.RoleAssistant {
		t.Errorf("Send() = %+v", msg)
	}

	if len(d.messages) != 1 {
		t.Fatalf("dispatched %d messages, want the user turn exactly once", len(d.messages))
	}
	if d.messages[0].Content != "hello" || d.messages[0].ImageURL != "data:image/png;base64,QUJD" {
		t.Errorf("dispatched %+v", d.messages[0])
	}
	if d.key != "sk-test" {
		t.Errorf("key = %q", d.key)
	}
	if d.model != "gpt-4o" {
		t.Errorf("model = %q, want catalogue default gpt-4o", d.model)
	}

	stored, _ := db.Messages.ListByConversation(ctx, conv.ID)
	if len(stored) != 2 || stored[0].Role != domain.RoleUser || stored[1].ID != msg.ID {
		t.Errorf("stored = %+v", stored)
	}
	if stored[0].ImageURL == nil {
		t.Error("user image not stored")
	}

	if len(obs.outcomes) != 1 || obs.outcomes[0] != "gpt:success" {
		t.Errorf("observed = %v", obs.outcomes)
	}
}

func TestService_SendHistory(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{resp: domain.ChatResponse{Content: "second answer"}}
	svc, db := newTestService(t, d)

	conv, _ := db.Conversations.Create(ctx, "Chat", domain.AgentClaude, "")
	d.resp.Content = "first answer"
	if _, err := svc.Send(ctx, conv.ID, SendInput{Message: "one", AgentType: "claude"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	d.resp.Content = "second answer"
	if _, err := svc.Send(ctx, conv.ID, SendInput{Message: "two", AgentType: "claude"}); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	want := []string{"one", "first answer", "two"}
	if len(d.messages) != len(want) {
		t.Fatalf("dispatched %d messages, want %d", len(d.messages), len(want))
	}
	for i, content := range want {
		if d.messages[i].Content != content {
			t.Errorf("messages[%d] = %q, want %q", i, d.messages[i].Content, content)
		}
	}
}

func TestService_ModelResolution(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		pinned    string
		convAgent domain.AgentType
		agent     string
		requested string
		want      string
	}{
		{"request wins", "gpt-4", domain.AgentGPT, "gpt", "gpt-3.5-turbo", "gpt-3.5-turbo"},
		{"pinned conversation model", "gpt-4", domain.AgentGPT, "gpt", "", "gpt-4"},
		{"pinned model of another agent is ignored", "gpt-4", domain.AgentGPT, "claude", "", "claude-3-5-sonnet-20241022"},
		{"catalogue default", "", domain.AgentGemini, "gemini", "", "gemini-2.0-flash-exp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDispatcher{resp: domain.ChatResponse{Content: "ok"}}
			svc, db := newTestService(t, d)
			conv, _ := db.Conversations.Create(ctx, "Chat", tt.convAgent, tt.pinned)

			if _, err := svc.Send(ctx, conv.ID, SendInput{Message: "hi", AgentType: tt.agent, Model: tt.requested}); err != nil {
				t.Fatalf("Send() error = %v", err)
			}
			if d.model != tt.want {
				t.Errorf("model = %q, want %q", d.model, tt.want)
			}
		})
	}
}

func TestService_SendErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		d := &fakeDispatcher{}
		svc, db := newTestService(t, d)
		conv, _ := db.Conversations.Create(ctx, "Chat", domain.AgentGPT, "")

		for _, in := range []SendInput{{AgentType: "gpt"}, {Message: "hi"}} {
			if _, err := svc.Send(ctx, conv.ID, in); !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("Send(%+v) error = %v, want ErrInvalidInput", in, err)
			}
		}
		if d.calls != 0 {
			t.Errorf("dispatcher calls = %d, want 0", d.calls)
		}
	})

	t.Run("invalid agent", func(t *testing.T) {
		d := &fakeDispatcher{}
		svc, db := newTestService(t, d)
		conv, _ := db.Conversations.Create(ctx, "Chat", domain.AgentGPT, "")

		if _, err := svc.Send(ctx, conv.ID, SendInput{Message: "hi", AgentType: "llama"}); !errors.Is(err, domain.ErrInvalidInput) {
			t.Errorf("error = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("missing conversation", func(t *testing.T) {
		svc, _ := newTestService(t, &fakeDispatcher{})
		if _, err := svc.Send(ctx, "missing", SendInput{Message: "hi", AgentType: "gpt"}); !errors.Is(err, domain.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("agent error stores no reply", func(t *testing.T) {
		d := &fakeDispatcher{resp: domain.ErrorResponse("GPT API key not configured")}
		obs := &recordingObserver{}
		svc, db := newTestService(t, d, WithObserver(obs))
		conv, _ := db.Conversations.Create(ctx, "Chat", domain.AgentGPT, "")

		_, err := svc.Send(ctx, conv.ID, SendInput{Message: "hi", AgentType: "gpt"})
		var agentErr *AgentError
		if !errors.As(err, &agentErr) || agentErr.Message != "GPT API key not configured" {
			t.Fatalf("error = %v, want AgentError", err)
		}
		if !IsAgentError(err) {
			t.Error("IsAgentError() = false")
		}

		stored, _ := db.Messages.ListByConversation(ctx, conv.ID)
		if len(stored) != 1 || stored[0].Role != domain.RoleUser {
			t.Errorf("stored = %+v, want only the user turn", stored)
		}
		if len(obs.outcomes) != 1 || obs.outcomes[0] != "gpt:error" {
			t.Errorf("observed = %v", obs.outcomes)
		}
	})
}

func TestService_Stream(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{resp: domain.ChatResponse{Content: "hello big world"}}
	svc, db := newTestService(t, d)
	conv, _ := db.Conversations.Create(ctx, "Chat", domain.AgentQwen, "")

	var chunks []string
	msg, err := svc.Stream(ctx, conv.ID, SendInput{Message: "hi", AgentType: "qwen"}, func(chunk string) error {
		chunks = append(chunks, chunk)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	want := []string{"hello ", "big ", "world "}
	if strings.Join(chunks, "|") != strings.Join(want, "|") {
		t.Errorf("chunks = %q, want %q", chunks, want)
	}
	if msg.Content != "hello big world" {
		t.Errorf("stored content = %q", msg.Content)
	}
}

func TestService_StreamCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &fakeDispatcher{resp: domain.ChatResponse{Content: "a b c d"}}
	svc, db := newTestService(t, d, WithStreamDelay(time.Hour))
	conv, _ := db.Conversations.Create(context.Background(), "Chat", domain.AgentGPT, "")

	var chunks int
	_, err := svc.Stream(ctx, conv.ID, SendInput{Message: "hi", AgentType: "gpt"}, func(string) error {
		chunks++
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if chunks != 1 {
		t.Errorf("chunks = %d, want 1", chunks)
	}

	stored, _ := db.Messages.ListByConversation(context.Background(), conv.ID)
	if len(stored) != 1 {
		t.Errorf("stored %d messages, want only the user turn", len(stored))
	}
}
