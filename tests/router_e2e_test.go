// Package tests provides end-to-end integration tests for the chat server.
package tests

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/hpn/ifixai-chat/internal/adapter"
	"github.com/hpn/ifixai-chat/internal/chat"
	"github.com/hpn/ifixai-chat/internal/domain"
	"github.com/hpn/ifixai-chat/internal/handler"
	"github.com/hpn/ifixai-chat/internal/store"
)

const testImage = "data:image/png;base64,iVBORw0KGgo="

// upstream simulates the four provider APIs under /gemini, /claude, /qwen
// and /gpt and records every decoded request body.
type upstream struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string][]map[string]any
	keys   map[string][]string
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{bodies: map[string][]map[string]any{}, keys: map[string][]string{}}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	t.Cleanup(u.Close)
	return u
}

func (u *upstream) serve(w http.ResponseWriter, r *http.Request) {
	name := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/"), "/", 2)[0]

	var body map[string]any
	json.NewDecoder(r.Body).Decode(&body)

	key := r.URL.Query().Get("key")
	if key == "" {
		key = r.Header.Get("x-api-key")
	}
	if key == "" {
		key = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}

	u.mu.Lock()
	u.bodies[name] = append(u.bodies[name], body)
	u.keys[name] = append(u.keys[name], key)
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch name {
	case "gemini":
		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"Hello from Gemini"}]}}]}`)
	case "claude":
		fmt.Fprint(w, `{"id":"msg_1","type":"message","content":[{"type":"text","text":"Hello from Claude"}]}`)
	case "qwen":
		fmt.Fprint(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"Hello from Qwen"},"finish_reason":"stop"}]}`)
	case "gpt":
		fmt.Fprint(w, `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"message":{"role":"assistant","content":"hi there"},"finish_reason":"stop"}]}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (u *upstream) last(name string) (map[string]any, string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	bodies := u.bodies[name]
	if len(bodies) == 0 {
		return nil, ""
	}
	return bodies[len(bodies)-1], u.keys[name][len(bodies)-1]
}

func (u *upstream) calls() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, b := range u.bodies {
		n += len(b)
	}
	return n
}

type testServer struct {
	router http.Handler
	db     *store.DB
}

func setupServer(t *testing.T, base string, strict bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	opts := func(path string) []adapter.Option {
		return []adapter.Option{adapter.WithBaseURL(base + path), adapter.WithStrictAttachments(strict)}
	}
	dispatcher := adapter.NewDispatcher([]adapter.AIProvider{
		adapter.NewGeminiAdapter(opts("/gemini")...),
		adapter.NewClaudeAdapter(opts("/claude")...),
		adapter.NewQwenAdapter(opts("/qwen")...),
		adapter.NewGPTAdapter(opts("/gpt/v1")...),
	}, adapter.WithCredentialSource(db.Credentials), adapter.WithLogger(logger))

	service := chat.NewService(db.Conversations, db.Messages, dispatcher,
		chat.WithModelCatalog(db.Models),
		chat.WithLogger(logger),
		chat.WithStreamDelay(0),
	)
	h := handler.NewHandler(service, db.Conversations, db.Messages, db.Credentials, db.Models, handler.WithLogger(logger))

	return &testServer{
		router: handler.NewRouter(h, handler.RouterConfig{Logger: logger, BodyLimitMB: 50}),
		db:     db,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if body == nil {
		raw = nil
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) conversation(t *testing.T, agent domain.AgentType, model string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/conversations", gin.H{"title": "e2e", "agentType": agent, "model": model})
	if w.Code != http.StatusCreated {
		t.Fatalf("create conversation: %d %s", w.Code, w.Body.String())
	}
	var conv domain.Conversation
	json.Unmarshal(w.Body.Bytes(), &conv)
	return conv.ID
}

type chatReply struct {
	Message   string `json:"message"`
	MessageID string `json:"messageId"`
	Error     string `json:"error"`
}

func (s *testServer) chat(t *testing.T, id string, body gin.H) (int, chatReply) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/chat/"+id, body)
	var reply chatReply
	json.Unmarshal(w.Body.Bytes(), &reply)
	return w.Code, reply
}

func TestE2E_NoCredentialMakesNoCall(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	for _, agent := range domain.AllAgentTypes {
		t.Run(string(agent), func(t *testing.T) {
			id := s.conversation(t, agent, "")
			code, reply := s.chat(t, id, gin.H{"message": "hello", "agentType": agent})

			if code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", code)
			}
			if reply.Error != agent.DisplayName()+" API key not configured" {
				t.Errorf("error = %q", reply.Error)
			}
		})
	}

	if n := up.calls(); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

func TestE2E_RoundTripPerProvider(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	want := map[domain.AgentType]string{
		domain.AgentGemini: "Hello from Gemini",
		domain.AgentClaude: "Hello from Claude",
		domain.AgentQwen:   "Hello from Qwen",
		domain.AgentGPT:    "hi there",
	}

	for _, agent := range domain.AllAgentTypes {
		t.Run(string(agent), func(t *testing.T) {
			id := s.conversation(t, agent, "")
			code, reply := s.chat(t, id, gin.H{"message": "hello", "agentType": agent, "apiKey": "inline-" + string(agent)})

			if code != http.StatusOK || reply.Message != want[agent] || reply.Error != "" {
				t.Errorf("reply = %d %+v, want %q", code, reply, want[agent])
			}
			if _, key := up.last(string(agent)); key != "inline-"+string(agent) {
				t.Errorf("upstream key = %q", key)
			}
		})
	}
}

func TestE2E_StoredCredentialIsUsed(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	ctx := context.Background()
	if _, err := s.db.Credentials.Create(ctx, domain.AgentClaude, "first", "sk-ant-first"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.db.Credentials.Create(ctx, domain.AgentClaude, "second", "sk-ant-second"); err != nil {
		t.Fatal(err)
	}

	id := s.conversation(t, domain.AgentClaude, "")
	if code, reply := s.chat(t, id, gin.H{"message": "hi", "agentType": "claude"}); code != http.StatusOK {
		t.Fatalf("chat = %d %+v", code, reply)
	}
	if _, key := up.last("claude"); key != "sk-ant-first" {
		t.Errorf("key = %q, want the first active key", key)
	}
}

func TestE2E_ImageAttachments(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	for _, agent := range domain.AllAgentTypes {
		t.Run(string(agent), func(t *testing.T) {
			id := s.conversation(t, agent, "")
			if code, reply := s.chat(t, id, gin.H{"message": "hello", "agentType": agent, "apiKey": "k"}); code != http.StatusOK {
				t.Fatalf("first chat = %d %+v", code, reply)
			}
			code, reply := s.chat(t, id, gin.H{"message": "what is this", "agentType": agent, "apiKey": "k", "imageUrl": testImage})
			if code != http.StatusOK {
				t.Fatalf("chat = %d %+v", code, reply)
			}

			body, _ := up.last(string(agent))
			raw, _ := json.Marshal(body)
			hasImage := strings.Contains(string(raw), "iVBORw0KGgo=")

			switch agent {
			case domain.AgentGemini, domain.AgentGPT:
				if !hasImage {
					t.Errorf("%s request has no image: %s", agent, raw)
				}
				if agent == domain.AgentGemini {
					if contents, _ := body["contents"].([]any); len(contents) != 1 {
						t.Errorf("gemini image turn sent %d contents, want 1: %s", len(contents), raw)
					}
				}
			default:
				if hasImage {
					t.Errorf("%s request carries the image: %s", agent, raw)
				}
			}
		})
	}
}

func TestE2E_StrictAttachments(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, true)

	id := s.conversation(t, domain.AgentQwen, "")
	code, reply := s.chat(t, id, gin.H{"message": "look", "agentType": "qwen", "apiKey": "k", "imageUrl": testImage})

	if code != http.StatusInternalServerError || reply.Error != "Qwen does not support image attachments" {
		t.Errorf("reply = %d %+v", code, reply)
	}
	if n := up.calls(); n != 0 {
		t.Errorf("upstream calls = %d, want 0", n)
	}
}

func TestE2E_ClaudeSystemMessage(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	id := s.conversation(t, domain.AgentClaude, "")
	if _, err := s.db.Messages.Append(context.Background(), id, domain.RoleSystem, "Answer briefly.", ""); err != nil {
		t.Fatal(err)
	}
	if code, reply := s.chat(t, id, gin.H{"message": "hi", "agentType": "claude", "apiKey": "k"}); code != http.StatusOK {
		t.Fatalf("chat = %d %+v", code, reply)
	}

	body, _ := up.last("claude")
	if body["system"] != "Answer briefly." {
		t.Errorf("system = %v", body["system"])
	}
	for _, m := range body["messages"].([]any) {
		if m.(map[string]any)["role"] == "system" {
			t.Errorf("system message leaked into messages: %v", body["messages"])
		}
	}
}

func TestE2E_GeminiHistory(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	id := s.conversation(t, domain.AgentGemini, "")
	s.chat(t, id, gin.H{"message": "first", "agentType": "gemini", "apiKey": "k"})
	s.chat(t, id, gin.H{"message": "second", "agentType": "gemini", "apiKey": "k"})

	body, _ := up.last("gemini")
	contents := body["contents"].([]any)
	if len(contents) != 3 {
		t.Fatalf("len(contents) = %d, want 3 (user, model, user)", len(contents))
	}
	roles := make([]string, len(contents))
	for i, c := range contents {
		roles[i] = c.(map[string]any)["role"].(string)
	}
	if strings.Join(roles, ",") != "user,model,user" {
		t.Errorf("roles = %v", roles)
	}
	last := contents[2].(map[string]any)["parts"].([]any)[0].(map[string]any)["text"]
	if last != "second" {
		t.Errorf("last turn = %v, want second", last)
	}
}

func TestE2E_ModelResolution(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	t.Run("conversation model", func(t *testing.T) {
		id := s.conversation(t, domain.AgentGPT, "gpt-4o-mini")
		s.chat(t, id, gin.H{"message": "hi", "agentType": "gpt", "apiKey": "k"})
		if body, _ := up.last("gpt"); body["model"] != "gpt-4o-mini" {
			t.Errorf("model = %v, want gpt-4o-mini", body["model"])
		}
	})

	t.Run("request model wins", func(t *testing.T) {
		id := s.conversation(t, domain.AgentGPT, "gpt-4o-mini")
		s.chat(t, id, gin.H{"message": "hi", "agentType": "gpt", "apiKey": "k", "model": "gpt-4-turbo"})
		if body, _ := up.last("gpt"); body["model"] != "gpt-4-turbo" {
			t.Errorf("model = %v, want gpt-4-turbo", body["model"])
		}
	})

	t.Run("catalogue default", func(t *testing.T) {
		w := s.do(t, http.MethodPost, "/api/models", gin.H{
			"agentType": "qwen", "modelValue": "qwen-long", "modelLabel": "Qwen Long", "isDefault": true,
		})
		if w.Code != http.StatusCreated {
			t.Fatalf("create model: %d %s", w.Code, w.Body.String())
		}
		id := s.conversation(t, domain.AgentQwen, "")
		s.chat(t, id, gin.H{"message": "hi", "agentType": "qwen", "apiKey": "k"})
		if body, _ := up.last("qwen"); body["model"] != "qwen-long" {
			t.Errorf("model = %v, want qwen-long", body["model"])
		}
	})
}

func TestE2E_TransportFailure(t *testing.T) {
	up := newUpstream(t)
	base := up.URL
	up.Close()

	s := setupServer(t, base, false)
	for _, agent := range domain.AllAgentTypes {
		t.Run(string(agent), func(t *testing.T) {
			id := s.conversation(t, agent, "")
			code, reply := s.chat(t, id, gin.H{"message": "hello", "agentType": agent, "apiKey": "AIzaTransportKey"})

			if code != http.StatusInternalServerError || reply.Error == "" {
				t.Errorf("reply = %d %+v, want 500 with error", code, reply)
			}
			if strings.Contains(reply.Error, "AIzaTransportKey") {
				t.Errorf("error leaks the key: %q", reply.Error)
			}

			w := s.do(t, http.MethodGet, "/api/conversations/"+id, nil)
			var conv struct {
				Messages []domain.Message `json:"messages"`
			}
			json.Unmarshal(w.Body.Bytes(), &conv)
			if len(conv.Messages) != 1 || conv.Messages[0].Role != domain.RoleUser {
				t.Errorf("stored = %+v, want only the user turn", conv.Messages)
			}
		})
	}
}

func TestE2E_Stream(t *testing.T) {
	up := newUpstream(t)
	s := setupServer(t, up.URL, false)

	id := s.conversation(t, domain.AgentGemini, "")
	w := s.do(t, http.MethodPost, "/api/chat/"+id+"/stream", gin.H{"message": "hi", "agentType": "gemini", "apiKey": "k"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var content strings.Builder
	done := false
	scanner := bufio.NewScanner(strings.NewReader(w.Body.String()))
	for scanner.Scan() {
		payload, ok := strings.CutPrefix(scanner.Text(), "data:")
		if !ok {
			continue
		}
		var ev map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(payload)), &ev); err != nil {
			t.Fatalf("bad event %q: %v", payload, err)
		}
		if c, ok := ev["content"].(string); ok {
			content.WriteString(c)
		}
		if ev["done"] == true {
			done = true
		}
	}

	if content.String() != "Hello from Gemini " {
		t.Errorf("streamed = %q", content.String())
	}
	if !done {
		t.Error("no done event")
	}

	w = s.do(t, http.MethodGet, "/api/conversations/"+id, nil)
	if !strings.Contains(w.Body.String(), `"content":"Hello from Gemini"`) {
		t.Errorf("stored reply missing: %s", w.Body.String())
	}
}
