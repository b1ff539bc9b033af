package responder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/roleverse/sceneflow/internal/domain"
)

func roleID(id int64) *int64 { return &id }

func chatHandler(t *testing.T, captured *chatRequest, reply string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": reply}},
			},
		})
	}
}

func TestRespondMapsWindowToChatMessages(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(chatHandler(t, &captured, "I think, therefore I answer."))
	defer srv.Close()

	c := New("test-key", "default/model", WithBaseURL(srv.URL))
	role := domain.Role{ID: 2, Name: "Socrates", SystemPrompt: "You are Socrates."}
	window := []domain.Message{
		{RoleID: roleID(1), Content: "hello"},
		{RoleID: roleID(2), Content: "greetings"},
		{RoleID: roleID(1), Content: "what is virtue?"},
	}

	got, err := c.Respond(context.Background(), role, window, domain.PersonalityConfig{Version: 1, Temperature: 0.7})
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if got != "I think, therefore I answer." {
		t.Fatalf("unexpected reply %q", got)
	}

	if captured.Model != "default/model" {
		t.Fatalf("want default model, got %q", captured.Model)
	}
	if captured.Temperature == nil || *captured.Temperature != 0.7 {
		t.Fatalf("want temperature 0.7, got %v", captured.Temperature)
	}
	want := []string{"system", "user", "assistant", "user"}
	if len(captured.Messages) != len(want) {
		t.Fatalf("want %d messages, got %d", len(want), len(captured.Messages))
	}
	for i, w := range want {
		if captured.Messages[i].Role != w {
			t.Errorf("message %d: want role %s, got %s", i, w, captured.Messages[i].Role)
		}
	}
}

func TestRespondModelPrecedence(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(chatHandler(t, &captured, "ok"))
	defer srv.Close()

	c := New("test-key", "default/model", WithBaseURL(srv.URL))
	role := domain.Role{ID: 1, Name: "Einstein", Model: "role/model"}

	if _, err := c.Respond(context.Background(), role, nil, domain.PersonalityConfig{Version: 1, Temperature: 1}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if captured.Model != "role/model" {
		t.Fatalf("role model should beat the default, got %q", captured.Model)
	}

	if _, err := c.Respond(context.Background(), role, nil, domain.PersonalityConfig{Version: 1, Temperature: 1, Model: "personality/model"}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if captured.Model != "personality/model" {
		t.Fatalf("personality model should beat the role model, got %q", captured.Model)
	}
}

func TestRespondSkipsTemperatureForGemini(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(chatHandler(t, &captured, "ok"))
	defer srv.Close()

	c := New("test-key", "google/gemini-2.0-flash", WithBaseURL(srv.URL))
	if _, err := c.Respond(context.Background(), domain.Role{ID: 1, Name: "Tutor"}, nil, domain.PersonalityConfig{Version: 1, Temperature: 1.5}); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if captured.Temperature != nil {
		t.Fatalf("gemini request must omit temperature, got %v", *captured.Temperature)
	}
}

func TestRespondPersonalityInSystemPrompt(t *testing.T) {
	var captured chatRequest
	srv := httptest.NewServer(chatHandler(t, &captured, "ok"))
	defer srv.Close()

	c := New("test-key", "default/model", WithBaseURL(srv.URL))
	role := domain.Role{ID: 1, Name: "Holmes", SystemPrompt: "You are Holmes.", Background: "Consulting detective of Baker Street."}
	p := domain.PersonalityConfig{Version: 1, Tone: "dry", Verbosity: "terse", Temperature: 1, Quirks: []string{"quotes Latin"}}

	if _, err := c.Respond(context.Background(), role, nil, p); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	sys := captured.Messages[0].Content
	for _, want := range []string{"You are Holmes.", "dry", "terse", "quotes Latin", "Baker Street"} {
		if !strings.Contains(sys, want) {
			t.Errorf("system prompt missing %q:\n%s", want, sys)
		}
	}
}

func TestRespondUpstreamErrors(t *testing.T) {
	t.Run("non-200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
		}))
		defer srv.Close()

		c := New("test-key", "default/model", WithBaseURL(srv.URL))
		if _, err := c.Respond(context.Background(), domain.Role{ID: 1}, nil, domain.PersonalityConfig{Version: 1, Temperature: 1}); err == nil {
			t.Fatal("want error on 429")
		}
	})

	t.Run("empty choices", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Write([]byte(`{"choices":[]}`))
		}))
		defer srv.Close()

		c := New("test-key", "default/model", WithBaseURL(srv.URL))
		if _, err := c.Respond(context.Background(), domain.Role{ID: 1}, nil, domain.PersonalityConfig{Version: 1, Temperature: 1}); err == nil {
			t.Fatal("want error on empty choices")
		}
	})
}
