package responder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/roleverse/sceneflow/internal/config"
	"github.com/roleverse/sceneflow/internal/domain"
)

// Client talks to an OpenRouter-compatible chat completion API and turns a
// role, its personality, and the conversation window into one in-character
// reply.
type Client struct {
	apiKey       string
	baseURL      string
	httpClient   *http.Client
	defaultModel string
}

type Option func(*Client)

// WithBaseURL overrides the API endpoint, used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func New(apiKey, defaultModel string, opts ...Option) *Client {
	c := &Client{
		apiKey:       apiKey,
		baseURL:      "https://openrouter.ai/api/v1",
		httpClient:   &http.Client{Timeout: config.RequestTimeout},
		defaultModel: defaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Respond implements scene.Responder. Messages written by the given role are
// replayed as assistant turns; everything else in the window is user input.
func (c *Client) Respond(ctx context.Context, role domain.Role, window []domain.Message, personality domain.PersonalityConfig) (string, error) {
	messages := make([]chatMessage, 0, len(window)+1)
	messages = append(messages, chatMessage{Role: "system", Content: systemPrompt(role, personality)})
	for _, m := range window {
		speaker := "user"
		if m.RoleID != nil && *m.RoleID == role.ID {
			speaker = "assistant"
		}
		messages = append(messages, chatMessage{Role: speaker, Content: m.Content})
	}

	model := c.defaultModel
	if role.Model != "" {
		model = role.Model
	}
	if personality.Model != "" {
		model = personality.Model
	}

	temperature := &personality.Temperature
	// Gemini models reject the temperature parameter
	if strings.Contains(strings.ToLower(model), "gemini") {
		temperature = nil
	}

	payload, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: empty choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// systemPrompt assembles the role's base prompt with personality tuning and
// background lore.
func systemPrompt(role domain.Role, p domain.PersonalityConfig) string {
	var b strings.Builder
	if role.SystemPrompt != "" {
		b.WriteString(role.SystemPrompt)
	} else {
		fmt.Fprintf(&b, "You are %s. Stay in character.", role.Name)
	}
	if p.Tone != "" {
		fmt.Fprintf(&b, "\nTone: %s.", p.Tone)
	}
	if p.Verbosity != "" {
		fmt.Fprintf(&b, "\nVerbosity: %s.", p.Verbosity)
	}
	if len(p.Quirks) > 0 {
		fmt.Fprintf(&b, "\nQuirks: %s.", strings.Join(p.Quirks, "; "))
	}
	if role.Background != "" {
		fmt.Fprintf(&b, "\n\nBackground:\n%s", role.Background)
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
