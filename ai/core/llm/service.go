// Package llm wraps the OpenAI-compatible chat completion protocol used by
// every provider the service talks to. The model call is treated as an
// opaque function: messages in, text out, failing with a classified error.
package llm

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Invoker is the collaborator interface consumed by the pipeline: one chat
// completion under an explicit credential.
type Invoker interface {
	// Invoke performs a chat completion with the service's default sampling.
	Invoke(ctx context.Context, messages []Message, credential string) (string, error)

	// InvokeStructured performs a chat completion with low sampling
	// temperature, used for strict-schema JSON tasks such as extraction.
	InvokeStructured(ctx context.Context, messages []Message, credential string) (string, error)
}

// Config represents LLM client configuration.
type Config struct {
	Provider    string // deepseek, openai, siliconflow, ollama, zai
	Model       string // deepseek-chat, gpt-4o, glm-4.7
	BaseURL     string
	MaxTokens   int     // default: 2048
	Temperature float32 // default: 0.7
	Timeout     int     // Request timeout in seconds (default: 120)
}

type Client struct {
	config     *Config
	httpClient *http.Client

	mu      sync.Mutex
	clients map[string]*openai.Client // one underlying client per credential
}

// NewClient creates a new LLM client. Credentials are supplied per call so a
// failover policy can rotate them without rebuilding the client.
func NewClient(cfg *Config) *Client {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120
	}
	return &Client{
		config:     cfg,
		httpClient: newHTTPClient(),
		clients:    make(map[string]*openai.Client),
	}
}

func (c *Client) clientFor(credential string) *openai.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.clients[credential]; ok {
		return client
	}

	clientConfig := openai.DefaultConfig(credential)
	if c.config.BaseURL != "" {
		clientConfig.BaseURL = c.config.BaseURL
	}
	clientConfig.HTTPClient = c.httpClient

	client := openai.NewClientWithConfig(clientConfig)
	c.clients[credential] = client
	return client
}

func (c *Client) Invoke(ctx context.Context, messages []Message, credential string) (string, error) {
	return c.invoke(ctx, messages, credential, c.config.Temperature)
}

// InvokeStructured runs with temperature 0.1 to favor strict-schema
// compliance. This is a tuning knob, not a correctness requirement.
func (c *Client) InvokeStructured(ctx context.Context, messages []Message, credential string) (string, error) {
	structuredTemperature := float32(0.1)
	if c.config.Temperature < structuredTemperature {
		structuredTemperature = c.config.Temperature
	}
	return c.invoke(ctx, messages, credential, structuredTemperature)
}

func (c *Client) invoke(ctx context.Context, messages []Message, credential string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(c.config.Timeout)*time.Second)
	defer cancel()

	slog.Debug("LLM: chat request",
		"model", c.config.Model,
		"messages_count", len(messages),
		"credential", MaskCredential(credential),
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       c.config.Model,
		MaxTokens:   c.config.MaxTokens,
		Temperature: temperature,
		Messages:    convertMessages(messages),
	}

	resp, err := c.clientFor(credential).CreateChatCompletion(ctx, req)
	if err != nil {
		classified := classify(err)
		slog.Error("LLM: chat request failed",
			"error", classified,
			"rate_limited", IsRateLimited(classified),
			"credential", MaskCredential(credential),
		)
		return "", classified
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		slog.Warn("LLM: empty response")
		return "", ErrMalformed
	}

	slog.Debug("LLM: chat response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", resp.Usage.TotalTokens,
		"duration_ms", time.Since(startTime).Milliseconds(),
	)

	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		switch m.Role {
		case "system":
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleSystem,
				Content: m.Content,
			}
		case "assistant":
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Content,
			}
		default:
			llmMessages[i] = openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: m.Content,
			}
		}
	}
	return llmMessages
}

func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Helper for creating system prompts.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}

// Helper for creating assistant messages.
func AssistantMessage(content string) Message {
	return Message{Role: "assistant", Content: content}
}
