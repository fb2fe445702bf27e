// Package ai talks to the chat-completions provider and decodes its answers
// into typed structures the rest of the service can trust.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/applypilot/applypilot-api/internal/apperr"
	"github.com/applypilot/applypilot-api/internal/config"
)

// Completion is one successful chat-completion answer.
type Completion struct {
	Content    string
	TokensUsed int
}

// Client is the minimal surface the AI features need from the provider.
type Client interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (Completion, error)
}

type chatClient struct {
	apiKey  string
	apiURL  string
	model   string
	httpCli *http.Client
	logger  zerolog.Logger
}

func NewClient(cfg config.AIConfig, logger zerolog.Logger) Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &chatClient{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		apiURL:  strings.TrimRight(strings.TrimSpace(cfg.APIURL), "/"),
		model:   cfg.Model,
		httpCli: &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "ai_client").Logger(),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *chatClient) Complete(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (Completion, error) {
	if c.apiKey == "" {
		return Completion{}, apperr.UpstreamUnavailable("AI provider is not configured", nil)
	}

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: temperature,
	})
	if err != nil {
		return Completion{}, apperr.Upstream("failed to encode AI request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return Completion{}, apperr.Upstream("failed to build AI request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpCli.Do(req)
	if err != nil {
		return Completion{}, apperr.UpstreamUnavailable("AI provider is unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Completion{}, apperr.Upstream("failed to read AI response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Dur("elapsed", time.Since(start)).
			Msg("AI provider returned error status")
		return Completion{}, apperr.Upstream(fmt.Sprintf("AI provider returned status %d", resp.StatusCode), nil)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Completion{}, apperr.Upstream("failed to decode AI response", err)
	}
	if parsed.Error != nil {
		return Completion{}, apperr.Upstream("AI provider error: "+parsed.Error.Message, nil)
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, apperr.Upstream("AI response contained no choices", nil)
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return Completion{}, apperr.Upstream("AI response was empty", nil)
	}

	c.logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("tokens", parsed.Usage.TotalTokens).
		Msg("chat completion finished")

	return Completion{Content: content, TokensUsed: parsed.Usage.TotalTokens}, nil
}
