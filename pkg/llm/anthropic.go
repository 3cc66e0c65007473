package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"docqa-go/internal/config"
)

const anthropicVersion = "2023-06-01"

// anthropicClient 调用 Anthropic Messages API。
type anthropicClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

type messagesRequest struct {
	Model       string    `json:"model"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

func (c *anthropicClient) Model() string { return c.cfg.Model }

func (c *anthropicClient) Complete(ctx context.Context, system string, messages []Message, gen *GenerationParams) (string, error) {
	params := resolve(c.cfg.Generation, gen)
	reqBody := messagesRequest{
		Model:       c.cfg.Model,
		System:      system,
		Messages:    messages,
		MaxTokens:   *params.MaxTokens,
		Temperature: params.Temperature,
		TopP:        params.TopP,
	}
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": anthropicVersion,
	}

	var resp messagesResponse
	if err := postJSON(ctx, c.client, strings.TrimRight(c.cfg.BaseURL, "/")+"/v1/messages", headers, reqBody, &resp); err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("messages api returned no text content (stop_reason=%s)", resp.StopReason)
	}
	return sb.String(), nil
}
