package llm

import (
	"context"
	"fmt"
	"net/http"

	"docqa-go/internal/config"
)

// openAICompatibleClient 调用 /chat/completions（DeepSeek、OpenAI 等兼容接口），非流式。
type openAICompatibleClient struct {
	cfg    config.LLMConfig
	client *http.Client
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature *float64  `json:"temperature,omitempty"`
	TopP        *float64  `json:"top_p,omitempty"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openAICompatibleClient) Model() string { return c.cfg.Model }

func (c *openAICompatibleClient) Complete(ctx context.Context, system string, messages []Message, gen *GenerationParams) (string, error) {
	params := resolve(c.cfg.Generation, gen)
	all := make([]Message, 0, len(messages)+1)
	if system != "" {
		all = append(all, Message{Role: "system", Content: system})
	}
	all = append(all, messages...)

	reqBody := chatRequest{
		Model:       c.cfg.Model,
		Messages:    all,
		Temperature: params.Temperature,
		TopP:        params.TopP,
		MaxTokens:   params.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}

	var resp chatResponse
	if err := postJSON(ctx, c.client, c.cfg.BaseURL+"/chat/completions", headers, reqBody, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat api returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
