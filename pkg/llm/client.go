// Package llm provides clients for interacting with Large Language Models.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docqa-go/internal/config"
)

// Client defines the interface for an LLM client.
type Client interface {
	// Complete 以 system 指令与 role-based 消息调用模型，返回完整回答文本。
	Complete(ctx context.Context, system string, messages []Message, gen *GenerationParams) (string, error)
	Model() string
}

// NewClient creates a new LLM client based on the provider in the config.
func NewClient(cfg config.LLMConfig) (Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	switch strings.ToLower(cfg.Provider) {
	case "anthropic", "":
		return &anthropicClient{cfg: cfg, client: httpClient}, nil
	case "openai", "deepseek":
		return &openAICompatibleClient{cfg: cfg, client: httpClient}, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// Message 表示一条角色消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GenerationParams 控制生成行为，nil 字段回落到配置值
type GenerationParams struct {
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// resolve 合并传参与配置。温度总是显式发送，0 是有效值。
func resolve(cfg config.LLMGenerationConfig, gen *GenerationParams) GenerationParams {
	t := cfg.Temperature
	out := GenerationParams{Temperature: &t}
	if cfg.TopP != 0 {
		p := cfg.TopP
		out.TopP = &p
	}
	m := cfg.MaxTokens
	if m <= 0 {
		m = 1000
	}
	out.MaxTokens = &m
	if gen != nil {
		if gen.Temperature != nil {
			out.Temperature = gen.Temperature
		}
		if gen.TopP != nil {
			out.TopP = gen.TopP
		}
		if gen.MaxTokens != nil {
			out.MaxTokens = gen.MaxTokens
		}
	}
	return out
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body interface{}, out interface{}) error {
	reqBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal chat request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call chat api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("chat api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode chat response: %w", err)
	}
	return nil
}
