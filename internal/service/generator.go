package service

import (
	"context"

	"docqa-go/internal/config"
	"docqa-go/internal/model"
	"docqa-go/pkg/llm"
	"docqa-go/pkg/log"
)

// Generator 根据检索到的分块与会话历史生成回答。
type Generator interface {
	Generate(ctx context.Context, query string, chunks []model.RetrievedChunk, history []model.ChatMessage) (string, error)
}

type llmGenerator struct {
	client llm.Client
	gen    config.LLMGenerationConfig
}

// NewGenerator 创建一个基于 LLM 客户端的 Generator。
func NewGenerator(client llm.Client, gen config.LLMGenerationConfig) Generator {
	return &llmGenerator{client: client, gen: gen}
}

func (g *llmGenerator) Generate(ctx context.Context, query string, chunks []model.RetrievedChunk, history []model.ChatMessage) (string, error) {
	system := buildSystemPrompt(buildContextText(chunks))
	messages := composeMessages(history, query)

	answer, err := g.client.Complete(ctx, system, messages, g.buildGenerationParams())
	if err != nil {
		log.Errorf("[Generator] 调用模型失败, model: %s, error: %v", g.client.Model(), err)
		return "", model.GenerationError("complete", err)
	}
	return answer, nil
}

// composeMessages 按顺序回放历史中的 user/assistant 消息，最后附上本轮问题。
func composeMessages(history []model.ChatMessage, query string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+1)
	for _, m := range history {
		if m.Role != model.RoleUser && m.Role != model.RoleAssistant {
			continue
		}
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	return append(msgs, llm.Message{Role: model.RoleUser, Content: query})
}

// buildGenerationParams 温度总是显式传递（默认 0）。
func (g *llmGenerator) buildGenerationParams() *llm.GenerationParams {
	t := g.gen.Temperature
	params := &llm.GenerationParams{Temperature: &t}
	if g.gen.TopP > 0 {
		p := g.gen.TopP
		params.TopP = &p
	}
	if g.gen.MaxTokens > 0 {
		m := g.gen.MaxTokens
		params.MaxTokens = &m
	}
	return params
}
