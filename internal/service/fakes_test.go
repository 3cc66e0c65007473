package service

import (
	"context"
	"errors"
	"sync"

	"docqa-go/internal/model"
	"docqa-go/pkg/embedding"
	"docqa-go/pkg/llm"
)

func intPtr(n int) *int { return &n }

func chunk(article *int, title, file string, idx, total int, text string) model.Chunk {
	return model.Chunk{Text: text, Metadata: model.Metadata{
		ArticleNumber: article, Title: title, FileName: file, ChunkIndex: idx, TotalChunks: total,
	}}
}

// batchRecorder 记录每次批量向量化的大小。
type batchRecorder struct {
	embedding.Client
	mu      sync.Mutex
	batches []int
	fail    bool
}

func (b *batchRecorder) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	b.mu.Lock()
	b.batches = append(b.batches, len(texts))
	b.mu.Unlock()
	if b.fail {
		return nil, errors.New("embedding backend down")
	}
	return b.Client.CreateEmbeddings(ctx, texts)
}

// fakeIngestor 在 started/release 非空时，先通知 started 再阻塞到 release 关闭。
type fakeIngestor struct {
	mu      sync.Mutex
	chunks  []model.Chunk
	calls   int
	err     error
	started chan struct{}
	release chan struct{}
}

func (f *fakeIngestor) ProcessCorpus(_ context.Context) ([]model.Chunk, error) {
	f.mu.Lock()
	f.calls++
	started, release := f.started, f.release
	f.mu.Unlock()

	if started != nil {
		close(started)
		<-release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]model.Chunk, len(f.chunks))
	copy(out, f.chunks)
	return out, nil
}

func (f *fakeIngestor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type generateCall struct {
	Query   string
	Chunks  []model.RetrievedChunk
	History []model.ChatMessage
}

// fakeGenerator 记录每次调用，GenerateFn 为空时回答 "answer: <query>"。
type fakeGenerator struct {
	mu         sync.Mutex
	calls      []generateCall
	GenerateFn func(query string) (string, error)
}

func (f *fakeGenerator) Generate(_ context.Context, query string, chunks []model.RetrievedChunk, history []model.ChatMessage) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, generateCall{Query: query, Chunks: chunks, History: history})
	fn := f.GenerateFn
	f.mu.Unlock()
	if fn != nil {
		return fn(query)
	}
	return "answer: " + query, nil
}

func (f *fakeGenerator) Calls() []generateCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]generateCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// fakeLLM 记录最后一次 Complete 的入参。
type fakeLLM struct {
	system   string
	messages []llm.Message
	params   *llm.GenerationParams
	answer   string
	err      error
}

func (f *fakeLLM) Complete(_ context.Context, system string, messages []llm.Message, gen *llm.GenerationParams) (string, error) {
	f.system, f.messages, f.params = system, messages, gen
	return f.answer, f.err
}

func (f *fakeLLM) Model() string { return "fake-llm" }

type fakeChunkRepo struct {
	rows []*model.DocumentChunk
	err  error
}

func (f *fakeChunkRepo) ReplaceAll(_ context.Context, rows []*model.DocumentChunk) error {
	if f.err != nil {
		return f.err
	}
	f.rows = rows
	return nil
}

func (f *fakeChunkRepo) Count(_ context.Context) (int64, error) { return int64(len(f.rows)), nil }
