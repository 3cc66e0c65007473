// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"docqa-go/pkg/log"
	"docqa-go/pkg/tasks"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// CorpusIngestor 产出整个语料的分块。
type CorpusIngestor interface {
	ProcessCorpus(ctx context.Context) ([]model.Chunk, error)
}

// ChatService 定义了会话编排的接口。
type ChatService interface {
	// SubmitQuery 回答一个问题；sessionID 为空时生成新的会话 ID。
	SubmitQuery(ctx context.Context, query, sessionID string) (*model.ChatResponse, error)
	StartSession(sessionID string)
	// ClearSession 清空会话日志，会话不存在时返回 false。
	ClearSession(sessionID string) bool
	// EnsureCorpus 在 force 或索引为空时（重新）加载整个语料。
	EnsureCorpus(ctx context.Context, force bool) error
	ReloadCorpus(ctx context.Context) error
	CorpusSize(ctx context.Context) (int, error)
	// RegistrySize 返回分块登记表的行数，未启用登记表时 enabled 为 false。
	RegistrySize(ctx context.Context) (n int64, enabled bool, err error)
	SessionCount() int
}

type chatService struct {
	index     IndexService
	generator Generator
	ingestor  CorpusIngestor
	sessions  *SessionStore
	chunkRepo repository.ChunkRepository // 可为 nil
	modelName string
	topK      int

	group  singleflight.Group
	loadMu sync.RWMutex // 加载期间写锁，检索期间读锁
	ready  atomic.Bool
}

// ChatServiceDeps 汇集 ChatService 的依赖。
type ChatServiceDeps struct {
	Index     IndexService
	Generator Generator
	Ingestor  CorpusIngestor
	Sessions  *SessionStore
	ChunkRepo repository.ChunkRepository
	ModelName string
	TopK      int
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(deps ChatServiceDeps) ChatService {
	topK := deps.TopK
	if topK <= 0 {
		topK = 5
	}
	return &chatService{
		index:     deps.Index,
		generator: deps.Generator,
		ingestor:  deps.Ingestor,
		sessions:  deps.Sessions,
		chunkRepo: deps.ChunkRepo,
		modelName: deps.ModelName,
		topK:      topK,
	}
}

func (s *chatService) SubmitQuery(ctx context.Context, query, sessionID string) (*model.ChatResponse, error) {
	if strings.TrimSpace(query) == "" {
		return nil, model.ValidationError("submit query", errors.New("query must not be empty"))
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	if !s.ready.Load() {
		if err := s.EnsureCorpus(ctx, false); err != nil {
			return nil, err
		}
	}

	sess := s.sessions.GetOrCreate(sessionID)

	// 强制重载清空索引到写回完成之间，检索等待加载结束
	s.loadMu.RLock()
	retrieved, err := s.index.Query(ctx, query, s.topK)
	s.loadMu.RUnlock()
	if err != nil {
		return nil, err
	}

	sess.Lock()
	defer sess.Unlock()

	answer := RefusalText
	if len(retrieved) > 0 {
		answer, err = s.generator.Generate(ctx, query, retrieved, sess.History())
		if err != nil {
			return nil, err
		}
	}
	sess.AppendTurn(query, answer)

	log.Infow("[ChatService] 回答完成", "session_id", sessionID, "retrieved", len(retrieved))
	return &model.ChatResponse{
		Response:  answer,
		Sources:   buildSources(retrieved),
		SessionID: sessionID,
	}, nil
}

// buildSources 按 (title, article_number, relevance) 完整元组去重，保留首次出现的顺序。
func buildSources(retrieved []model.RetrievedChunk) []model.Source {
	sources := make([]model.Source, 0, len(retrieved))
	for _, r := range retrieved {
		title := r.Metadata.Title
		if title == "" {
			title = "Unknown Title"
		}
		src := model.Source{
			Title:          title,
			ArticleNumber:  r.Metadata.ArticleNumber,
			RelevanceScore: 1 - r.Distance,
		}
		dup := false
		for _, seen := range sources {
			if seen.Equal(src) {
				dup = true
				break
			}
		}
		if !dup {
			sources = append(sources, src)
		}
	}
	return sources
}

func (s *chatService) StartSession(sessionID string) {
	s.sessions.Start(sessionID)
}

func (s *chatService) ClearSession(sessionID string) bool {
	return s.sessions.Clear(sessionID)
}

func (s *chatService) SessionCount() int {
	return s.sessions.Len()
}

func (s *chatService) RegistrySize(ctx context.Context) (int64, bool, error) {
	if s.chunkRepo == nil {
		return 0, false, nil
	}
	n, err := s.chunkRepo.Count(ctx)
	return n, true, err
}

func (s *chatService) CorpusSize(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

func (s *chatService) ReloadCorpus(ctx context.Context) error {
	return s.EnsureCorpus(ctx, true)
}

// EnsureCorpus 并发的同类调用合并为一次；加载一旦开始即不随单个请求取消。
func (s *chatService) EnsureCorpus(ctx context.Context, force bool) error {
	key := "ensure"
	if force {
		key = "reload"
	}
	_, err, _ := s.group.Do(key, func() (interface{}, error) {
		return nil, s.loadCorpus(context.WithoutCancel(ctx), force)
	})
	return err
}

func (s *chatService) loadCorpus(ctx context.Context, force bool) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if !force {
		n, err := s.index.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			log.Infof("[ChatService] 索引中已有 %d 个分块, 跳过加载", n)
			s.ready.Store(true)
			return nil
		}
	} else {
		log.Info("[ChatService] 强制重新加载语料, 清空索引")
		if err := s.index.Clear(ctx); err != nil {
			return err
		}
	}

	chunks, err := s.ingestor.ProcessCorpus(ctx)
	if err != nil {
		return err
	}
	log.Infof("[ChatService] 写入 %d 个分块到索引", len(chunks))
	if err := s.index.AddDocuments(ctx, chunks); err != nil {
		return err
	}
	s.syncRegistry(ctx, chunks)
	s.ready.Store(true)
	log.Info("[ChatService] 语料加载完成")
	return nil
}

// syncRegistry 把本代语料写入分块登记表，失败不影响检索。
func (s *chatService) syncRegistry(ctx context.Context, chunks []model.Chunk) {
	if s.chunkRepo == nil {
		return
	}
	rows := registryRows(chunks, s.modelName)
	if err := s.chunkRepo.ReplaceAll(ctx, rows); err != nil {
		log.Warnf("[ChatService] 更新分块登记表失败: %v", err)
	}
}

// registryRows 按 VectorID 去重，后出现的分块覆盖先出现的，与索引的 upsert 结果保持一致。
func registryRows(chunks []model.Chunk, modelName string) []*model.DocumentChunk {
	rows := make([]*model.DocumentChunk, 0, len(chunks))
	pos := make(map[string]int, len(chunks))
	for _, c := range chunks {
		row := model.NewDocumentChunk(c, modelName)
		if i, ok := pos[row.VectorID]; ok {
			rows[i] = row
			continue
		}
		pos[row.VectorID] = len(rows)
		rows = append(rows, row)
	}
	return rows
}

// ReloadProcessor 让 Kafka 消费者触发语料重载。
type ReloadProcessor struct {
	Chat ChatService
}

func (p ReloadProcessor) ProcessReload(ctx context.Context, task tasks.CorpusReloadTask) error {
	log.Infof("[ReloadProcessor] 开始重载语料, request_id: %s, reason: %s", task.RequestID, task.Reason)
	return p.Chat.ReloadCorpus(ctx)
}
