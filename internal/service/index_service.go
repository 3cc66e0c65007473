package service

import (
	"context"
	"fmt"

	"docqa-go/internal/model"
	"docqa-go/internal/repository"
	"docqa-go/pkg/embedding"
	"docqa-go/pkg/log"
)

const (
	defaultBatchSize = 100
	maxQueryK        = 1000
)

// IndexService 是相似度索引：写入带向量的分块、按文本检索近邻、计数与重置。
type IndexService interface {
	AddDocuments(ctx context.Context, chunks []model.Chunk) error
	// Query 返回按距离升序排列的最多 k 个分块，距离在 [0,1] 内。
	Query(ctx context.Context, text string, k int) ([]model.RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

type indexService struct {
	repo      repository.VectorRepository
	embedder  embedding.Client
	batchSize int
}

// NewIndexService 创建一个新的 IndexService 实例。
func NewIndexService(repo repository.VectorRepository, embedder embedding.Client, batchSize int) IndexService {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &indexService{repo: repo, embedder: embedder, batchSize: batchSize}
}

// AddDocuments 分批向量化并写入。key 相同的分块后写覆盖先写。
func (s *indexService) AddDocuments(ctx context.Context, chunks []model.Chunk) error {
	total := len(chunks)
	for start := 0; start < total; start += s.batchSize {
		end := start + s.batchSize
		if end > total {
			end = total
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}
		vectors, err := s.embedder.CreateEmbeddings(ctx, texts)
		if err != nil {
			return model.IndexError("embed batch", err)
		}
		if len(vectors) != len(batch) {
			return model.IndexError("embed batch", fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(batch)))
		}

		docs := make([]model.EsDocument, len(batch))
		for i, c := range batch {
			docs[i] = model.EsDocument{
				VectorID:     c.Key(),
				TextContent:  c.Text,
				Vector:       vectors[i],
				ModelVersion: s.embedder.Model(),
				Metadata:     coerceMetadata(c.Metadata.ToMap()),
			}
		}
		if err := s.repo.Upsert(ctx, docs); err != nil {
			return model.IndexError("upsert batch", err)
		}
		log.Infof("[IndexService] 已写入 %d/%d 个分块", end, total)
	}
	return nil
}

func (s *indexService) Query(ctx context.Context, text string, k int) ([]model.RetrievedChunk, error) {
	if k <= 0 {
		return nil, model.ValidationError("query", fmt.Errorf("k must be positive, got %d", k))
	}
	if k > maxQueryK {
		k = maxQueryK
	}
	vector, err := s.embedder.CreateEmbedding(ctx, text)
	if err != nil {
		return nil, model.IndexError("embed query", err)
	}
	hits, err := s.repo.KNN(ctx, vector, k)
	if err != nil {
		return nil, model.IndexError("knn", err)
	}

	results := make([]model.RetrievedChunk, 0, len(hits))
	for _, h := range hits {
		results = append(results, model.RetrievedChunk{
			Chunk: model.Chunk{
				Text:     h.Document.TextContent,
				Metadata: model.MetadataFromMap(h.Document.Metadata),
			},
			Distance: scoreToDistance(h.Score),
		})
	}
	return results, nil
}

func (s *indexService) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, model.IndexError("count", err)
	}
	return n, nil
}

func (s *indexService) Clear(ctx context.Context) error {
	if err := s.repo.Recreate(ctx); err != nil {
		return model.IndexError("clear", err)
	}
	return nil
}

// scoreToDistance 把 [0,1] 的相似度得分换算为距离，并截断到 [0,1]。
func scoreToDistance(score float64) float64 {
	d := 1 - score
	if d < 0 {
		return 0
	}
	if d > 1 {
		return 1
	}
	return d
}

// coerceMetadata 保证元数据值只有存储支持的类型：nil 变为 ""，其余非基础类型转为文本。
func coerceMetadata(in map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string, bool, int, int32, int64, float32, float64:
			out[k] = val
		case *int:
			if val == nil {
				out[k] = ""
			} else {
				out[k] = *val
			}
		default:
			out[k] = fmt.Sprint(val)
		}
	}
	return out
}
