package repository

import (
	"context"
	"math"
	"sort"
	"sync"

	"docqa-go/internal/model"
)

// MemoryVectorRepository 是进程内的暴力检索实现，得分与 Elasticsearch 的 cosine 一致：(1+cos)/2。
// 用于无 Elasticsearch 的单机部署以及测试。
type MemoryVectorRepository struct {
	mu   sync.RWMutex
	docs map[string]model.EsDocument
}

func NewMemoryVectorRepository() *MemoryVectorRepository {
	return &MemoryVectorRepository{docs: make(map[string]model.EsDocument)}
}

func (r *MemoryVectorRepository) Upsert(_ context.Context, docs []model.EsDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		r.docs[d.VectorID] = d
	}
	return nil
}

func (r *MemoryVectorRepository) KNN(_ context.Context, vector []float32, k int) ([]model.EsHit, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hits := make([]model.EsHit, 0, len(r.docs))
	for _, d := range r.docs {
		hit := d
		hit.Vector = nil
		hits = append(hits, model.EsHit{Document: hit, Score: (1 + cosine(vector, d.Vector)) / 2})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Document.VectorID < hits[j].Document.VectorID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (r *MemoryVectorRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs), nil
}

func (r *MemoryVectorRepository) Recreate(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs = make(map[string]model.EsDocument)
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
