// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"

	"docqa-go/internal/model"
	"docqa-go/pkg/es"

	"github.com/elastic/go-elasticsearch/v8"
)

// VectorRepository 定义了向量索引的存储能力。
// KNN 返回的 Score 越大越相似，取值 [0,1]。
type VectorRepository interface {
	Upsert(ctx context.Context, docs []model.EsDocument) error
	KNN(ctx context.Context, vector []float32, k int) ([]model.EsHit, error)
	Count(ctx context.Context) (int, error)
	// Recreate 删除并以相同名字重建索引。
	Recreate(ctx context.Context) error
}

type esVectorRepository struct {
	client *elasticsearch.Client
	spec   es.IndexSpec
}

// NewESVectorRepository 创建一个基于 Elasticsearch 的 VectorRepository。
func NewESVectorRepository(client *elasticsearch.Client, spec es.IndexSpec) VectorRepository {
	return &esVectorRepository{client: client, spec: spec}
}

func (r *esVectorRepository) Upsert(ctx context.Context, docs []model.EsDocument) error {
	return es.BulkIndex(ctx, r.client, r.spec.Name, docs)
}

func (r *esVectorRepository) KNN(ctx context.Context, vector []float32, k int) ([]model.EsHit, error) {
	return es.KnnSearch(ctx, r.client, r.spec.Name, vector, k)
}

func (r *esVectorRepository) Count(ctx context.Context) (int, error) {
	return es.Count(ctx, r.client, r.spec.Name)
}

func (r *esVectorRepository) Recreate(ctx context.Context) error {
	return es.RecreateIndex(ctx, r.client, r.spec)
}
