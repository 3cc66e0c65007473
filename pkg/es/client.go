// Package es 提供了与 Elasticsearch 交互的客户端功能：索引管理、批量写入、kNN 检索与计数。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"docqa-go/internal/config"
	"docqa-go/internal/model"
	"docqa-go/pkg/log"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

var ESClient *elasticsearch.Client

// ErrModelMismatch 表示已有索引是用另一个 embedding 模型（或维度）建立的。
var ErrModelMismatch = errors.New("index embedding model mismatch")

// IndexSpec 描述向量索引的名字以及写入它的 embedding 模型。
type IndexSpec struct {
	Name  string
	Model string
	Dims  int
}

// NewClient 根据配置创建 Elasticsearch 客户端，addresses 支持逗号分隔的多个地址。
func NewClient(esCfg config.ElasticsearchConfig) (*elasticsearch.Client, error) {
	var addrs []string
	for _, a := range strings.Split(esCfg.Addresses, ",") {
		if a = strings.TrimSpace(a); a != "" {
			addrs = append(addrs, a)
		}
	}
	cfg := elasticsearch.Config{
		Addresses: addrs,
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	return elasticsearch.NewClient(cfg)
}

// InitES 初始化全局 Elasticsearch 客户端，并确保索引存在且与当前 embedding 模型一致。
func InitES(ctx context.Context, esCfg config.ElasticsearchConfig, spec IndexSpec) error {
	client, err := NewClient(esCfg)
	if err != nil {
		return err
	}
	ESClient = client
	return EnsureIndex(ctx, client, spec)
}

func indexMapping(spec IndexSpec) string {
	return fmt.Sprintf(`{
		"mappings": {
			"_meta": {
				"embedding_model": %q,
				"dims": %d
			},
			"properties": {
				"vector_id": { "type": "keyword" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"model_version": { "type": "keyword" },
				"metadata": {
					"properties": {
						"article_number": { "type": "keyword" },
						"title": { "type": "text" },
						"doc_id": { "type": "keyword" },
						"filename": { "type": "keyword" },
						"source_path": { "type": "keyword" },
						"chunk_index": { "type": "integer" },
						"total_chunks": { "type": "integer" }
					}
				}
			}
		}
	}`, spec.Model, spec.Dims, spec.Dims)
}

// EnsureIndex 检查索引是否存在：不存在则创建；存在则校验 _meta 中记录的 embedding 模型和维度。
func EnsureIndex(ctx context.Context, client *elasticsearch.Client, spec IndexSpec) error {
	res, err := client.Indices.Exists([]string{spec.Name}, client.Indices.Exists.WithContext(ctx))
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	res.Body.Close()

	switch res.StatusCode {
	case http.StatusOK:
		return checkIndexMeta(ctx, client, spec)
	case http.StatusNotFound:
		return createIndex(ctx, client, spec)
	default:
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", spec.Name, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}
}

func createIndex(ctx context.Context, client *elasticsearch.Client, spec IndexSpec) error {
	res, err := client.Indices.Create(
		spec.Name,
		client.Indices.Create.WithBody(strings.NewReader(indexMapping(spec))),
		client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", spec.Name, err)
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", spec.Name, res.String())
		return fmt.Errorf("创建索引时 Elasticsearch 返回错误: %s", res.Status())
	}
	log.Infof("索引 '%s' 创建成功, model: %s, dims: %d", spec.Name, spec.Model, spec.Dims)
	return nil
}

type indexMeta struct {
	Mappings struct {
		Meta struct {
			EmbeddingModel string `json:"embedding_model"`
			Dims           int    `json:"dims"`
		} `json:"_meta"`
	} `json:"mappings"`
}

func checkIndexMeta(ctx context.Context, client *elasticsearch.Client, spec IndexSpec) error {
	res, err := client.Indices.GetMapping(
		client.Indices.GetMapping.WithIndex(spec.Name),
		client.Indices.GetMapping.WithContext(ctx),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("读取索引 mapping 失败: %s", res.Status())
	}

	var body map[string]indexMeta
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("解析索引 mapping 失败: %w", err)
	}
	meta, ok := body[spec.Name]
	if !ok {
		return fmt.Errorf("mapping 响应中缺少索引 '%s'", spec.Name)
	}
	got := meta.Mappings.Meta
	if got.EmbeddingModel != spec.Model || got.Dims != spec.Dims {
		return fmt.Errorf("%w: index '%s' built with %s/%d, configured %s/%d",
			ErrModelMismatch, spec.Name, got.EmbeddingModel, got.Dims, spec.Model, spec.Dims)
	}
	log.Infof("索引 '%s' 已存在, model: %s, dims: %d", spec.Name, got.EmbeddingModel, got.Dims)
	return nil
}

// RecreateIndex 删除并以相同名字重建索引，索引不存在时直接创建。
func RecreateIndex(ctx context.Context, client *elasticsearch.Client, spec IndexSpec) error {
	res, err := client.Indices.Delete([]string{spec.Name}, client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("删除索引 '%s' 失败: %s", spec.Name, res.Status())
	}
	log.Infof("索引 '%s' 已删除, 准备重建", spec.Name)
	return createIndex(ctx, client, spec)
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		ID     string `json:"_id"`
		Status int    `json:"status"`
		Error  *struct {
			Type   string `json:"type"`
			Reason string `json:"reason"`
		} `json:"error"`
	} `json:"items"`
}

// BulkIndex 通过 _bulk 接口批量写入文档，文档 ID 取 VectorID，同 ID 覆盖写入。
func BulkIndex(ctx context.Context, client *elasticsearch.Client, indexName string, docs []model.EsDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]map[string]string{"index": {"_index": indexName, "_id": doc.VectorID}}
		if err := enc.Encode(action); err != nil {
			return err
		}
		if err := enc.Encode(doc); err != nil {
			return err
		}
	}

	req := esapi.BulkRequest{
		Index:   indexName,
		Body:    &buf,
		Refresh: "wait_for",
	}
	res, err := req.Do(ctx, client)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		log.Errorf("批量写入 Elasticsearch 出错: %s", res.String())
		return fmt.Errorf("bulk request failed: %s", res.Status())
	}

	var br bulkResponse
	if err := json.NewDecoder(res.Body).Decode(&br); err != nil {
		return fmt.Errorf("解析 bulk 响应失败: %w", err)
	}
	if !br.Errors {
		return nil
	}
	failed := 0
	var first string
	for _, item := range br.Items {
		for _, r := range item {
			if r.Error != nil {
				if failed == 0 {
					first = fmt.Sprintf("%s: %s: %s", r.ID, r.Error.Type, r.Error.Reason)
				}
				failed++
			}
		}
	}
	return fmt.Errorf("bulk request had %d failed items, first: %s", failed, first)
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string           `json:"_id"`
			Score  float64          `json:"_score"`
			Source model.EsDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// KnnSearch 对 vector 字段做近似最近邻检索，返回按得分降序排列的命中。
func KnnSearch(ctx context.Context, client *elasticsearch.Client, indexName string, vector []float32, k int) ([]model.EsHit, error) {
	numCandidates := k * 10
	if numCandidates < 100 {
		numCandidates = 100
	}
	query := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": numCandidates,
		},
		"size": k,
		"_source": map[string]interface{}{
			"excludes": []string{"vector"},
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, err
	}

	res, err := client.Search(
		client.Search.WithContext(ctx),
		client.Search.WithIndex(indexName),
		client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		log.Errorf("kNN 检索返回错误: %s, body: %s", res.Status(), string(body))
		return nil, fmt.Errorf("knn search failed: %s", res.Status())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("解析检索结果失败: %w", err)
	}
	hits := make([]model.EsHit, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		doc := h.Source
		if doc.VectorID == "" {
			doc.VectorID = h.ID
		}
		hits = append(hits, model.EsHit{Document: doc, Score: h.Score})
	}
	return hits, nil
}

// Count 返回索引中的文档数，索引不存在时返回 0。
func Count(ctx context.Context, client *elasticsearch.Client, indexName string) (int, error) {
	res, err := client.Count(
		client.Count.WithContext(ctx),
		client.Count.WithIndex(indexName),
	)
	if err != nil {
		return 0, err
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return 0, nil
	}
	if res.IsError() {
		return 0, fmt.Errorf("count failed: %s", res.Status())
	}
	var body struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("解析 count 响应失败: %w", err)
	}
	return body.Count, nil
}
