package es

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"docqa-go/internal/config"
	"docqa-go/internal/model"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeES 只实现测试用到的几个接口，所有响应都带上客户端要求的产品头。
type fakeES struct {
	mu       sync.Mutex
	exists   bool
	meta     string
	created  string
	bulkBody string
	bulkResp string
	search   string
	count    int
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	body, _ := io.ReadAll(r.Body)

	switch {
	case r.Method == http.MethodHead && r.URL.Path == "/docs":
		if f.exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && r.URL.Path == "/docs":
		f.created = string(body)
		f.exists = true
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.Method == http.MethodDelete && r.URL.Path == "/docs":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"index_not_found_exception"}`))
			return
		}
		f.exists = false
		_, _ = w.Write([]byte(`{"acknowledged":true}`))
	case r.URL.Path == "/docs/_mapping":
		_, _ = w.Write([]byte(`{"docs":{"mappings":{"_meta":` + f.meta + `}}}`))
	case r.URL.Path == "/docs/_bulk":
		f.bulkBody = string(body)
		_, _ = w.Write([]byte(f.bulkResp))
	case r.URL.Path == "/docs/_search":
		_, _ = w.Write([]byte(f.search))
	case r.URL.Path == "/docs/_count":
		if !f.exists {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"index_not_found_exception"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]int{"count": f.count})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, f *fakeES) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	client, err := NewClient(config.ElasticsearchConfig{Addresses: srv.URL})
	require.NoError(t, err)
	return client
}

var testSpec = IndexSpec{Name: "docs", Model: "hashing-v1", Dims: 8}

func TestEnsureIndex_CreatesWithMeta(t *testing.T) {
	f := &fakeES{}
	client := newTestClient(t, f)

	require.NoError(t, EnsureIndex(context.Background(), client, testSpec))

	var mapping map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(f.created), &mapping))
	meta := mapping["mappings"]["_meta"].(map[string]interface{})
	assert.Equal(t, "hashing-v1", meta["embedding_model"])
	assert.Equal(t, float64(8), meta["dims"])
	assert.Contains(t, f.created, `"similarity": "cosine"`)
}

func TestEnsureIndex_ValidatesExistingMeta(t *testing.T) {
	f := &fakeES{exists: true, meta: `{"embedding_model":"hashing-v1","dims":8}`}
	client := newTestClient(t, f)
	assert.NoError(t, EnsureIndex(context.Background(), client, testSpec))

	f.meta = `{"embedding_model":"text-embedding-3-small","dims":8}`
	err := EnsureIndex(context.Background(), client, testSpec)
	assert.ErrorIs(t, err, ErrModelMismatch)
	assert.Empty(t, f.created)
}

func TestRecreateIndex_MissingIndex(t *testing.T) {
	f := &fakeES{}
	client := newTestClient(t, f)

	require.NoError(t, RecreateIndex(context.Background(), client, testSpec))
	assert.True(t, f.exists)
	assert.NotEmpty(t, f.created)
}

func TestBulkIndex(t *testing.T) {
	f := &fakeES{bulkResp: `{"errors":false,"items":[]}`}
	client := newTestClient(t, f)

	docs := []model.EsDocument{
		{VectorID: "1_0", TextContent: "alpha", Vector: []float32{1, 0}},
		{VectorID: "1_1", TextContent: "beta", Vector: []float32{0, 1}},
	}
	require.NoError(t, BulkIndex(context.Background(), client, "docs", docs))

	lines := strings.Split(strings.TrimSpace(f.bulkBody), "\n")
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_index":"docs","_id":"1_0"}}`, lines[0])
	assert.Contains(t, lines[3], `"text_content":"beta"`)
}

func TestBulkIndex_ItemErrors(t *testing.T) {
	f := &fakeES{bulkResp: `{"errors":true,"items":[
		{"index":{"_id":"1_0","status":201}},
		{"index":{"_id":"1_1","status":400,"error":{"type":"mapper_parsing_exception","reason":"bad vector"}}}
	]}`}
	client := newTestClient(t, f)

	err := BulkIndex(context.Background(), client, "docs", []model.EsDocument{{VectorID: "1_0"}, {VectorID: "1_1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 failed items")
	assert.Contains(t, err.Error(), "bad vector")
}

func TestKnnSearch(t *testing.T) {
	f := &fakeES{search: `{"hits":{"hits":[
		{"_id":"7_0","_score":0.9,"_source":{"vector_id":"7_0","text_content":"close","metadata":{"article_number":7,"title":"Seven"}}},
		{"_id":"8_2","_score":0.4,"_source":{"text_content":"far","metadata":{"article_number":"","title":"x.html"}}}
	]}}`}
	client := newTestClient(t, f)

	hits, err := KnnSearch(context.Background(), client, "docs", []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "7_0", hits[0].Document.VectorID)
	assert.InDelta(t, 0.9, hits[0].Score, 1e-9)
	assert.Equal(t, "8_2", hits[1].Document.VectorID)
	assert.Equal(t, "far", hits[1].Document.TextContent)
}

func TestCount(t *testing.T) {
	f := &fakeES{}
	client := newTestClient(t, f)

	n, err := Count(context.Background(), client, "docs")
	require.NoError(t, err)
	assert.Zero(t, n)

	f.exists, f.count = true, 12
	n, err = Count(context.Background(), client, "docs")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}
