package model

// EsDocument 定义了存储在 Elasticsearch 中的文档结构。
type EsDocument struct {
	VectorID     string                 `json:"vector_id"` // 唯一标识，即 Chunk.Key()
	TextContent  string                 `json:"text_content"`
	Vector       []float32              `json:"vector,omitempty"` // 文本内容的向量表示
	ModelVersion string                 `json:"model_version"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// EsHit 是一次 kNN 检索命中的文档与得分。
type EsHit struct {
	Document EsDocument
	Score    float64
}
