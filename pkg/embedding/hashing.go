package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashingClient 是一个本地、确定性的 embedding：对词和相邻词对做特征哈希，再做 L2 归一化。
// 不依赖外部服务，适合离线部署与测试。
type HashingClient struct {
	dims int
}

func NewHashingClient(dims int) *HashingClient {
	if dims <= 0 {
		dims = 384
	}
	return &HashingClient{dims: dims}
}

func (h *HashingClient) Model() string   { return fmt.Sprintf("hashing-%d", h.dims) }
func (h *HashingClient) Dimensions() int { return h.dims }

func (h *HashingClient) CreateEmbedding(_ context.Context, text string) ([]float32, error) {
	return h.embed(text), nil
}

func (h *HashingClient) CreateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = h.embed(t)
	}
	return out, nil
}

func (h *HashingClient) embed(text string) []float32 {
	vec := make([]float64, h.dims)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	out := make([]float32, h.dims)
	if norm == 0 {
		// 零向量无法计算余弦相似度
		out[0] = 1
		return out
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out
}

func (h *HashingClient) add(vec []float64, feature string, weight float64) {
	hasher := fnv.New64a()
	_, _ = hasher.Write([]byte(feature))
	sum := hasher.Sum64()
	idx := int(sum % uint64(h.dims))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
