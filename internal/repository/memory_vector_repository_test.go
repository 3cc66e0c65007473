package repository

import (
	"context"
	"testing"

	"docqa-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVectorRepository(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryVectorRepository()

	require.NoError(t, r.Upsert(ctx, []model.EsDocument{
		{VectorID: "1_0", TextContent: "x", Vector: []float32{1, 0}},
		{VectorID: "2_0", TextContent: "y", Vector: []float32{0, 1}},
		{VectorID: "3_0", TextContent: "-x", Vector: []float32{-1, 0}},
	}))
	n, _ := r.Count(ctx)
	assert.Equal(t, 3, n)

	hits, err := r.KNN(ctx, []float32{1, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "1_0", hits[0].Document.VectorID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.InDelta(t, 0.5, hits[1].Score, 1e-9)
	assert.Nil(t, hits[0].Document.Vector)

	// 相同 key 覆盖写入
	require.NoError(t, r.Upsert(ctx, []model.EsDocument{{VectorID: "1_0", TextContent: "x2", Vector: []float32{1, 0}}}))
	n, _ = r.Count(ctx)
	assert.Equal(t, 3, n)

	require.NoError(t, r.Recreate(ctx))
	n, _ = r.Count(ctx)
	assert.Zero(t, n)
	hits, err = r.KNN(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}
