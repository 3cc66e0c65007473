package pipeline

import (
	"strings"
	"testing"
	"unicode/utf8"

	"docqa-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reconstruct 去掉每块与前文重叠的前缀后拼接，同时校验重叠部分确实一致。
func reconstruct(t *testing.T, chunks []string, overlap int) string {
	t.Helper()
	var out []rune
	for i, c := range chunks {
		r := []rune(c)
		if i == 0 {
			out = append(out, r...)
			continue
		}
		shared := overlap
		if shared > len(out) {
			shared = len(out)
		}
		require.GreaterOrEqual(t, len(r), shared)
		require.Equal(t, string(out[len(out)-shared:]), string(r[:shared]), "chunk %d overlap", i)
		require.Greater(t, len(r), shared, "chunk %d must advance", i)
		out = append(out, r[shared:]...)
	}
	return string(out)
}

func TestChunkText_Reconstructs(t *testing.T) {
	text := strings.Repeat("The device must be charged before first use. Keep it dry!\nIs it waterproof? No.\n", 40) +
		"Trailing fragment without terminator"
	cases := []struct{ size, overlap int }{
		{1000, 200}, {100, 20}, {50, 0}, {37, 36}, {10, 9}, {1, 0}, {7, 3},
	}
	for _, tc := range cases {
		chunks, err := ChunkText(text, tc.size, tc.overlap)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for _, c := range chunks {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), tc.size)
		}
		assert.Equal(t, text, reconstruct(t, chunks, tc.overlap), "size=%d overlap=%d", tc.size, tc.overlap)
	}
}

func TestChunkText_NoBreaksAndMultibyte(t *testing.T) {
	text := strings.Repeat("数据", 333) + "é"
	chunks, err := ChunkText(text, 100, 30)
	require.NoError(t, err)
	assert.Equal(t, text, reconstruct(t, chunks, 30))
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[0]))
}

func TestChunkText_SingleChunkWhenLargeEnough(t *testing.T) {
	text := "One sentence. Another one.\nA third."
	for _, size := range []int{utf8.RuneCountInString(text), 5000} {
		chunks, err := ChunkText(text, size, 0)
		require.NoError(t, err)
		assert.Equal(t, []string{text}, chunks)
	}
}

func TestChunkText_CutsAtSentenceBoundary(t *testing.T) {
	text := "Alpha beta gamma. Delta epsilon zeta eta"
	chunks, err := ChunkText(text, 30, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha beta gamma.", " Delta epsilon zeta eta"}, chunks)
}

func TestChunkText_IgnoresBreakBeforeMidpoint(t *testing.T) {
	text := "Hi. abcdefghijklmnopqrstuvwxyz"
	chunks, err := ChunkText(text, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, "Hi. abcdefghijklmnop", chunks[0])
}

func TestChunkText_Empty(t *testing.T) {
	chunks, err := ChunkText("", 100, 10)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkText_InvalidParams(t *testing.T) {
	for _, tc := range []struct{ size, overlap int }{{0, 0}, {-5, 0}, {10, 10}, {10, 11}, {10, -1}} {
		_, err := ChunkText("text", tc.size, tc.overlap)
		assert.ErrorIs(t, err, model.ErrValidation, "size=%d overlap=%d", tc.size, tc.overlap)
	}
}
