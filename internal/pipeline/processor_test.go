package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docqa-go/internal/config"
	"docqa-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpus(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func newTestIngestor(t *testing.T, dir string, size, overlap, workers int) *Ingestor {
	t.Helper()
	meta, err := NewMetadataExtractor(`article_(\d+)\.html`, `UC\d+ EN`)
	require.NoError(t, err)
	ing, err := NewIngestor(
		&LocalSource{Dir: dir, Extensions: []string{".html"}},
		HTMLExtractor{},
		meta,
		config.CorpusConfig{ChunkSize: size, ChunkOverlap: overlap, Workers: workers},
	)
	require.NoError(t, err)
	return ing
}

func TestProcessCorpus(t *testing.T) {
	long := "<title>Long</title><p>" + strings.Repeat("Sentence number one is here. ", 20) + "</p>"
	dir := writeCorpus(t, map[string]string{
		"article_2.html": long,
		"article_1.html": "<title>Short</title><p>Tiny doc.</p>",
		"broken.html":    "<script>only()</script>",
		"readme.txt":     "not html",
	})

	ing := newTestIngestor(t, dir, 100, 20, 3)
	chunks, err := ing.ProcessCorpus(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	first := chunks[0]
	assert.Equal(t, "article_1.html", first.Metadata.FileName)
	assert.Equal(t, 0, first.Metadata.ChunkIndex)
	assert.Equal(t, 1, first.Metadata.TotalChunks)
	assert.Equal(t, "Short\nTiny doc.", first.Text)

	rest := chunks[1:]
	require.Greater(t, len(rest), 1)
	for i, c := range rest {
		assert.Equal(t, "Long", c.Metadata.Title)
		require.NotNil(t, c.Metadata.ArticleNumber)
		assert.Equal(t, 2, *c.Metadata.ArticleNumber)
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.Equal(t, len(rest), c.Metadata.TotalChunks)
		assert.Equal(t, filepath.Join(dir, "article_2.html"), c.Metadata.SourcePath)
	}

	keys := map[string]bool{}
	for _, c := range chunks {
		assert.False(t, keys[c.Key()], "duplicate key %s", c.Key())
		keys[c.Key()] = true
	}
}

func TestProcessCorpus_DeterministicAcrossWorkers(t *testing.T) {
	files := map[string]string{}
	for _, n := range []string{"7", "3", "11", "5"} {
		files["article_"+n+".html"] = "<p>" + strings.Repeat("Doc "+n+" text. ", 30) + "</p>"
	}
	dir := writeCorpus(t, files)

	serial, err := newTestIngestor(t, dir, 80, 10, 1).ProcessCorpus(context.Background())
	require.NoError(t, err)
	parallel, err := newTestIngestor(t, dir, 80, 10, 8).ProcessCorpus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, serial, parallel)
	assert.Equal(t, "article_11.html", serial[0].Metadata.FileName)
}

func TestProcessCorpus_MissingDirectory(t *testing.T) {
	ing := newTestIngestor(t, filepath.Join(t.TempDir(), "nope"), 100, 10, 2)
	_, err := ing.ProcessCorpus(context.Background())
	assert.ErrorIs(t, err, model.ErrParse)
}

func TestNewIngestor_InvalidChunkParams(t *testing.T) {
	_, err := NewIngestor(&LocalSource{}, HTMLExtractor{}, &MetadataExtractor{}, config.CorpusConfig{ChunkSize: 100, ChunkOverlap: 100})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestNewExtractor(t *testing.T) {
	e, err := NewExtractor("html", nil)
	require.NoError(t, err)
	assert.IsType(t, HTMLExtractor{}, e)

	_, err = NewExtractor("tika", nil)
	assert.ErrorIs(t, err, model.ErrValidation)
	_, err = NewExtractor("pdfbox", nil)
	assert.ErrorIs(t, err, model.ErrValidation)
}
