// Package pipeline 定义了语料加载的核心流程：读取、提取正文与元数据、分块。
package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"docqa-go/internal/config"
	"docqa-go/internal/model"
	"docqa-go/pkg/log"

	"golang.org/x/sync/errgroup"
)

// Ingestor 封装了语料处理的所有依赖和逻辑。
type Ingestor struct {
	source       Source
	extractor    Extractor
	metadata     *MetadataExtractor
	chunkSize    int
	chunkOverlap int
	workers      int
}

// NewIngestor 创建一个新的 Ingestor 实例，分块参数非法时返回 ValidationError。
func NewIngestor(source Source, extractor Extractor, metadata *MetadataExtractor, cfg config.CorpusConfig) (*Ingestor, error) {
	if err := ValidateChunkParams(cfg.ChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, err
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Ingestor{
		source:       source,
		extractor:    extractor,
		metadata:     metadata,
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		workers:      workers,
	}, nil
}

// ParseFile 读取并解析单个文件，返回正文与文档级元数据。
func (p *Ingestor) ParseFile(ctx context.Context, name string) (string, model.Metadata, error) {
	raw, err := p.source.Read(ctx, name)
	if err != nil {
		return "", model.Metadata{}, model.ParseError("read "+name, err)
	}
	text, err := p.extractor.Extract(ctx, name, raw)
	if err != nil {
		return "", model.Metadata{}, fmt.Errorf("%s: %w", name, err)
	}
	return text, p.metadata.Extract(name, p.source.Location(name), raw), nil
}

// processFile 解析单个文件并切块，给每块打上序号和总数。
func (p *Ingestor) processFile(ctx context.Context, name string) ([]model.Chunk, error) {
	text, meta, err := p.ParseFile(ctx, name)
	if err != nil {
		return nil, err
	}
	pieces, err := ChunkText(text, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return nil, err
	}
	chunks := make([]model.Chunk, len(pieces))
	for i, piece := range pieces {
		m := meta
		m.ChunkIndex = i
		m.TotalChunks = len(pieces)
		chunks[i] = model.Chunk{Text: piece, Metadata: m}
	}
	log.Debugf("[Ingestor] %s: %d 字符, %d 个分块", name, utf8.RuneCountInString(text), len(chunks))
	return chunks, nil
}

// ProcessCorpus 处理来源中的全部合格文件。单个文件解析失败只记录日志并跳过；
// 来源无法列出时返回错误。输出按文件名排序，与并发度无关。
func (p *Ingestor) ProcessCorpus(ctx context.Context) ([]model.Chunk, error) {
	names, err := p.source.List(ctx)
	if err != nil {
		return nil, model.ParseError("list corpus", err)
	}
	log.Infof("[Ingestor] 开始处理语料, 共 %d 个文件, workers: %d", len(names), p.workers)

	results := make([][]model.Chunk, len(names))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			chunks, err := p.processFile(gctx, name)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Warnw("[Ingestor] 跳过无法解析的文件", "file", name, "error", err)
				return nil
			}
			results[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []model.Chunk
	seen := make(map[string]string, len(names))
	for i, chunks := range results {
		if len(chunks) == 0 {
			continue
		}
		key := chunks[0].Metadata.DocumentKey()
		if prev, ok := seen[key]; ok {
			log.Warnf("[Ingestor] 文件 %s 与 %s 的文档编号重复 (%s), 后写入者覆盖", names[i], prev, key)
		}
		seen[key] = names[i]
		all = append(all, chunks...)
	}
	log.Infof("[Ingestor] 语料处理完成, %d 个文档, 共 %d 个分块", len(seen), len(all))
	return all, nil
}
