package pipeline

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"docqa-go/internal/model"
	"docqa-go/pkg/tika"
)

// Extractor 把原始文件内容转换成干净的正文。
type Extractor interface {
	Extract(ctx context.Context, name string, raw []byte) (string, error)
}

// HTMLExtractor 在进程内解析 HTML。
type HTMLExtractor struct{}

func (HTMLExtractor) Extract(_ context.Context, _ string, raw []byte) (string, error) {
	return ParseDocument(raw)
}

// TikaExtractor 交给 Apache Tika 服务提取文本，适用于 HTML 以外的格式。
type TikaExtractor struct {
	Client *tika.Client
}

func (e TikaExtractor) Extract(ctx context.Context, name string, raw []byte) (string, error) {
	text, err := e.Client.ExtractText(ctx, bytes.NewReader(raw), name)
	if err != nil {
		return "", model.ParseError("tika extract", err)
	}
	text = cleanText(text)
	if strings.TrimSpace(text) == "" {
		return "", model.ParseError("tika extract", errNoText)
	}
	return text, nil
}

// NewExtractor 按名字选择文本提取方式。
func NewExtractor(kind string, tikaClient *tika.Client) (Extractor, error) {
	switch kind {
	case "", "html":
		return HTMLExtractor{}, nil
	case "tika":
		if tikaClient == nil {
			return nil, model.ValidationError("extractor", errors.New("tika extractor requires a tika client"))
		}
		return TikaExtractor{Client: tikaClient}, nil
	default:
		return nil, model.ValidationError("extractor", errors.New("unknown extractor "+kind))
	}
}
