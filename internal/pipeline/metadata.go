package pipeline

import (
	"fmt"
	"path"
	"regexp"
	"strconv"

	"docqa-go/internal/model"
)

// MetadataExtractor 从文件名和原始内容中提取文档元数据。
type MetadataExtractor struct {
	idPattern    *regexp.Regexp
	docIDPattern *regexp.Regexp
}

// NewMetadataExtractor 编译文件名编号模式（须含一个捕获组）和外部文档编号模式（可为空）。
func NewMetadataExtractor(idPattern, docIDPattern string) (*MetadataExtractor, error) {
	m := &MetadataExtractor{}
	if idPattern != "" {
		re, err := regexp.Compile(idPattern)
		if err != nil {
			return nil, model.ValidationError("metadata", fmt.Errorf("id_pattern: %w", err))
		}
		if re.NumSubexp() < 1 {
			return nil, model.ValidationError("metadata", fmt.Errorf("id_pattern %q needs a capture group", idPattern))
		}
		m.idPattern = re
	}
	if docIDPattern != "" {
		re, err := regexp.Compile(docIDPattern)
		if err != nil {
			return nil, model.ValidationError("metadata", fmt.Errorf("doc_id_pattern: %w", err))
		}
		m.docIDPattern = re
	}
	return m, nil
}

// Extract 生成文档级元数据；name 是来源中的对象名，sourcePath 是其完整位置。
func (m *MetadataExtractor) Extract(name, sourcePath string, raw []byte) model.Metadata {
	filename := path.Base(name)
	meta := model.Metadata{
		FileName:   filename,
		SourcePath: sourcePath,
		Title:      extractTitle(raw),
	}
	if meta.Title == "" {
		meta.Title = filename
	}
	if m.idPattern != nil {
		if match := m.idPattern.FindStringSubmatch(filename); match != nil {
			if n, err := strconv.Atoi(match[1]); err == nil {
				meta.ArticleNumber = &n
			}
		}
	}
	if m.docIDPattern != nil {
		meta.DocID = string(m.docIDPattern.Find(raw))
	}
	return meta
}
