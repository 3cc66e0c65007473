// Package model 包含了应用的数据模型定义。
package model

import (
	"crypto/md5"
	"fmt"
	"strconv"
)

// 元数据在索引中使用的字段名。
const (
	MetaArticleNumber = "article_number"
	MetaTitle         = "title"
	MetaDocID         = "doc_id"
	MetaFileName      = "filename"
	MetaSourcePath    = "source_path"
	MetaChunkIndex    = "chunk_index"
	MetaTotalChunks   = "total_chunks"
)

// Metadata 描述一个源文档，并附带分块在文档内的位置。
type Metadata struct {
	// ArticleNumber 由文件名匹配得到，未匹配时为 nil。
	ArticleNumber *int   `json:"article_number"`
	Title         string `json:"title"`
	// DocID 是从原始标记中扫描出的外部文档编号，可能为空。
	DocID       string `json:"doc_id"`
	FileName    string `json:"filename"`
	SourcePath  string `json:"source_path"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// DocumentKey 返回文档在索引中的标识。
// 没有数字编号的文档使用文件名 md5 生成的合成标识。
func (m Metadata) DocumentKey() string {
	if m.ArticleNumber != nil {
		return strconv.Itoa(*m.ArticleNumber)
	}
	return fmt.Sprintf("f-%x", md5.Sum([]byte(m.FileName)))[:14]
}

// ToMap 将元数据展开为索引可存储的键值对，缺失值统一写为空字符串。
func (m Metadata) ToMap() map[string]interface{} {
	var article interface{} = ""
	if m.ArticleNumber != nil {
		article = *m.ArticleNumber
	}
	return map[string]interface{}{
		MetaArticleNumber: article,
		MetaTitle:         m.Title,
		MetaDocID:         m.DocID,
		MetaFileName:      m.FileName,
		MetaSourcePath:    m.SourcePath,
		MetaChunkIndex:    m.ChunkIndex,
		MetaTotalChunks:   m.TotalChunks,
	}
}

// MetadataFromMap 是 ToMap 的逆过程，兼容 JSON 解码后的 float64 数值。
func MetadataFromMap(src map[string]interface{}) Metadata {
	var m Metadata
	if n, ok := intValue(src[MetaArticleNumber]); ok {
		m.ArticleNumber = &n
	}
	m.Title = stringValue(src[MetaTitle])
	m.DocID = stringValue(src[MetaDocID])
	m.FileName = stringValue(src[MetaFileName])
	m.SourcePath = stringValue(src[MetaSourcePath])
	m.ChunkIndex, _ = intValue(src[MetaChunkIndex])
	m.TotalChunks, _ = intValue(src[MetaTotalChunks])
	return m
}

func intValue(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	case string:
		if n == "" {
			return 0, false
		}
		i, err := strconv.Atoi(n)
		return i, err == nil
	}
	return 0, false
}

func stringValue(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(s)
	}
}

// Chunk 是检索的基本单位：文档清洗后文本的一段连续切片。
type Chunk struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}

// Key 返回分块的存储键 "{documentKey}_{chunkIndex}"。
func (c Chunk) Key() string {
	return fmt.Sprintf("%s_%d", c.Metadata.DocumentKey(), c.Metadata.ChunkIndex)
}

// RetrievedChunk 是一次检索的单条结果，Distance 越小越相似。
type RetrievedChunk struct {
	Chunk
	Distance float64 `json:"distance"`
}
