package model

import "time"

// DocumentChunk 对应于数据库中的 document_chunks 表，登记当前一代语料的全部分块。
type DocumentChunk struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	VectorID      string    `gorm:"type:varchar(128);not null;uniqueIndex" json:"vectorId"`
	ArticleNumber *int      `gorm:"index" json:"articleNumber"`
	Title         string    `gorm:"type:varchar(512)" json:"title"`
	DocID         string    `gorm:"type:varchar(64)" json:"docId"`
	FileName      string    `gorm:"type:varchar(255);not null;index" json:"fileName"`
	SourcePath    string    `gorm:"type:varchar(1024)" json:"sourcePath"`
	ChunkIndex    int       `gorm:"not null" json:"chunkIndex"`
	TotalChunks   int       `gorm:"not null" json:"totalChunks"`
	TextContent   string    `gorm:"type:text" json:"textContent"`
	ModelVersion  string    `gorm:"type:varchar(100)" json:"modelVersion"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// NewDocumentChunk 由分块构造登记记录。
func NewDocumentChunk(c Chunk, modelVersion string) *DocumentChunk {
	return &DocumentChunk{
		VectorID:      c.Key(),
		ArticleNumber: c.Metadata.ArticleNumber,
		Title:         c.Metadata.Title,
		DocID:         c.Metadata.DocID,
		FileName:      c.Metadata.FileName,
		SourcePath:    c.Metadata.SourcePath,
		ChunkIndex:    c.Metadata.ChunkIndex,
		TotalChunks:   c.Metadata.TotalChunks,
		TextContent:   c.Text,
		ModelVersion:  modelVersion,
	}
}
