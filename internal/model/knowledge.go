// Package model 定义了与数据库表及索引文档对应的 Go 结构体。
package model

import "time"

const (
	FileStatusQueued  = 0
	FileStatusIndexed = 1
	FileStatusFailed  = 2
)

// KnowledgeFile 记录知识库中每个源文件的元数据与导入状态。
type KnowledgeFile struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FileMD5   string     `gorm:"type:varchar(32);not null;uniqueIndex" json:"fileMd5"`
	FileName  string     `gorm:"type:varchar(255);not null" json:"fileName"`
	ObjectKey string     `gorm:"type:varchar(255);not null" json:"objectKey"`
	TotalSize int64      `gorm:"not null" json:"totalSize"`
	Status    int        `gorm:"type:tinyint;not null;default:0" json:"status"` // 0: queued, 1: indexed, 2: failed
	Chunks    int        `gorm:"not null;default:0" json:"chunks"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	IndexedAt *time.Time `gorm:"default:null" json:"indexedAt"`
}

func (KnowledgeFile) TableName() string {
	return "knowledge_files"
}

// DocumentChunk 对应于 document_chunks 表，保存切分后的文本分块。
type DocumentChunk struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	FileMD5     string `gorm:"type:varchar(32);not null;index;column:file_md5"`
	ChunkID     int    `gorm:"not null;column:chunk_id"`
	TextContent string `gorm:"type:text;column:text_content"`
	Namespace   string `gorm:"type:varchar(100);column:namespace"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// IndexedChunk 是写入向量库的单个分块。
type IndexedChunk struct {
	ID        string         `json:"id"` // fileMd5_chunkId
	Text      string         `json:"text"`
	Vector    []float32      `json:"vector"`
	Namespace string         `json:"namespace"`
	Metadata  map[string]any `json:"metadata"`
}
