package model

import (
	"encoding/json"
	"time"
)

type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeWord FileType = "word"
	FileTypeText FileType = "txt"
)

type ParseStatus string

const (
	ParseStatusPending    ParseStatus = "pending"
	ParseStatusProcessing ParseStatus = "processing"
	ParseStatusCompleted  ParseStatus = "completed"
	ParseStatusFailed     ParseStatus = "failed"
)

// CanTransition 解析状态只允许单调前进，终态不可再变更
func (s ParseStatus) CanTransition(next ParseStatus) bool {
	order := map[ParseStatus]int{
		ParseStatusPending:    0,
		ParseStatusProcessing: 1,
		ParseStatusCompleted:  2,
		ParseStatusFailed:     2,
	}
	cur, ok1 := order[s]
	nxt, ok2 := order[next]
	if !ok1 || !ok2 {
		return false
	}
	if s == ParseStatusCompleted || s == ParseStatusFailed {
		return false
	}
	return nxt > cur
}

// Document 上传文档元数据，解析完成后不可变
// 建立联合索引 (library_id, upload_time)
type Document struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	DocID       string          `gorm:"not null;uniqueIndex;size:64" json:"doc_id"`
	FileName    string          `gorm:"not null" json:"filename"`
	FilePath    string          `gorm:"not null" json:"file_path"`
	FileType    FileType        `gorm:"not null" json:"file_type"`
	FileSize    int64           `gorm:"not null" json:"file_size"`
	Pages       int             `json:"pages"`
	ParseStatus ParseStatus     `gorm:"not null;default:pending" json:"parse_status"`
	ParseError  string          `gorm:"type:text" json:"parse_error"`
	ParseTime   float64         `json:"parse_time"`
	UploadTime  time.Time       `gorm:"not null;index:idx_library_upload" json:"upload_time"`
	Tags        json.RawMessage `gorm:"type:json" json:"tags"`
	LibraryID   string          `gorm:"index:idx_library_upload" json:"library_id"`
}

func (Document) TableName() string {
	return "documents"
}

type ChunkType string

const (
	ChunkTypeTitle     ChunkType = "title"
	ChunkTypeParagraph ChunkType = "paragraph"
	ChunkTypeTable     ChunkType = "table"
	ChunkTypeList      ChunkType = "list"
	ChunkTypeSection   ChunkType = "section"
	ChunkTypeFixedSize ChunkType = "fixed_size"
	ChunkTypeFallback  ChunkType = "fallback"
)

// DocumentChunk 文档解析产生的分块，按 chunk_index 全序排列
// 重新解析时整组失效替换
type DocumentChunk struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	ChunkID    string    `gorm:"not null;uniqueIndex;size:64" json:"chunk_id"`
	DocID      string    `gorm:"not null;index:idx_doc_chunk" json:"doc_id"`
	ChunkIndex int       `gorm:"not null;index:idx_doc_chunk" json:"chunk_index"`
	ChunkType  ChunkType `gorm:"not null" json:"chunk_type"`
	Content    string    `gorm:"type:text" json:"content"`
	Tokens     int       `json:"tokens"`

	SectionTitle string `json:"section_title"`
	SectionLevel int    `json:"section_level"`
	StartPos     int    `json:"start_pos"`
	EndPos       int    `json:"end_pos"`
	IsFromTOC    bool   `json:"is_from_toc"`

	CreatedAt time.Time `json:"created_at"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
