package docparse

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"tender-agent-backend/apperr"
	"time"
)

const (
	// 单文件大小上限
	maxPDFWordSize = 100 << 20
	maxTextSize    = 50 << 20
)

// PageStat 单页统计
type PageStat struct {
	Page      int  `json:"page"`
	Chars     int  `json:"chars"`
	IsScanned bool `json:"is_scanned"`
}

// Heading 识别出的标题
type Heading struct {
	Text     string `json:"text"`
	Level    int    `json:"level"`
	Position int    `json:"position"`
}

// Metadata 解析元数据。抽取过程中的告警记录在 Warnings，从不中断解析。
type Metadata struct {
	Pages       int        `json:"pages"`
	Tables      int        `json:"tables"`
	Images      int        `json:"images"`
	ExtractedAt time.Time  `json:"extracted_at"`
	PageStats   []PageStat `json:"page_stats,omitempty"`
	Headings    []Heading  `json:"headings,omitempty"`
	Warnings    []string   `json:"warnings,omitempty"`

	// TXT解析时的编码探测结果
	Encoding string `json:"encoding,omitempty"`

	// 审计报告关键页（按关键词评分选出）
	KeyPages []int `json:"key_pages,omitempty"`

	Lines int `json:"lines,omitempty"`
	Chars int `json:"chars,omitempty"`
}

// Result 解析结果
type Result struct {
	Content  string
	Metadata Metadata
}

// Backend 按文件类型分发的解析后端
type Backend interface {
	CanParse(ext string) bool
	Parse(ctx context.Context, path string) (*Result, error)
}

// Parser 文档解析器，按扩展名分发到 PDF/Word/TXT 后端
type Parser struct {
	backends []Backend
}

func NewParser(ocr OCREngine) *Parser {
	return &Parser{
		backends: []Backend{
			NewPDFBackend(ocr),
			NewWordBackend(),
			NewTextBackend(),
		},
	}
}

// Parse 解析文件。失败返回类型化错误：
// DocumentTooLarge / UnsupportedFormat / UnreadableDocument
func (p *Parser) Parse(ctx context.Context, path string) (*Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Parse("unreadable document", err)
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	limit := int64(maxPDFWordSize)
	if ext == "txt" {
		limit = maxTextSize
	}
	if info.Size() > limit {
		return nil, apperr.Validation(
			fmt.Sprintf("document too large: %d bytes", info.Size()), nil)
	}

	for _, backend := range p.backends {
		if backend.CanParse(ext) {
			return backend.Parse(ctx, path)
		}
	}
	return nil, apperr.Validation("unsupported format: "+ext, nil)
}

// pageMarker 生成页分隔标记
func pageMarker(page int) string {
	return fmt.Sprintf("--- 第%d页 ---", page)
}
