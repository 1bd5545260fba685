package docparse

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"tender-agent-backend/apperr"
	"time"
)

// WordBackend 解析.docx（OOXML正文遍历）。.doc 经边车转换为 .docx。
type WordBackend struct{}

var _ Backend = &WordBackend{}

func NewWordBackend() *WordBackend {
	return &WordBackend{}
}

func (b *WordBackend) CanParse(ext string) bool {
	return ext == "docx" || ext == "doc"
}

var headingStyleRegex = regexp.MustCompile(`(?i)^heading\s*(\d)|^(\d)$`)

func (b *WordBackend) Parse(ctx context.Context, path string) (*Result, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".doc" {
		converted, cleanup, err := convertDocToDocx(ctx, path)
		if err != nil {
			return nil, err
		}
		defer cleanup()
		path = converted
	}

	body, err := readDocumentXML(path)
	if err != nil {
		return nil, err
	}

	meta := Metadata{ExtractedAt: time.Now()}
	var sb strings.Builder
	var headings []Heading
	tableIdx := 0
	pos := 0

	for _, block := range body.Blocks {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		switch block.XMLName.Local {
		case "p":
			text := block.text()
			if text == "" {
				continue
			}

			if level := headingLevel(block, text); level > 0 {
				headings = append(headings, Heading{Text: text, Level: level, Position: pos})
			}

			sb.WriteString(text)
			sb.WriteString("\n")
			pos += len(text) + 1

		case "tbl":
			tableIdx++
			marker := fmt.Sprintf("[表格 %d]", tableIdx)
			sb.WriteString(marker)
			sb.WriteString("\n")
			pos += len(marker) + 1

			for _, row := range block.Rows {
				var cells []string
				for _, cell := range row.Cells {
					cells = append(cells, cell.text())
				}
				line := strings.Join(cells, " | ")
				sb.WriteString(line)
				sb.WriteString("\n")
				pos += len(line) + 1
			}
		}
	}

	meta.Tables = tableIdx
	meta.Headings = headings
	content := sb.String()
	meta.Chars = len([]rune(content))

	return &Result{Content: content, Metadata: meta}, nil
}

// headingLevel 样式名优先，无样式时退回标题正则
func headingLevel(p bodyBlock, text string) int {
	if p.Properties != nil && p.Properties.Style != nil {
		if m := headingStyleRegex.FindStringSubmatch(p.Properties.Style.Val); m != nil {
			for _, g := range m[1:] {
				if g != "" {
					return int(g[0] - '0')
				}
			}
		}
	}
	if len([]rune(text)) > 50 {
		return 0
	}
	for level, re := range titleRegexes {
		if re.MatchString(text) {
			return level + 1
		}
	}
	return 0
}

// convertDocToDocx 通过边车程序转换，临时文件在cleanup中删除
func convertDocToDocx(ctx context.Context, path string) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", "doc-convert-*")
	if err != nil {
		return "", nil, apperr.Resource("failed to create temp dir", err)
	}
	cleanup := func() { os.RemoveAll(tempDir) }

	cmd := exec.CommandContext(ctx, "soffice", "--headless",
		"--convert-to", "docx", "--outdir", tempDir, path)
	if out, err := cmd.CombinedOutput(); err != nil {
		cleanup()
		return "", nil, apperr.Parse(
			fmt.Sprintf("doc conversion failed: %s", strings.TrimSpace(string(out))), err)
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	converted := filepath.Join(tempDir, base+".docx")
	if _, err := os.Stat(converted); err != nil {
		cleanup()
		return "", nil, apperr.Parse("converted file missing", err)
	}
	return converted, cleanup, nil
}

// --- OOXML 正文结构 ---

type documentXML struct {
	Body documentBody `xml:"body"`
}

type documentBody struct {
	Blocks []bodyBlock `xml:",any"`
}

type bodyBlock struct {
	XMLName    xml.Name
	Properties *paraProperties `xml:"pPr"`
	Runs       []runElement    `xml:"r"`
	Rows       []tableRow      `xml:"tr"`
}

type paraProperties struct {
	Style *styleRef `xml:"pStyle"`
}

type styleRef struct {
	Val string `xml:"val,attr"`
}

type runElement struct {
	Texts []string `xml:"t"`
}

type tableRow struct {
	Cells []tableCell `xml:"tc"`
}

type tableCell struct {
	Paragraphs []bodyBlock `xml:"p"`
}

func (b bodyBlock) text() string {
	var sb strings.Builder
	for _, r := range b.Runs {
		for _, t := range r.Texts {
			sb.WriteString(t)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (c tableCell) text() string {
	var parts []string
	for _, p := range c.Paragraphs {
		if t := p.text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func readDocumentXML(path string) (*documentBody, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, apperr.Parse("failed to open docx", err)
	}
	defer zr.Close()

	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, apperr.Parse("failed to read document.xml", err)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, apperr.Parse("failed to read document.xml", err)
		}

		var doc documentXML
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, apperr.Parse("invalid document.xml", err)
		}
		return &doc.Body, nil
	}
	return nil, apperr.Parse("document.xml not found in docx", nil)
}
