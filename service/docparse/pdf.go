package docparse

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"
	"tender-agent-backend/apperr"
	"tender-agent-backend/config"
	"time"

	"github.com/gen2brain/go-fitz"
)

const (
	// 页面文本少于该字符数视为扫描页，进入OCR队列
	defaultOCRMinChars = 50

	// 审计报告关键页数量上限
	maxKeyPages = 10

	ocrWorkerNum = 3
)

// 标题行识别：章节编号、部分编号、条款编号
var titleRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^第[一二三四五六七八九十百\d]+[章节部分篇卷]`),
	regexp.MustCompile(`^[一二三四五六七八九十]+、`),
	regexp.MustCompile(`^（[一二三四五六七八九十]+）`),
	regexp.MustCompile(`^\d+(\.\d+)*\s*[^\d.]`),
}

// 审计报告关键页关键词权重
var keyPageKeywords = map[string]int{
	"审计意见":  5,
	"财务报表":  4,
	"资产负债表": 4,
	"利润表":   4,
	"现金流量表": 3,
	"审计报告":  3,
	"注册会计师": 2,
}

// OCREngine 外部OCR引擎契约。核心只负责排队与回填，不实现识别。
type OCREngine interface {
	Recognize(ctx context.Context, path string, page int) (string, error)
}

type ocrTask struct {
	page int
	path string
}

// PDFBackend 基于go-fitz的PDF解析后端
type PDFBackend struct {
	ocr         OCREngine
	ocrMinChars int
}

var _ Backend = &PDFBackend{}

func NewPDFBackend(ocr OCREngine) *PDFBackend {
	minChars := defaultOCRMinChars
	if config.Cfg != nil && config.Cfg.Parse.OCRMinChars > 0 {
		minChars = config.Cfg.Parse.OCRMinChars
	}
	return &PDFBackend{ocr: ocr, ocrMinChars: minChars}
}

func (b *PDFBackend) CanParse(ext string) bool {
	return ext == "pdf"
}

func (b *PDFBackend) Parse(ctx context.Context, path string) (*Result, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, apperr.Parse("failed to open pdf", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, apperr.Parse("pdf has no pages", nil)
	}

	meta := Metadata{
		Pages:       pageCount,
		ExtractedAt: time.Now(),
	}

	pageTexts := make([]string, pageCount)
	var scannedPages []ocrTask

	for i := 0; i < pageCount; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text, err := doc.Text(i)
		if err != nil {
			meta.Warnings = append(meta.Warnings,
				fmt.Sprintf("page %d: text extraction failed: %v", i+1, err))
			text = ""
		}
		text = strings.TrimSpace(text)

		stat := PageStat{Page: i + 1, Chars: len([]rune(text))}
		if stat.Chars < b.ocrMinChars {
			stat.IsScanned = true
			scannedPages = append(scannedPages, ocrTask{page: i + 1, path: path})
		}
		meta.PageStats = append(meta.PageStats, stat)
		pageTexts[i] = text
	}

	// 扫描页走OCR工作池，结果回填到对应页标记下
	if len(scannedPages) > 0 {
		if b.ocr != nil {
			ocrResults := b.runOCR(ctx, scannedPages)
			for page, text := range ocrResults {
				if text != "" {
					pageTexts[page-1] = "[OCR识别内容]\n" + text
				}
			}
		} else {
			meta.Warnings = append(meta.Warnings,
				fmt.Sprintf("%d scanned pages, ocr disabled", len(scannedPages)))
			if len(scannedPages) == pageCount {
				meta.Warnings = append(meta.Warnings, "error: no extractable text in document")
			}
		}
	}

	// 表格二次抽取：识别制表符/分栏密集行，回插到页标记之间
	tables := extractPDFTables(pageTexts)
	meta.Tables = tables

	var sb strings.Builder
	for i, text := range pageTexts {
		sb.WriteString(pageMarker(i + 1))
		sb.WriteString("\n")
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	content := sb.String()

	meta.Headings = inferHeadings(pageTexts)
	meta.KeyPages = selectKeyPages(pageTexts)

	return &Result{Content: content, Metadata: meta}, nil
}

// runOCR OCR任务在工作池中执行，主流程收集结果
func (b *PDFBackend) runOCR(ctx context.Context, tasks []ocrTask) map[int]string {
	taskChan := make(chan ocrTask)
	results := make(map[int]string, len(tasks))

	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < ocrWorkerNum; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range taskChan {
				text, err := b.ocr.Recognize(ctx, task.path, task.page)
				if err != nil {
					slog.Warn("ocr failed", "page", task.page, "err", err)
					continue
				}
				mu.Lock()
				results[task.page] = text
				mu.Unlock()
			}
		}()
	}

	for _, task := range tasks {
		taskChan <- task
	}
	close(taskChan)
	wg.Wait()

	return results
}

// extractPDFTables 以制表符密度识别表格区域，返回表格数
func extractPDFTables(pageTexts []string) int {
	count := 0
	for i, text := range pageTexts {
		lines := strings.Split(text, "\n")
		tableLines := 0
		inTable := false
		var rebuilt []string

		for _, line := range lines {
			cells := strings.FieldsFunc(line, func(r rune) bool {
				return r == '\t' || r == '|'
			})
			if len(cells) >= 3 {
				tableLines++
				if !inTable {
					inTable = true
					count++
					rebuilt = append(rebuilt, fmt.Sprintf("[表格 %d]", count))
				}
				rebuilt = append(rebuilt, strings.Join(cells, " | "))
				continue
			}
			inTable = false
			rebuilt = append(rebuilt, line)
		}

		if tableLines > 0 {
			pageTexts[i] = strings.Join(rebuilt, "\n")
		}
	}
	return count
}

// inferHeadings 从标题正则推断标题（文本层无字体信息时的降级路径）
func inferHeadings(pageTexts []string) []Heading {
	var headings []Heading
	pos := 0
	for _, text := range pageTexts {
		for _, line := range strings.Split(text, "\n") {
			trimmed := strings.TrimSpace(line)
			if trimmed == "" || len([]rune(trimmed)) > 50 {
				pos += len(line) + 1
				continue
			}
			for level, re := range titleRegexes {
				if re.MatchString(trimmed) {
					headings = append(headings, Heading{
						Text:     trimmed,
						Level:    level + 1,
						Position: pos,
					})
					break
				}
			}
			pos += len(line) + 1
		}
	}
	return headings
}

// selectKeyPages 审计报告关键页启发式：按关键词得分取前N页
func selectKeyPages(pageTexts []string) []int {
	type scored struct {
		page  int
		score int
	}
	var pages []scored
	for i, text := range pageTexts {
		score := 0
		for kw, weight := range keyPageKeywords {
			if strings.Contains(text, kw) {
				score += weight
			}
		}
		if score > 0 {
			pages = append(pages, scored{page: i + 1, score: score})
		}
	}
	if len(pages) == 0 {
		return nil
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].score != pages[j].score {
			return pages[i].score > pages[j].score
		}
		return pages[i].page < pages[j].page
	})
	if len(pages) > maxKeyPages {
		pages = pages[:maxKeyPages]
	}

	result := make([]int, 0, len(pages))
	for _, p := range pages {
		result = append(result, p.page)
	}
	sort.Ints(result)
	return result
}
