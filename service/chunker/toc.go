package chunker

import (
	"regexp"
	"strings"
	"tender-agent-backend/model"
)

// 目录项模式：第X部分 / 第X章 / 中文数字枚举
var tocEntryRegexes = []*regexp.Regexp{
	regexp.MustCompile(`^(第[一二三四五六七八九十\d]+部分)\s*(.+?)[\s.…·]*\d*$`),
	regexp.MustCompile(`^(第[一二三四五六七八九十\d]+章)\s*(.+?)[\s.…·]*\d*$`),
	regexp.MustCompile(`^([一二三四五六七八九十]+、)\s*(.+?)[\s.…·]*\d*$`),
}

// 章节取舍关键词。跳过清单优先于相关清单。
var (
	skipKeywords = []string{
		"封面", "目录", "合同条款", "合同格式", "合同文本",
		"附件", "附录", "图纸", "工程量清单",
	}
	relevantKeywords = []string{
		"投标人须知", "须知", "资格", "评标", "评审", "技术规范",
		"技术要求", "商务要求", "服务要求", "采购需求", "项目需求",
		"投标文件格式", "报价",
	}
)

// TOCEntry 目录项及其在正文中的定位
type TOCEntry struct {
	Number   string
	Title    string
	Anchor   int
	Relevant bool
	Skip     bool
}

// DetectTOC 检测"目录"节并解析目录项；未检测到返回nil
func DetectTOC(text string) []TOCEntry {
	tocStart := strings.Index(text, "目录")
	if tocStart < 0 {
		return nil
	}

	// 目录区域：从"目录"起，已见编号再次出现即正文开始，区域到此截断
	region := text[tocStart:]
	if len(region) > 5000 {
		region = region[:5000]
	}

	var entries []TOCEntry
	seen := make(map[string]bool)
	regionEnd := len(region)
	offset := 0
scan:
	for _, line := range strings.Split(region, "\n") {
		lineStart := offset
		offset += len(line) + 1
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == "目录" {
			continue
		}
		for _, re := range tocEntryRegexes {
			m := re.FindStringSubmatch(trimmed)
			if m == nil {
				continue
			}
			if seen[m[1]] {
				regionEnd = lineStart
				break scan
			}
			seen[m[1]] = true
			entry := TOCEntry{Number: m[1], Title: strings.TrimSpace(m[2])}
			classify(&entry)
			entries = append(entries, entry)
			break
		}
	}

	if len(entries) < 2 {
		return nil
	}

	// 正文锚点：目录区域之后首次出现该项编号
	body := text[tocStart:]
	for i := range entries {
		idx := strings.Index(body[regionEnd:], entries[i].Number)
		if idx < 0 {
			entries[i].Anchor = -1
			continue
		}
		entries[i].Anchor = tocStart + regionEnd + idx
	}
	return entries
}

// classify 跳过清单优先
func classify(entry *TOCEntry) {
	for _, kw := range skipKeywords {
		if strings.Contains(entry.Title, kw) {
			entry.Skip = true
			return
		}
	}
	for _, kw := range relevantKeywords {
		if strings.Contains(entry.Title, kw) {
			entry.Relevant = true
			return
		}
	}
}

// ChunkWithTOC 目录引导切分：只有相关章节进入下游
func (c *Chunker) ChunkWithTOC(text string, entries []TOCEntry) []Chunk {
	var chunks []Chunk

	for i, entry := range entries {
		if entry.Skip || !entry.Relevant || entry.Anchor < 0 {
			continue
		}

		end := len(text)
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Anchor > entry.Anchor {
				end = entries[j].Anchor
				break
			}
		}

		sectionText := text[entry.Anchor:end]
		title := entry.Number + " " + entry.Title

		chunks = append(chunks, Chunk{
			Type:         model.ChunkTypeTitle,
			Content:      title,
			Tokens:       c.counter.Count(title),
			SectionTitle: title,
			SectionLevel: 1,
			StartPos:     entry.Anchor,
			EndPos:       entry.Anchor + len(title),
			IsFromTOC:    true,
		})

		sub := c.splitSection(sectionText, title, 1, entry.Anchor)
		for k := range sub {
			sub[k].IsFromTOC = true
		}
		chunks = append(chunks, sub...)
	}

	chunks = c.mergeSmallChunks(chunks)
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Quality = chunkQuality(&chunks[i])
	}
	return chunks
}

// IsSectionRelevant 章节标题取舍判断，跳过清单优先
func IsSectionRelevant(title string) (relevant, skip bool) {
	entry := TOCEntry{Title: title}
	classify(&entry)
	return entry.Relevant, entry.Skip
}
