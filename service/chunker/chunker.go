package chunker

import (
	"log/slog"
	"strings"
	"tender-agent-backend/model"
	"tender-agent-backend/service/docparse"

	"github.com/tmc/langchaingo/textsplitter"
)

const (
	DefaultMaxChunkSize = 800
	DefaultChunkOverlap = 100
	DefaultMinChunkSize = 100
)

type Strategy string

const (
	StrategyHierarchical Strategy = "hierarchical"
	StrategySemantic     Strategy = "semantic"
	StrategyTableAware   Strategy = "table_aware"
	StrategyFixedSize    Strategy = "fixed_size"
	StrategyHybrid       Strategy = "hybrid"
)

// Chunk 分块结果，携带章节来源
type Chunk struct {
	Index        int
	Type         model.ChunkType
	Content      string
	Tokens       int
	SectionTitle string
	SectionLevel int
	StartPos     int
	EndPos       int
	IsFromTOC    bool
	Quality      float64
}

type Config struct {
	MaxChunkSize int
	ChunkOverlap int
	MinChunkSize int
	Strategy     Strategy
}

func DefaultConfig() Config {
	return Config{
		MaxChunkSize: DefaultMaxChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
		MinChunkSize: DefaultMinChunkSize,
		Strategy:     StrategyHybrid,
	}
}

type Chunker struct {
	cfg      Config
	counter  *TokenCounter
	splitter textsplitter.TextSplitter
}

func New(cfg Config) *Chunker {
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = DefaultMaxChunkSize
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap > cfg.MaxChunkSize/2 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyHybrid
	}

	// 超长句兜底切分
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithSeparators([]string{"\n\n", "\n", "。", "！", "？", "；", "，", " ", ""}),
		textsplitter.WithChunkSize(cfg.MaxChunkSize*2),
		textsplitter.WithChunkOverlap(0),
	)

	return &Chunker{cfg: cfg, counter: defaultCounter, splitter: splitter}
}

// Chunk 按配置的策略切分文本；TOC模式见 ChunkWithTOC
func (c *Chunker) Chunk(text string, headings []docparse.Heading) []Chunk {
	strategy := c.cfg.Strategy
	if strategy == StrategyHybrid {
		strategy = c.pickStrategy(text, headings)
	}

	var chunks []Chunk
	switch strategy {
	case StrategyHierarchical:
		chunks = c.chunkHierarchical(text, headings)
	case StrategyTableAware:
		chunks = c.chunkTableAware(text)
	case StrategyFixedSize:
		chunks = c.chunkFixedSize(text)
	default:
		chunks = c.chunkSemantic(text)
	}

	chunks = c.mergeSmallChunks(chunks)
	for i := range chunks {
		chunks[i].Index = i
		chunks[i].Quality = chunkQuality(&chunks[i])
	}

	slog.Debug("chunking completed",
		"strategy", strategy,
		"chunks", len(chunks),
	)
	return chunks
}

func (c *Chunker) pickStrategy(text string, headings []docparse.Heading) Strategy {
	if len(headings) > 0 {
		return StrategyHierarchical
	}
	if strings.Contains(text, "[表格") {
		return StrategyTableAware
	}
	return StrategySemantic
}

// chunkHierarchical 按标题树切分，超预算的节按段落细分
func (c *Chunker) chunkHierarchical(text string, headings []docparse.Heading) []Chunk {
	if len(headings) == 0 {
		return c.chunkSemantic(text)
	}

	var chunks []Chunk

	// 标题位置不可靠，基于文本定位各章节区间
	sections := locateSections(text, headings)

	if len(sections) > 0 && sections[0].start > 0 {
		head := text[:sections[0].start]
		if strings.TrimSpace(head) != "" {
			chunks = append(chunks, c.splitSection(head, "", 0, 0)...)
		}
	}

	for _, sec := range sections {
		body := text[sec.start:sec.end]
		chunks = append(chunks, Chunk{
			Type:         model.ChunkTypeTitle,
			Content:      sec.title,
			Tokens:       c.counter.Count(sec.title),
			SectionTitle: sec.title,
			SectionLevel: sec.level,
			StartPos:     sec.start,
			EndPos:       sec.start + len(sec.title),
		})

		content := strings.TrimSpace(strings.TrimPrefix(body, sec.title))
		if content == "" {
			continue
		}
		chunks = append(chunks, c.splitSection(content, sec.title, sec.level, sec.start)...)
	}

	return chunks
}

type section struct {
	title string
	level int
	start int
	end   int
}

func locateSections(text string, headings []docparse.Heading) []section {
	var sections []section
	for _, h := range headings {
		idx := strings.Index(text, h.Text)
		if idx < 0 {
			continue
		}
		sections = append(sections, section{title: h.Text, level: h.Level, start: idx})
	}
	for i := range sections {
		if i+1 < len(sections) {
			sections[i].end = sections[i+1].start
		} else {
			sections[i].end = len(text)
		}
		if sections[i].end < sections[i].start {
			sections[i].end = sections[i].start
		}
	}
	return sections
}

// splitSection 单节按预算输出；超预算时按段落贪心打包并带重叠
func (c *Chunker) splitSection(content, title string, level, basePos int) []Chunk {
	if c.counter.Count(content) <= c.cfg.MaxChunkSize {
		return []Chunk{{
			Type:         model.ChunkTypeSection,
			Content:      content,
			Tokens:       c.counter.Count(content),
			SectionTitle: title,
			SectionLevel: level,
			StartPos:     basePos,
			EndPos:       basePos + len(content),
		}}
	}

	sub := c.packParagraphs(content, model.ChunkTypeSection)
	for i := range sub {
		sub[i].SectionTitle = title
		sub[i].SectionLevel = level
		sub[i].StartPos += basePos
		sub[i].EndPos += basePos
	}
	return sub
}

// chunkSemantic 段落贪心打包，溢出时以尾句为重叠种子开启下一块
func (c *Chunker) chunkSemantic(text string) []Chunk {
	return c.packParagraphs(text, model.ChunkTypeParagraph)
}

func (c *Chunker) packParagraphs(text string, chunkType model.ChunkType) []Chunk {
	paragraphs := strings.Split(text, "\n\n")
	var chunks []Chunk
	var cur []string
	curTokens := 0
	pos := 0
	startPos := 0

	flush := func(endPos int) {
		if len(cur) == 0 {
			return
		}
		content := strings.Join(cur, "\n\n")
		chunks = append(chunks, Chunk{
			Type:     chunkType,
			Content:  content,
			Tokens:   c.counter.Count(content),
			StartPos: startPos,
			EndPos:   endPos,
		})

		// 尾句作为下一块的重叠种子
		overlap := tailSentences(content, c.cfg.ChunkOverlap, c.counter)
		if overlap != "" {
			cur = []string{overlap}
			curTokens = c.counter.Count(overlap)
		} else {
			cur = nil
			curTokens = 0
		}
		startPos = endPos
	}

	for _, para := range paragraphs {
		trimmed := strings.TrimSpace(para)
		if trimmed == "" {
			pos += len(para) + 2
			continue
		}

		tokens := c.counter.Count(trimmed)

		// 单段超预算：先落盘当前块，再细切该段
		if tokens > c.cfg.MaxChunkSize {
			flush(pos)
			cur = nil
			curTokens = 0
			for _, piece := range c.splitLongText(trimmed) {
				chunks = append(chunks, Chunk{
					Type:     chunkType,
					Content:  piece,
					Tokens:   c.counter.Count(piece),
					StartPos: pos,
					EndPos:   pos + len(para),
				})
			}
			pos += len(para) + 2
			startPos = pos
			continue
		}

		if curTokens+tokens > c.cfg.MaxChunkSize {
			flush(pos)
		}
		cur = append(cur, trimmed)
		curTokens += tokens
		pos += len(para) + 2
	}
	flush(pos)

	return chunks
}

// chunkTableAware 表格区域独立成块，周边文本按语义切分
func (c *Chunker) chunkTableAware(text string) []Chunk {
	var chunks []Chunk
	segments := splitByTables(text)

	for _, seg := range segments {
		if seg.isTable {
			chunks = append(chunks, Chunk{
				Type:     model.ChunkTypeTable,
				Content:  seg.content,
				Tokens:   c.counter.Count(seg.content),
				StartPos: seg.start,
				EndPos:   seg.start + len(seg.content),
			})
			continue
		}
		sub := c.packParagraphs(seg.content, model.ChunkTypeParagraph)
		for i := range sub {
			sub[i].StartPos += seg.start
			sub[i].EndPos += seg.start
		}
		chunks = append(chunks, sub...)
	}
	return chunks
}

type tableSegment struct {
	content string
	isTable bool
	start   int
}

func splitByTables(text string) []tableSegment {
	var segments []tableSegment
	lines := strings.Split(text, "\n")
	var cur []string
	inTable := false
	pos := 0
	segStart := 0

	flush := func(isTable bool) {
		if len(cur) == 0 {
			return
		}
		segments = append(segments, tableSegment{
			content: strings.Join(cur, "\n"),
			isTable: isTable,
			start:   segStart,
		})
		cur = nil
		segStart = pos
	}

	for _, line := range lines {
		isMarker := strings.HasPrefix(strings.TrimSpace(line), "[表格")
		if isMarker && !inTable {
			flush(false)
			inTable = true
		} else if inTable && strings.TrimSpace(line) == "" {
			flush(true)
			inTable = false
		}
		cur = append(cur, line)
		pos += len(line) + 1
	}
	flush(inTable)
	return segments
}

// chunkFixedSize 句子贪心打包，最后的兜底策略
func (c *Chunker) chunkFixedSize(text string) []Chunk {
	sentences := splitSentences(text)
	var chunks []Chunk
	var cur []string
	curTokens := 0
	pos := 0
	startPos := 0

	flush := func() {
		if len(cur) == 0 {
			return
		}
		content := strings.Join(cur, "")
		chunks = append(chunks, Chunk{
			Type:     model.ChunkTypeFixedSize,
			Content:  content,
			Tokens:   c.counter.Count(content),
			StartPos: startPos,
			EndPos:   pos,
		})
		cur = nil
		curTokens = 0
		startPos = pos
	}

	for _, s := range sentences {
		tokens := c.counter.Count(s)
		if tokens > c.cfg.MaxChunkSize {
			flush()
			for _, piece := range c.splitLongText(s) {
				chunks = append(chunks, Chunk{
					Type:     model.ChunkTypeFallback,
					Content:  piece,
					Tokens:   c.counter.Count(piece),
					StartPos: pos,
					EndPos:   pos + len(s),
				})
			}
			pos += len(s)
			startPos = pos
			continue
		}
		if curTokens+tokens > c.cfg.MaxChunkSize {
			flush()
		}
		cur = append(cur, s)
		curTokens += tokens
		pos += len(s)
	}
	flush()
	return chunks
}

// splitLongText 超长文本的递归字符切分兜底
func (c *Chunker) splitLongText(text string) []string {
	pieces, err := c.splitter.SplitText(text)
	if err != nil || len(pieces) == 0 {
		return []string{text}
	}

	// 二次校验token预算
	var result []string
	for _, p := range pieces {
		if c.counter.Count(p) <= c.cfg.MaxChunkSize {
			result = append(result, p)
			continue
		}
		runes := []rune(p)
		step := len(runes) / 2
		if step == 0 {
			result = append(result, p)
			continue
		}
		result = append(result, string(runes[:step]), string(runes[step:]))
	}
	return result
}

// mergeSmallChunks 小于下限的块并入前一同类型块（预算允许时）
func (c *Chunker) mergeSmallChunks(chunks []Chunk) []Chunk {
	if len(chunks) == 0 {
		return chunks
	}

	var merged []Chunk
	for _, ch := range chunks {
		if len(merged) > 0 && ch.Tokens < c.cfg.MinChunkSize {
			prev := &merged[len(merged)-1]
			if prev.Type == ch.Type && prev.Tokens+ch.Tokens <= c.cfg.MaxChunkSize {
				prev.Content = prev.Content + "\n" + ch.Content
				prev.Tokens = c.counter.Count(prev.Content)
				prev.EndPos = ch.EndPos
				continue
			}
		}
		merged = append(merged, ch)
	}
	return merged
}

func tailSentences(content string, budget int, counter *TokenCounter) string {
	sentences := splitSentences(content)
	if len(sentences) <= 1 {
		return ""
	}

	total := 0
	start := len(sentences)
	for i := len(sentences) - 1; i >= 0; i-- {
		t := counter.Count(sentences[i])
		if total+t > budget {
			break
		}
		total += t
		start = i
	}
	if start == len(sentences) {
		return ""
	}
	return strings.Join(sentences[start:], "")
}

func splitSentences(text string) []string {
	var sentences []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == '。' || r == '！' || r == '？' || r == '；' || r == '\n' {
			if s := cur.String(); strings.TrimSpace(s) != "" {
				sentences = append(sentences, s)
			}
			cur.Reset()
		}
	}
	if s := cur.String(); strings.TrimSpace(s) != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// chunkQuality 简单质量分：长度适中、含完整句、信息密度
func chunkQuality(ch *Chunk) float64 {
	score := 0.5
	if ch.Tokens >= 50 && ch.Tokens <= DefaultMaxChunkSize {
		score += 0.3
	}
	if strings.ContainsAny(ch.Content, "。！？；") {
		score += 0.1
	}
	if ch.SectionTitle != "" {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}
