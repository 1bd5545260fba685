package semanticsearch

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"tender-agent-backend/service/vectorstore"
	"unicode"
)

const (
	maxSegmentsPerDoc = 3
	coarseMultiplier  = 3
	coarseThreshold   = 0.8
)

// QueryEmbedder 查询向量化依赖
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type SearchQuery struct {
	Query     string         `json:"query"`
	TopK      int            `json:"top_k"`
	Threshold float64        `json:"threshold"`
	Filter    map[string]any `json:"filter,omitempty"`
}

type Hit struct {
	Document        *vectorstore.Document `json:"document"`
	Score           float64               `json:"score"`
	MatchedSegments []string              `json:"matched_segments"`
	Explanation     string                `json:"explanation"`
	Rank            int                   `json:"rank"`
}

// Engine 语义检索：向量粗排 + 片段匹配 + 元数据加权重排
type Engine struct {
	embedder QueryEmbedder
	store    *vectorstore.Store
}

func New(embedder QueryEmbedder, store *vectorstore.Store) *Engine {
	return &Engine{embedder: embedder, store: store}
}

// Search 七步检索流程。粗排取3倍topK、阈值放宽到0.8倍，重排后再收紧。
func (e *Engine) Search(ctx context.Context, q SearchQuery) ([]Hit, error) {
	if q.TopK <= 0 {
		q.TopK = 10
	}

	vector, err := e.embedder.EmbedQuery(ctx, q.Query)
	if err != nil {
		return nil, err
	}

	coarse, err := e.store.Search(vector, coarseMultiplier*q.TopK, coarseThreshold*q.Threshold, q.Filter)
	if err != nil {
		return nil, err
	}
	if len(coarse) == 0 {
		return []Hit{}, nil
	}

	terms := queryTerms(q.Query)
	hits := make([]Hit, 0, len(coarse))
	for _, r := range coarse {
		score := boost(r.Score, r.Document.Metadata)
		hits = append(hits, Hit{
			Document:        r.Document,
			Score:           score,
			MatchedSegments: matchedSegments(r.Document.Content, terms),
			Explanation:     explain(score),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return len(hits[i].MatchedSegments) > len(hits[j].MatchedSegments)
	})

	final := hits[:0]
	for _, h := range hits {
		if h.Score < q.Threshold {
			continue
		}
		final = append(final, h)
		if len(final) == q.TopK {
			break
		}
	}
	for i := range final {
		final[i].Rank = i + 1
	}

	slog.Debug("语义检索完成", "query_len", len(q.Query), "coarse", len(coarse), "hits", len(final))
	return final, nil
}

// SimilarDocuments 以已入库文档的向量为查询找相似文档，排除自身
func (e *Engine) SimilarDocuments(id string, topK int, threshold float64) ([]Hit, error) {
	doc, err := e.store.GetDocument(id)
	if err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}

	results, err := e.store.Search(doc.Vector, topK+1, threshold, nil)
	if err != nil {
		return nil, err
	}

	hits := make([]Hit, 0, topK)
	for _, r := range results {
		if r.Document.ID == id {
			continue
		}
		hits = append(hits, Hit{
			Document:    r.Document,
			Score:       r.Score,
			Explanation: explain(r.Score),
		})
		if len(hits) == topK {
			break
		}
	}
	for i := range hits {
		hits[i].Rank = i + 1
	}
	return hits, nil
}

// queryTerms 中文按2-gram切词，其余按空白切词
func queryTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	add := func(t string) {
		if t != "" && !seen[t] {
			seen[t] = true
			terms = append(terms, t)
		}
	}

	for _, field := range strings.Fields(query) {
		runes := []rune(field)
		cjk := true
		for _, r := range runes {
			if !unicode.Is(unicode.Han, r) {
				cjk = false
				break
			}
		}
		if cjk && len(runes) >= 2 {
			for i := 0; i+2 <= len(runes); i++ {
				add(string(runes[i : i+2]))
			}
		} else {
			add(strings.ToLower(field))
		}
	}
	return terms
}

// matchedSegments 按简单词重叠抽出命中句，每篇最多3段
func matchedSegments(content string, terms []string) []string {
	segments := []string{}
	for _, sentence := range splitSentences(content) {
		lower := strings.ToLower(sentence)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				segments = append(segments, sentence)
				break
			}
		}
		if len(segments) == maxSegmentsPerDoc {
			break
		}
	}
	return segments
}

func splitSentences(text string) []string {
	var sentences []string
	var sb strings.Builder
	for _, r := range text {
		sb.WriteRune(r)
		switch r {
		case '。', '！', '？', '；', '\n', '.', '!', '?':
			if s := strings.TrimSpace(sb.String()); s != "" {
				sentences = append(sentences, s)
			}
			sb.Reset()
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// boost 元数据加权，结果封顶1.0
func boost(score float64, meta map[string]any) float64 {
	factor := 1.0
	if truthy(meta["is_title"]) {
		factor *= 1.5
	}
	if truthy(meta["important"]) {
		factor *= 1.3
	}
	if truthy(meta["recent"]) {
		factor *= 1.2
	}
	if truthy(meta["verified"]) {
		factor *= 1.1
	}
	boosted := score * factor
	if boosted > 1.0 {
		boosted = 1.0
	}
	return boosted
}

func truthy(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func explain(score float64) string {
	switch {
	case score >= 0.85:
		return "高度相关"
	case score >= 0.7:
		return "相关"
	case score >= 0.5:
		return "部分相关"
	default:
		return "低相关"
	}
}
