package outline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"tender-agent-backend/service/llmclient"
	"tender-agent-backend/service/semanticsearch"
)

const (
	matchTopK       = 10
	matchKeepPerCat = 3

	titleHitWeight   = 2.0
	contentHitWeight = 1.0
)

// MatchedDoc 类别命中的产品资料
type MatchedDoc struct {
	DocID   string  `json:"doc_id"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// ProductMatcher 按需求类别在产品资料库中找支撑文档。
// 先语义检索加关键词打分，可选再用模型重排取前3。
type ProductMatcher struct {
	engine *semanticsearch.Engine
	client *llmclient.Client

	// 模型重排开关，默认只用关键词打分
	WithRerank bool
}

func NewProductMatcher(engine *semanticsearch.Engine, client *llmclient.Client) *ProductMatcher {
	return &ProductMatcher{engine: engine, client: client}
}

// Match 返回 {类别名 → 最多3篇支撑文档}
func (m *ProductMatcher) Match(ctx context.Context, categories []Category) (map[string][]MatchedDoc, error) {
	matched := make(map[string][]MatchedDoc, len(categories))
	for _, category := range categories {
		docs, err := m.matchCategory(ctx, category)
		if err != nil {
			slog.Warn("类别产品匹配失败", "category", category.Name, "error", err)
			continue
		}
		if len(docs) > 0 {
			matched[category.Name] = docs
		}
	}
	return matched, nil
}

func (m *ProductMatcher) matchCategory(ctx context.Context, category Category) ([]MatchedDoc, error) {
	query := category.Name
	if len(category.Keywords) > 0 {
		query += " " + strings.Join(category.Keywords, " ")
	}

	hits, err := m.engine.Search(ctx, semanticsearch.SearchQuery{
		Query:     query,
		TopK:      matchTopK,
		Threshold: 0.3,
	})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, nil
	}

	docs := make([]MatchedDoc, 0, len(hits))
	for _, h := range hits {
		title, _ := h.Document.Metadata["title"].(string)
		docs = append(docs, MatchedDoc{
			DocID:   h.Document.ID,
			Title:   title,
			Content: h.Document.Content,
			Score:   keywordScore(title, h.Document.Content, category.Keywords) + h.Score,
		})
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })

	if m.WithRerank && m.client != nil && len(docs) > matchKeepPerCat {
		if reranked, err := m.rerank(ctx, category, docs); err == nil {
			docs = reranked
		} else {
			slog.Warn("产品匹配重排失败，沿用关键词排序", "category", category.Name, "error", err)
		}
	}
	if len(docs) > matchKeepPerCat {
		docs = docs[:matchKeepPerCat]
	}
	return docs, nil
}

// keywordScore 标题命中权重高于正文命中
func keywordScore(title, content string, keywords []string) float64 {
	var score float64
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(title, kw) {
			score += titleHitWeight
		}
		if strings.Contains(content, kw) {
			score += contentHitWeight
		}
	}
	return score
}

// rerank 让模型从候选中挑出最支撑该类别的3篇
func (m *ProductMatcher) rerank(ctx context.Context, category Category, docs []MatchedDoc) ([]MatchedDoc, error) {
	var sb strings.Builder
	sb.WriteString("需求类别：" + category.Name + "\n要求：" + category.Description + "\n\n候选资料：\n")
	for i, d := range docs {
		preview := d.Content
		if runes := []rune(preview); len(runes) > 200 {
			preview = string(runes[:200])
		}
		fmt.Fprintf(&sb, "%d. %s：%s\n", i+1, d.Title, preview)
	}
	sb.WriteString("\n请选出最能支撑该类别的3篇资料，严格按JSON输出：{\"selected\": [序号1, 序号2, 序号3]}")

	resp, err := m.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.1,
		JSONMode:    true,
		Purpose:     "product_rerank",
	})
	if err != nil {
		return nil, err
	}

	var result struct {
		Selected []int `json:"selected"`
	}
	if err := llmclient.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}

	var reranked []MatchedDoc
	for _, n := range result.Selected {
		if n >= 1 && n <= len(docs) {
			reranked = append(reranked, docs[n-1])
		}
		if len(reranked) == matchKeepPerCat {
			break
		}
	}
	if len(reranked) == 0 {
		return nil, fmt.Errorf("重排结果为空")
	}
	return reranked, nil
}
