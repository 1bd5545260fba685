package capability

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"tender-agent-backend/apperr"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
)

type SearchMethod string

const (
	MethodSemantic SearchMethod = "semantic"
	MethodKeyword  SearchMethod = "keyword"
	MethodHybrid   SearchMethod = "hybrid"

	keywordHitScore = 0.8
	hybridBonusRate = 0.2

	VerdictSupported    = "supported"
	VerdictPartial      = "partial"
	VerdictUncertain    = "uncertain"
	VerdictNotSupported = "not_supported"
)

// QueryEmbedder 查询向量化依赖
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Hit struct {
	Capability model.Capability `json:"capability"`
	Score      float64          `json:"score"`
	Method     SearchMethod     `json:"method"`
}

// MatchResult 单条需求的匹配结论
type MatchResult struct {
	Requirement string  `json:"requirement"`
	Verdict     string  `json:"verdict"`
	TopScore    float64 `json:"top_score"`
	Hits        []Hit   `json:"hits"`
}

// BatchResult 批量匹配汇总
type BatchResult struct {
	Results      []MatchResult `json:"results"`
	CoverageRate float64       `json:"coverage_rate"`
	Supported    int           `json:"supported"`
	Partial      int           `json:"partial"`
	Total        int           `json:"total"`
}

// Searcher 企业能力检索与需求匹配
type Searcher struct {
	companyID string
	embedder  QueryEmbedder
}

func NewSearcher(companyID string, embedder QueryEmbedder) *Searcher {
	return &Searcher{companyID: companyID, embedder: embedder}
}

// Search 按指定方式检索能力，结果按分值降序
func (s *Searcher) Search(ctx context.Context, query string, method SearchMethod, topK int) ([]Hit, error) {
	if topK <= 0 {
		topK = 10
	}

	var hits []Hit
	var err error
	switch method {
	case MethodKeyword:
		hits, err = s.keywordSearch(query)
	case MethodSemantic:
		hits, err = s.semanticSearch(ctx, query)
	case MethodHybrid:
		hits, err = s.hybridSearch(ctx, query)
	default:
		return nil, apperr.Validation("unknown search method: "+string(method), nil)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *Searcher) semanticSearch(ctx context.Context, query string) ([]Hit, error) {
	queryVec, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	capabilities, err := dao.GetCompanyCapabilities(s.companyID)
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for _, c := range capabilities {
		if len(c.CapabilityEmbedding) == 0 {
			continue
		}
		vec := DecodeVector(c.CapabilityEmbedding)
		if len(vec) != len(queryVec) {
			continue
		}
		var score float64
		for i := range vec {
			score += float64(vec[i]) * float64(queryVec[i])
		}
		hits = append(hits, Hit{Capability: c, Score: score, Method: MethodSemantic})
	}
	return hits, nil
}

func (s *Searcher) keywordSearch(query string) ([]Hit, error) {
	seen := make(map[string]bool)
	var hits []Hit
	for _, term := range keywordTerms(query) {
		capabilities, err := dao.SearchCapabilitiesByKeyword(s.companyID, term)
		if err != nil {
			return nil, err
		}
		for _, c := range capabilities {
			if seen[c.CapabilityID] {
				continue
			}
			seen[c.CapabilityID] = true
			hits = append(hits, Hit{Capability: c, Score: keywordHitScore, Method: MethodKeyword})
		}
	}
	return hits, nil
}

func (s *Searcher) hybridSearch(ctx context.Context, query string) ([]Hit, error) {
	semantic, err := s.semanticSearch(ctx, query)
	if err != nil {
		return nil, err
	}
	keyword, err := s.keywordSearch(query)
	if err != nil {
		return nil, err
	}
	return mergeHybrid(semantic, keyword), nil
}

// mergeHybrid 按capability_id合并两路结果。
// 仅关键词命中的按关键词分值计入；两路同时命中的加 0.2·keyword_score，封顶1.0。
func mergeHybrid(semantic, keyword []Hit) []Hit {
	merged := make(map[string]Hit, len(semantic)+len(keyword))
	for _, h := range semantic {
		h.Method = MethodHybrid
		merged[h.Capability.CapabilityID] = h
	}
	for _, kw := range keyword {
		id := kw.Capability.CapabilityID
		if existing, ok := merged[id]; ok {
			existing.Score += hybridBonusRate * kw.Score
			if existing.Score > 1.0 {
				existing.Score = 1.0
			}
			merged[id] = existing
		} else {
			kw.Method = MethodHybrid
			merged[id] = kw
		}
	}

	hits := make([]Hit, 0, len(merged))
	for _, h := range merged {
		hits = append(hits, h)
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	return hits
}

// MatchRequirement 单条需求匹配，结论由最高分决定
func (s *Searcher) MatchRequirement(ctx context.Context, requirement string, method SearchMethod) (*MatchResult, error) {
	hits, err := s.Search(ctx, requirement, method, 3)
	if err != nil {
		return nil, err
	}

	result := &MatchResult{Requirement: requirement, Hits: hits}
	if len(hits) > 0 {
		result.TopScore = hits[0].Score
	}
	result.Verdict = verdictFor(hits)
	return result, nil
}

func verdictFor(hits []Hit) string {
	if len(hits) == 0 {
		return VerdictNotSupported
	}
	switch top := hits[0].Score; {
	case top >= 0.8:
		return VerdictSupported
	case top >= 0.6:
		return VerdictPartial
	default:
		return VerdictUncertain
	}
}

// BatchMatch 批量匹配并落匹配历史，覆盖率 = (supported + 0.5·partial) / total
func (s *Searcher) BatchMatch(ctx context.Context, projectID, sessionID string, requirements []string, method SearchMethod) (*BatchResult, error) {
	batch := &BatchResult{Total: len(requirements)}
	var history []model.CapabilityMatchHistory

	for _, requirement := range requirements {
		result, err := s.MatchRequirement(ctx, requirement, method)
		if err != nil {
			return nil, err
		}
		batch.Results = append(batch.Results, *result)

		switch result.Verdict {
		case VerdictSupported:
			batch.Supported++
		case VerdictPartial:
			batch.Partial++
		}

		for rank, hit := range result.Hits {
			history = append(history, model.CapabilityMatchHistory{
				CompanyID:           s.companyID,
				TenderProjectID:     projectID,
				SessionID:           sessionID,
				RequirementText:     requirement,
				MatchedCapabilityID: hit.Capability.CapabilityID,
				MatchScore:          hit.Score,
				MatchMethod:         string(method),
				MatchRank:           rank + 1,
			})
		}
	}

	batch.CoverageRate = coverageRate(batch.Supported, batch.Partial, batch.Total)

	if len(history) > 0 {
		if err := dao.AppendMatchHistory(history); err != nil {
			return nil, err
		}
	}

	slog.Info("需求批量匹配完成",
		"company_id", s.companyID, "total", batch.Total,
		"supported", batch.Supported, "partial", batch.Partial,
		"coverage", batch.CoverageRate)
	return batch, nil
}

func coverageRate(supported, partial, total int) float64 {
	if total == 0 {
		return 0
	}
	return (float64(supported) + 0.5*float64(partial)) / float64(total)
}

// keywordTerms 中文按2-gram切词，其余按空白切词
func keywordTerms(query string) []string {
	seen := make(map[string]bool)
	var terms []string
	for _, field := range strings.Fields(query) {
		runes := []rune(field)
		if isCJK(runes) && len(runes) >= 2 {
			for i := 0; i+2 <= len(runes); i++ {
				t := string(runes[i : i+2])
				if !seen[t] {
					seen[t] = true
					terms = append(terms, t)
				}
			}
		} else if !seen[field] {
			seen[field] = true
			terms = append(terms, field)
		}
	}
	return terms
}

func isCJK(runes []rune) bool {
	for _, r := range runes {
		if r < 0x4E00 || r > 0x9FFF {
			return false
		}
	}
	return len(runes) > 0
}
