package filter

import (
	"bytes"
	"context"
	_ "embed"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"tender-agent-backend/model"
	"tender-agent-backend/service/llmclient"
	"text/template"

	"golang.org/x/sync/errgroup"
)

const (
	// 过滤阶段的并发宽度
	defaultWorkerNum = 5

	reasonTitleDefault = "title默认保留"
	reasonTableDefault = "table默认保留"
)

//go:embed prompts/filter.txt
var filterPrompt string

// Input 待过滤的分块
type Input struct {
	ChunkID string
	Index   int
	Type    model.ChunkType
	Content string
}

// Result 单块过滤结论
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	Index      int     `json:"index"`
	IsValuable bool    `json:"is_valuable"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Agent 廉价模型逐块YES/NO分类器。
// title/table块不经模型直接保留；其余块并发调用小模型。
type Agent struct {
	client  *llmclient.Client
	workers int
	tmpl    *template.Template
}

func NewAgent(client *llmclient.Client) *Agent {
	tmpl := template.Must(template.New("filter").Parse(filterPrompt))
	return &Agent{client: client, workers: defaultWorkerNum, tmpl: tmpl}
}

// Filter 逐块判断价值。结果按分块顺序返回，与产出顺序无关。
func (a *Agent) Filter(ctx context.Context, chunks []Input) ([]Result, error) {
	if len(chunks) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(chunks))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, chunk := range chunks {
		// 结构性块无条件保留，不消耗API调用
		if chunk.Type == model.ChunkTypeTitle || chunk.Type == model.ChunkTypeTable {
			reason := reasonTitleDefault
			if chunk.Type == model.ChunkTypeTable {
				reason = reasonTableDefault
			}
			mu.Lock()
			results = append(results, Result{
				ChunkID:    chunk.ChunkID,
				Index:      chunk.Index,
				IsValuable: true,
				Confidence: 1.0,
				Reason:     reason,
			})
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			res := a.filterOne(gctx, chunk)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})
	return results, nil
}

func (a *Agent) filterOne(ctx context.Context, chunk Input) Result {
	var buf bytes.Buffer
	if err := a.tmpl.Execute(&buf, struct{ Content string }{Content: chunk.Content}); err != nil {
		return conservativeKeep(chunk, "prompt渲染失败")
	}

	resp, err := a.client.Call(ctx, buf.String(), llmclient.Options{
		Temperature: 0.1,
		MaxTokens:   50,
		Purpose:     "chunk_filter",
	})
	if err != nil {
		slog.Warn("filter call failed, keeping chunk",
			"chunk_id", chunk.ChunkID,
			"err", err,
		)
		return conservativeKeep(chunk, "模型调用失败")
	}

	return parseDecision(chunk, resp)
}

// parseDecision 容错解析模型输出。
// YES/是/有 -> 保留；NO/否/无 -> 丢弃；无法识别时保守保留（置信度0.5）。
func parseDecision(chunk Input, resp string) Result {
	line := strings.TrimSpace(resp)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}

	decision := line
	reason := ""
	if idx := strings.IndexAny(line, "|｜:："); idx >= 0 {
		decision = line[:idx]
		reason = strings.TrimLeft(line[idx:], "|｜:： ")
	}
	decision = strings.ToUpper(strings.TrimSpace(decision))

	if len([]rune(reason)) > 20 {
		reason = string([]rune(reason)[:20])
	}

	switch {
	case strings.HasPrefix(decision, "YES") ||
		strings.HasPrefix(decision, "是") ||
		strings.HasPrefix(decision, "有"):
		return Result{
			ChunkID:    chunk.ChunkID,
			Index:      chunk.Index,
			IsValuable: true,
			Confidence: 0.9,
			Reason:     reason,
		}
	case strings.HasPrefix(decision, "NO") ||
		strings.HasPrefix(decision, "否") ||
		strings.HasPrefix(decision, "无"):
		return Result{
			ChunkID:    chunk.ChunkID,
			Index:      chunk.Index,
			IsValuable: false,
			Confidence: 0.9,
			Reason:     reason,
		}
	default:
		return conservativeKeep(chunk, "输出无法识别")
	}
}

func conservativeKeep(chunk Input, reason string) Result {
	return Result{
		ChunkID:    chunk.ChunkID,
		Index:      chunk.Index,
		IsValuable: true,
		Confidence: 0.5,
		Reason:     reason,
	}
}

// Stats 透出底层客户端的 (calls, cost) 计数
func (a *Agent) Stats() (int64, float64) {
	return a.client.Stats()
}
