package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"tender-agent-backend/apperr"
	"tender-agent-backend/config"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	defaultBatchSize = 100
	maxTextChars     = 8000
	interBatchDelay  = 100 * time.Millisecond
	embedHTTPTimeout = 60 * time.Second
)

// Service 文本向量化封装。
// 空文本替换为单个空格，超长文本截断到8000字符，批间留间隔避免限流。
type Service struct {
	embedder  embeddings.Embedder
	dim       int
	batchSize int

	mu        sync.Mutex
	textCount int64
	apiCalls  int64
}

func New() (*Service, error) {
	client, err := openai.New(
		openai.WithEmbeddingModel(config.Cfg.Embedding.Model),
		openai.WithToken(config.Cfg.Model.APIKey),
		openai.WithBaseURL(config.Cfg.Model.BaseURL),
		openai.WithHTTPClient(&http.Client{
			Timeout: embedHTTPTimeout,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder client: %v", err)
	}

	batchSize := config.Cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	embedder, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(batchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %v", err)
	}

	return &Service{
		embedder:  embedder,
		dim:       config.Cfg.Embedding.Dim,
		batchSize: batchSize,
	}, nil
}

// NewWithEmbedder 注入自定义embedder，供测试使用
func NewWithEmbedder(embedder embeddings.Embedder, dim, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Service{embedder: embedder, dim: dim, batchSize: batchSize}
}

func (s *Service) Dim() int {
	return s.dim
}

// EmbedTexts 批量向量化。返回向量与输入一一对应。
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	prepared := make([]string, len(texts))
	for i, text := range texts {
		prepared[i] = prepare(text)
	}

	vectors := make([][]float32, 0, len(prepared))
	for start := 0; start < len(prepared); start += s.batchSize {
		end := start + s.batchSize
		if end > len(prepared) {
			end = len(prepared)
		}

		if start > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(interBatchDelay):
			}
		}

		batch, err := s.embedder.EmbedDocuments(ctx, prepared[start:end])
		if err != nil {
			return nil, apperr.LLM(apperr.LLMNetwork, "embedding batch failed", err)
		}
		if len(batch) != end-start {
			return nil, apperr.LLM(apperr.LLMServer,
				fmt.Sprintf("embedding count mismatch: want %d, got %d", end-start, len(batch)), nil)
		}
		vectors = append(vectors, batch...)

		s.mu.Lock()
		s.textCount += int64(end - start)
		s.apiCalls++
		s.mu.Unlock()
	}

	slog.Debug("文本向量化完成", "texts", len(texts), "dim", s.dim)
	return vectors, nil
}

// EmbedQuery 单条查询向量化
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vector, err := s.embedder.EmbedQuery(ctx, prepare(text))
	if err != nil {
		return nil, apperr.LLM(apperr.LLMNetwork, "query embedding failed", err)
	}

	s.mu.Lock()
	s.textCount++
	s.apiCalls++
	s.mu.Unlock()
	return vector, nil
}

// Stats 返回 (已向量化文本数, API调用次数)
func (s *Service) Stats() (int64, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textCount, s.apiCalls
}

// prepare 空文本会让部分embedding接口报错，用单个空格占位
func prepare(text string) string {
	if text == "" {
		return " "
	}
	runes := []rune(text)
	if len(runes) > maxTextChars {
		return string(runes[:maxTextChars])
	}
	return text
}
