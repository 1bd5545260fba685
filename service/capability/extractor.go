package capability

import (
	"context"
	_ "embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"tender-agent-backend/dao"
	"tender-agent-backend/model"
	"tender-agent-backend/service/llmclient"
	"text/template"
	"time"

	"github.com/google/uuid"
)

const defaultMinConfidence = 0.7

//go:embed prompts/capability.txt
var capabilityPrompt string

type rawCapability struct {
	CapabilityName        string            `json:"capability_name"`
	CapabilityType        string            `json:"capability_type"`
	CapabilityDescription string            `json:"capability_description"`
	Metrics               map[string]string `json:"metrics"`
	OriginalText          string            `json:"original_text"`
	Confidence            float64           `json:"confidence"`
}

type capabilityEnvelope struct {
	Capabilities []rawCapability `json:"capabilities"`
}

// TextEmbedder 能力描述向量化依赖
type TextEmbedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Extractor 从产品文档分块中抽取能力项并入库
type Extractor struct {
	client        *llmclient.Client
	embedder      TextEmbedder
	embedModel    string
	minConfidence float64
	tmpl          *template.Template
}

func NewExtractor(client *llmclient.Client, embedder TextEmbedder, embedModel string) *Extractor {
	tmpl := template.Must(template.New("capability").Parse(capabilityPrompt))
	return &Extractor{
		client:        client,
		embedder:      embedder,
		embedModel:    embedModel,
		minConfidence: defaultMinConfidence,
		tmpl:          tmpl,
	}
}

// ExtractFromChunks 逐块抽取，低于置信度阈值的条目丢弃；
// 每个存活条目向量化后连同关键词侧表一起入库。
func (e *Extractor) ExtractFromChunks(ctx context.Context, companyID, docID string, chunks []model.DocumentChunk) ([]model.Capability, error) {
	var saved []model.Capability

	for _, chunk := range chunks {
		items, err := e.extractOne(ctx, chunk.Content)
		if err != nil {
			slog.Warn("能力抽取失败，跳过该块", "chunk_id", chunk.ChunkID, "error", err)
			continue
		}

		for _, item := range items {
			if item.Confidence < e.minConfidence || strings.TrimSpace(item.CapabilityName) == "" {
				continue
			}

			vectors, err := e.embedder.EmbedTexts(ctx, []string{embedText(item)})
			if err != nil {
				return saved, err
			}

			metrics, _ := json.Marshal(item.Metrics)
			capability := model.Capability{
				CapabilityID:          uuid.NewString(),
				CompanyID:             companyID,
				DocID:                 docID,
				ChunkID:               chunk.ChunkID,
				CapabilityName:        item.CapabilityName,
				CapabilityType:        normalizeType(item.CapabilityType),
				CapabilityDescription: item.CapabilityDescription,
				OriginalText:          item.OriginalText,
				Metrics:               metrics,
				ExtractionModel:       e.client.ModelName(),
				ConfidenceScore:       item.Confidence,
				ExtractedAt:           time.Now(),
				CapabilityEmbedding:   EncodeVector(vectors[0]),
				EmbeddingModel:        e.embedModel,
				IsActive:              true,
			}

			if err := dao.CreateCapabilityWithKeywords(&capability, keywords(capability.CapabilityID, item)); err != nil {
				return saved, err
			}
			saved = append(saved, capability)
		}
	}

	slog.Info("能力抽取完成", "company_id", companyID, "doc_id", docID, "saved", len(saved))
	return saved, nil
}

func (e *Extractor) extractOne(ctx context.Context, content string) ([]rawCapability, error) {
	var sb strings.Builder
	if err := e.tmpl.Execute(&sb, map[string]string{"Content": content}); err != nil {
		return nil, fmt.Errorf("渲染能力抽取提示词失败: %w", err)
	}

	resp, err := e.client.Call(ctx, sb.String(), llmclient.Options{
		Temperature: 0.1,
		JSONMode:    true,
		Purpose:     "capability_extract",
	})
	if err != nil {
		return nil, err
	}
	return decodeCapabilities(resp)
}

// decodeCapabilities 接受 {"capabilities": [...]} 或裸数组
func decodeCapabilities(resp string) ([]rawCapability, error) {
	var envelope capabilityEnvelope
	if err := llmclient.DecodeJSON(resp, &envelope); err == nil && envelope.Capabilities != nil {
		return envelope.Capabilities, nil
	}
	var list []rawCapability
	if err := llmclient.DecodeJSON(resp, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// keywords 能力名 + 指标键构成关键词侧表行
func keywords(capabilityID string, item rawCapability) []model.CapabilityKeyword {
	rows := []model.CapabilityKeyword{{
		CapabilityID: capabilityID,
		Keyword:      item.CapabilityName,
		KeywordType:  "name",
		Source:       "extraction",
	}}
	for metric := range item.Metrics {
		rows = append(rows, model.CapabilityKeyword{
			CapabilityID: capabilityID,
			Keyword:      metric,
			KeywordType:  "metric",
			Source:       "extraction",
		})
	}
	return rows
}

func embedText(item rawCapability) string {
	if item.CapabilityDescription != "" {
		return item.CapabilityName + ": " + item.CapabilityDescription
	}
	return item.CapabilityName
}

func normalizeType(s string) model.CapabilityType {
	switch model.CapabilityType(strings.ToLower(strings.TrimSpace(s))) {
	case model.CapabilityInterface:
		return model.CapabilityInterface
	case model.CapabilityService:
		return model.CapabilityService
	case model.CapabilityPerformance:
		return model.CapabilityPerformance
	default:
		return model.CapabilityFunction
	}
}

// EncodeVector float32向量按小端序编码为BLOB
func EncodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// DecodeVector EncodeVector 的逆操作
func DecodeVector(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
