package capability

import (
	"testing"
	"tender-agent-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVectorCodecRoundTrip(t *testing.T) {
	vec := []float32{0.1, -0.5, 0.9999, 0}
	decoded := DecodeVector(EncodeVector(vec))
	require.Len(t, decoded, len(vec))
	for i := range vec {
		assert.Equal(t, vec[i], decoded[i])
	}
}

func TestDecodeCapabilities(t *testing.T) {
	envelope := `{"capabilities": [{"capability_name": "高性能处理", "capability_type": "performance", "metrics": {"TPS": "10万/节点"}, "confidence": 0.9}]}`
	items, err := decodeCapabilities(envelope)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "高性能处理", items[0].CapabilityName)
	assert.Equal(t, "10万/节点", items[0].Metrics["TPS"])

	bare := "```json\n[{\"capability_name\": \"免密认证\", \"confidence\": 0.8}]\n```"
	items, err = decodeCapabilities(bare)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "免密认证", items[0].CapabilityName)

	_, err = decodeCapabilities("不是JSON")
	assert.Error(t, err)
}

func TestKeywordsFromItem(t *testing.T) {
	rows := keywords("cap-1", rawCapability{
		CapabilityName: "高性能处理",
		Metrics:        map[string]string{"TPS": "10万/节点", "P99": "50ms"},
	})
	require.Len(t, rows, 3)
	assert.Equal(t, "name", rows[0].KeywordType)
	assert.Equal(t, "高性能处理", rows[0].Keyword)

	var metricKeys []string
	for _, r := range rows[1:] {
		assert.Equal(t, "metric", r.KeywordType)
		metricKeys = append(metricKeys, r.Keyword)
	}
	assert.ElementsMatch(t, []string{"TPS", "P99"}, metricKeys)
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, model.CapabilityPerformance, normalizeType("performance"))
	assert.Equal(t, model.CapabilityService, normalizeType(" Service "))
	assert.Equal(t, model.CapabilityFunction, normalizeType("别的"))
	assert.Equal(t, model.CapabilityFunction, normalizeType(""))
}

func TestMergeHybrid(t *testing.T) {
	cap1 := model.Capability{CapabilityID: "c1", CapabilityName: "高性能处理"}
	cap2 := model.Capability{CapabilityID: "c2", CapabilityName: "免密认证"}
	cap3 := model.Capability{CapabilityID: "c3", CapabilityName: "维修服务"}

	semantic := []Hit{
		{Capability: cap1, Score: 0.9, Method: MethodSemantic},
		{Capability: cap2, Score: 0.5, Method: MethodSemantic},
	}
	keyword := []Hit{
		{Capability: cap1, Score: keywordHitScore, Method: MethodKeyword},
		{Capability: cap3, Score: keywordHitScore, Method: MethodKeyword},
	}

	merged := mergeHybrid(semantic, keyword)
	require.Len(t, merged, 3)

	byID := make(map[string]Hit)
	for _, h := range merged {
		assert.Equal(t, MethodHybrid, h.Method)
		byID[h.Capability.CapabilityID] = h
	}

	// 双路命中：0.9 + 0.2·0.8 = 1.06 封顶到 1.0
	assert.Equal(t, 1.0, byID["c1"].Score)
	assert.Equal(t, 0.5, byID["c2"].Score)
	assert.Equal(t, keywordHitScore, byID["c3"].Score)
	assert.Equal(t, "c1", merged[0].Capability.CapabilityID)
}

func TestVerdictFor(t *testing.T) {
	assert.Equal(t, VerdictNotSupported, verdictFor(nil))
	assert.Equal(t, VerdictSupported, verdictFor([]Hit{{Score: 0.85}}))
	assert.Equal(t, VerdictPartial, verdictFor([]Hit{{Score: 0.7}}))
	assert.Equal(t, VerdictUncertain, verdictFor([]Hit{{Score: 0.4}}))
}

func TestCoverageRate(t *testing.T) {
	assert.Equal(t, 0.0, coverageRate(0, 0, 0))
	assert.Equal(t, 1.0, coverageRate(4, 0, 4))
	assert.Equal(t, 0.75, coverageRate(2, 2, 4))
}

func TestKeywordTerms(t *testing.T) {
	terms := keywordTerms("高并发 API")
	assert.Contains(t, terms, "高并")
	assert.Contains(t, terms, "并发")
	assert.Contains(t, terms, "API")
}
