package llmclient

import (
	"encoding/json"
	"regexp"
	"strings"
	"tender-agent-backend/apperr"
)

// 模型输出的JSON视为不可信输入：先原样解析，失败后做一轮修复再试。
// 修复规则：去掉```json围栏、删除尾随逗号、在相邻的 }{ 或 "" 之间补逗号。

var (
	fenceRegex         = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	trailingCommaRegex = regexp.MustCompile(`,\s*([}\]])`)
	missingCommaRegex  = regexp.MustCompile(`([}\]"])\s*\n\s*([{\["])`)
)

// StripFences 去除可选的Markdown代码围栏
func StripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := fenceRegex.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	return raw
}

// RepairJSON 对已去围栏的文本做一轮形状修复
func RepairJSON(raw string) string {
	raw = trailingCommaRegex.ReplaceAllString(raw, "$1")
	raw = missingCommaRegex.ReplaceAllString(raw, "$1,$2")
	return raw
}

// DecodeJSON 容错解析：原样→修复→失败返回 bad_json
func DecodeJSON(raw string, v any) error {
	text := StripFences(raw)
	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}
	repaired := RepairJSON(text)
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return apperr.LLM(apperr.LLMBadJSON, "unparseable model output", err)
	}
	return nil
}

// DecodeObjectList 解析模型返回的对象数组。
// 接受裸数组，或包装在 requirements/items/result 键下的数组，或单个对象。
func DecodeObjectList(raw string) ([]map[string]any, error) {
	text := RepairJSON(StripFences(raw))

	var list []map[string]any
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		return list, nil
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil {
		return nil, apperr.LLM(apperr.LLMBadJSON, "unparseable model output", err)
	}

	for _, key := range []string{"requirements", "items", "result"} {
		if inner, ok := obj[key].([]any); ok {
			return toObjectList(inner), nil
		}
	}

	// 单个对象视为单元素列表
	return []map[string]any{obj}, nil
}

func toObjectList(items []any) []map[string]any {
	var list []map[string]any
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			list = append(list, m)
		}
	}
	return list
}

// StringField 从解析后的对象取字符串字段，缺失返回默认值
func StringField(m map[string]any, key, fallback string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// FloatField 从解析后的对象取数值字段
func FloatField(m map[string]any, key string, fallback float64) float64 {
	if v, ok := m[key].(float64); ok {
		return v
	}
	return fallback
}
