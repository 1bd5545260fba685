package llmclient

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences(`{"a":1}`))
}

func TestDecodeJSONRepairsTrailingComma(t *testing.T) {
	var v map[string]any
	err := DecodeJSON(`{"a": 1, "b": [1, 2,],}`, &v)
	require.NoError(t, err)
	assert.Equal(t, float64(1), v["a"])
}

func TestDecodeJSONBadShape(t *testing.T) {
	var v map[string]any
	err := DecodeJSON(`这不是JSON`, &v)
	require.Error(t, err)
}

func TestDecodeObjectListShapes(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want int
	}{
		{"bare array", `[{"detail":"a"},{"detail":"b"}]`, 2},
		{"requirements wrapper", `{"requirements":[{"detail":"a"}]}`, 1},
		{"items wrapper", `{"items":[{"detail":"a"},{"detail":"b"},{"detail":"c"}]}`, 3},
		{"result wrapper", `{"result":[{"detail":"a"}]}`, 1},
		{"singleton object", `{"detail":"a"}`, 1},
		{"fenced array", "```json\n[{\"detail\":\"a\"}]\n```", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			list, err := DecodeObjectList(tc.raw)
			require.NoError(t, err)
			assert.Len(t, list, tc.want)
		})
	}
}

func TestFieldHelpers(t *testing.T) {
	m := map[string]any{"s": "x", "f": 0.9}
	assert.Equal(t, "x", StringField(m, "s", "d"))
	assert.Equal(t, "d", StringField(m, "missing", "d"))
	assert.Equal(t, 0.9, FloatField(m, "f", 0.5))
	assert.Equal(t, 0.5, FloatField(m, "missing", 0.5))
}
