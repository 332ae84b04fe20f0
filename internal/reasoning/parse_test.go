package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONObjectFromProse(t *testing.T) {
	content := "Sure! Here is the analysis:\n```json\n{\"intent\": \"browsing\", \"confidence\": 0.8}\n```\nLet me know if you need more."

	raw, ok := ExtractJSONObject(content)
	require.True(t, ok)
	assert.Equal(t, `{"intent": "browsing", "confidence": 0.8}`, raw)
}

func TestExtractJSONObjectNested(t *testing.T) {
	content := `prefix {"a": {"b": [1, 2]}, "c": "x}y"} suffix {"d": 1}`

	raw, ok := ExtractJSONObject(content)
	require.True(t, ok)
	assert.Equal(t, `{"a": {"b": [1, 2]}, "c": "x}y"}`, raw)
}

func TestExtractJSONObjectHandlesEscapedQuotes(t *testing.T) {
	content := `{"text": "he said \"hi\" {not a brace}"}`

	raw, ok := ExtractJSONObject(content)
	require.True(t, ok)
	assert.Equal(t, content, raw)
}

func TestExtractJSONObjectMissing(t *testing.T) {
	_, ok := ExtractJSONObject("no json here")
	assert.False(t, ok)

	_, ok = ExtractJSONObject(`{"unbalanced": true`)
	assert.False(t, ok)
}

func TestExtractJSONArray(t *testing.T) {
	content := `The recommendations are: [{"id": 1}, {"id": 2}] as requested.`

	raw, ok := ExtractJSONArray(content)
	require.True(t, ok)
	assert.Equal(t, `[{"id": 1}, {"id": 2}]`, raw)
}

func TestDecodeObject(t *testing.T) {
	var out struct {
		Intent     string  `json:"intent"`
		Confidence float64 `json:"confidence"`
	}

	err := DecodeObject(`noise {"intent": "checkout", "confidence": 0.9} noise`, &out)
	require.NoError(t, err)
	assert.Equal(t, "checkout", out.Intent)
	assert.Equal(t, 0.9, out.Confidence)
}

func TestDecodeObjectMalformed(t *testing.T) {
	var out map[string]any

	err := DecodeObject(`{"broken": }`, &out)
	assert.Error(t, err)

	err = DecodeObject("plain text", &out)
	assert.Error(t, err)
}

func TestDecodeArray(t *testing.T) {
	var out []struct {
		Title string `json:"title"`
	}

	err := DecodeArray(`[{"title": "a"}, {"title": "b"}]`, &out)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0].Title)
}
