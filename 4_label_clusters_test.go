package dailyai

import (
	"context"
	"testing"

	"github.com/annie444/daily-ai/classify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 0,
		"model":   "test-label",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message": map[string]any{
				"role":    "assistant",
				"content": content,
			},
		}},
	}
}

func TestOpenAILabeler(t *testing.T) {
	var request map[string]any
	fake := newFakeOpenAI(t, map[string]func(map[string]any) any{
		"/chat/completions": func(body map[string]any) any {
			request = body
			return chatResponse(`{"label": "  Go tooling  "}`)
		},
	})
	labeler := &OpenAILabeler{Client: fake.client(t), Model: "test-label"}

	items := []classify.HistoryItem{{URL: "https://go.dev/doc", VisitCount: 3}}
	label, err := labeler.Label(context.Background(), items)
	require.NoError(t, err)
	assert.Equal(t, "Go tooling", label)

	assert.Equal(t, "test-label", request["model"])
	format := request["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	schema := format["json_schema"].(map[string]any)
	assert.Equal(t, "url_label", schema["name"])
	assert.Equal(t, true, schema["strict"])

	messages := request["messages"].([]any)
	require.Len(t, messages, 2)
	user := messages[1].(map[string]any)
	assert.Contains(t, user["content"], "https://go.dev/doc")
}

func TestOpenAILabeler_BadResponses(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty content", ""},
		{"not json", "Go tooling"},
		{"blank label", `{"label": "   "}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeOpenAI(t, map[string]func(map[string]any) any{
				"/chat/completions": func(map[string]any) any { return chatResponse(tt.content) },
			})
			labeler := &OpenAILabeler{Client: fake.client(t), Model: "test-label"}
			_, err := labeler.Label(context.Background(), []classify.HistoryItem{{URL: "https://x.example"}})
			assert.Error(t, err)
		})
	}
}

func TestLabelSchema(t *testing.T) {
	schema, err := labelSchema()
	require.NoError(t, err)

	obj := schema.(map[string]any)
	assert.Equal(t, "object", obj["type"])
	assert.Equal(t, false, obj["additionalProperties"])
	props := obj["properties"].(map[string]any)
	assert.Contains(t, props, "label")
	assert.Equal(t, []any{"label"}, obj["required"])
}
