package dailyai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/annie444/daily-ai/classify"
	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/rs/zerolog/log"
)

// Labeler names a group of history items
type Labeler interface {
	Label(ctx context.Context, items []classify.HistoryItem) (string, error)
}

// URLLabel is the structured response expected from the labeling model
type URLLabel struct {
	Label string `json:"label" jsonschema:"description=A short topical label (2 to 6 words) for the group of URLs"`
}

const labelSystemPrompt = `You label groups of web pages from a person's browsing history.
You receive a JSON list of visited pages with their URL, title and visit count.

Rules:
- Reply with one short label (2 to 6 words) naming the shared topic or task.
- Prefer concrete subjects ("Go generics proposal", "Kyoto trip planning") over generic ones ("Web browsing").
- If the pages have nothing in common, name the most visited topic.
- Do not include URLs, dates or punctuation at the end.`

// OpenAILabeler asks a chat model for a label using a JSON schema response format
type OpenAILabeler struct {
	Client      openai.Client
	Model       string
	Temperature float64
}

// labelSchema reflects the JSON schema of URLLabel for structured output
func labelSchema() (any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaObj := reflector.Reflect(&URLLabel{})
	if schemaObj.Type == "" {
		schemaObj.Type = "object"
	}

	// Convert to any for the OpenAI SDK
	schemaBytes, err := json.Marshal(schemaObj)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schema any
	if err := json.Unmarshal(schemaBytes, &schema); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return schema, nil
}

// Label implements Labeler
func (l *OpenAILabeler) Label(ctx context.Context, items []classify.HistoryItem) (string, error) {
	itemsJSON, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal items: %w", err)
	}
	schema, err := labelSchema()
	if err != nil {
		return "", err
	}

	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(labelSystemPrompt),
			openai.UserMessage(string(itemsJSON)),
		},
		Model:       openai.ChatModel(l.Model),
		Temperature: openai.Float(l.Temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "url_label",
					Description: openai.String("Short label for a group of browsing history URLs"),
					Schema:      schema,
					Strict:      openai.Bool(true),
				},
			},
		},
	}

	var completion *openai.ChatCompletion
	err = llmRetry.do(ctx, "label", func() error {
		var err error
		completion, err = l.Client.Chat.Completions.New(ctx, params)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to call chat completions API: %w", err)
	}

	if len(completion.Choices) == 0 || completion.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no content in label response")
	}

	var label URLLabel
	if err := json.Unmarshal([]byte(completion.Choices[0].Message.Content), &label); err != nil {
		return "", fmt.Errorf("failed to parse label response: %w", err)
	}
	label.Label = strings.TrimSpace(label.Label)
	if label.Label == "" {
		return "", fmt.Errorf("model returned an empty label")
	}

	log.Debug().Int("items", len(items)).Str("label", label.Label).Msg("labeled group")
	return label.Label, nil
}
