package generate

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"k8s.io/klog/v2"
)

// OpenAI generates records with the chat completions API.
type OpenAI struct {
	clock
	client  *openai.Client
	MaxEdge int
}

// NewOpenAI returns an OpenAI generator. baseURL may be empty.
func NewOpenAI(apiKey, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), MaxEdge: DefaultMaxEdge}
}

// Generate implements Generator.
func (o *OpenAI) Generate(ctx context.Context, imagePath, model string) (map[string]any, error) {
	model = modelOr(model, ProviderOpenAI)
	bs, mime, err := LoadImage(imagePath, o.MaxEdge)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	klog.Infof("asking %s about %s", model, imagePath)
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: dataURL(bs, mime), Detail: openai.ImageURLDetailAuto},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "image_metadata",
				Schema: responseSchema,
			},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrNoOutput
	}

	choice := resp.Choices[0]
	klog.V(1).Infof("response %s finished with %q", resp.ID, choice.FinishReason)
	obj, err := parseObject(choice.Message.Content)
	if err != nil {
		return nil, err
	}

	return Sidecar(obj, Provenance{
		Provider:     ProviderOpenAI,
		Model:        model,
		ResponseID:   resp.ID,
		FinishReason: string(choice.FinishReason),
	}, o.now()), nil
}
