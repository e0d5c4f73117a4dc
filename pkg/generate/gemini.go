package generate

import (
	"context"
	"fmt"

	"google.golang.org/genai"
	"k8s.io/klog/v2"
)

// Gemini generates records with the Gemini API.
type Gemini struct {
	clock
	client  *genai.Client
	MaxEdge int
}

// NewGemini returns a Gemini generator. baseURL may be empty.
func NewGemini(ctx context.Context, apiKey, baseURL string) (*Gemini, error) {
	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}
	return &Gemini{client: client, MaxEdge: DefaultMaxEdge}, nil
}

// Generate implements Generator.
func (g *Gemini) Generate(ctx context.Context, imagePath, model string) (map[string]any, error) {
	model = modelOr(model, ProviderGemini)
	bs, mime, err := LoadImage(imagePath, g.MaxEdge)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	klog.Infof("asking %s about %s", model, imagePath)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(bs, mime),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](temperature),
		MaxOutputTokens:  maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return nil, ErrNoOutput
	}

	finish := string(resp.Candidates[0].FinishReason)
	klog.V(1).Infof("response %s finished with %q", resp.ResponseID, finish)
	obj, err := parseObject(resp.Text())
	if err != nil {
		return nil, err
	}

	return Sidecar(obj, Provenance{
		Provider:     ProviderGemini,
		Model:        model,
		ResponseID:   resp.ResponseID,
		FinishReason: finish,
	}, g.now()), nil
}
