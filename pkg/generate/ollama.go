package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ollama/ollama/api"
	"k8s.io/klog/v2"
)

// Ollama generates records with a local multimodal model.
type Ollama struct {
	clock
	client  *api.Client
	MaxEdge int
}

// NewOllama returns an Ollama generator for host, or for OLLAMA_HOST when host is empty.
func NewOllama(host string) (*Ollama, error) {
	if host == "" {
		client, err := api.ClientFromEnvironment()
		if err != nil {
			return nil, fmt.Errorf("ollama client: %w", err)
		}
		return &Ollama{client: client, MaxEdge: DefaultMaxEdge}, nil
	}

	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}
	return &Ollama{client: api.NewClient(u, http.DefaultClient), MaxEdge: DefaultMaxEdge}, nil
}

// Generate implements Generator.
func (o *Ollama) Generate(ctx context.Context, imagePath, model string) (map[string]any, error) {
	model = modelOr(model, ProviderOllama)
	bs, _, err := LoadImage(imagePath, o.MaxEdge)
	if err != nil {
		return nil, fmt.Errorf("load image: %w", err)
	}

	stream := false
	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Images: []api.ImageData{bs},
		Format: json.RawMessage(`"json"`),
		Stream: &stream,
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}

	klog.Infof("asking %s about %s", model, imagePath)
	var text strings.Builder
	var done string
	err = o.client.Generate(ctx, req, func(r api.GenerateResponse) error {
		text.WriteString(r.Response)
		if r.Done {
			done = r.DoneReason
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	obj, err := parseObject(text.String())
	if err != nil {
		return nil, err
	}

	return Sidecar(obj, Provenance{
		Provider:     ProviderOllama,
		Model:        model,
		FinishReason: done,
	}, o.now()), nil
}
