package scanning

import (
	"context"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

// Ollama can be slower, especially for vision models on CPU
const ollamaTimeout = 120 * time.Second

const ollamaSystemPrompt = "You are an expert at reading receipts. You must carefully read all text in images and transcribe it without changes."

// Ollama loads recognition engines backed by a local Ollama server.
// Recommended vision models with good OCR: qwen2.5vl, llava:1.6, minicpm-v.
type Ollama struct {
	client *api.Client
	model  string
}

// NewOllama creates a new Ollama engine provider
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "qwen2.5vl"
	}

	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid ollama URL %q", baseURL)
	}

	// Drop any path such as /api/chat; the client adds its own
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}

	return &Ollama{
		client: api.NewClient(base, http.DefaultClient),
		model:  modelName,
	}, nil
}

// Engine is a Loader that binds the shared client to language
func (o *Ollama) Engine(language string) (Engine, error) {
	return &ollamaEngine{client: o.client, model: o.model, prompt: regionScanPrompt(language)}, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}

type ollamaEngine struct {
	client *api.Client
	model  string
	prompt string
}

func (e *ollamaEngine) Recognize(img image.Image) ([]Region, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ollamaTimeout)
	defer cancel()

	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	stream := false
	req := &api.ChatRequest{
		Model: e.model,
		Messages: []api.Message{
			{
				Role:    "system",
				Content: ollamaSystemPrompt,
			},
			{
				Role:    "user",
				Content: e.prompt,
				Images:  []api.ImageData{api.ImageData(data)},
			},
		},
		Stream: &stream,
		Format: []byte(`"json"`),
	}

	var content string
	err = e.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		content += resp.Message.Content
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	if content == "" {
		return nil, fmt.Errorf("empty response from ollama")
	}

	regions, err := parseRegionsJSON(content, img.Bounds())
	if err != nil {
		return nil, fmt.Errorf("parsing ollama response: %w", err)
	}
	return regions, nil
}

func (e *ollamaEngine) Close() error {
	return nil
}
