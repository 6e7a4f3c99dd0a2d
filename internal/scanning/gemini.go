package scanning

import (
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const geminiTimeout = 30 * time.Second

// Gemini loads recognition engines backed by Google Gemini.
// All languages share one client.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGemini creates a new Gemini engine provider
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-flash"
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)

	return &Gemini{
		client: client,
		model:  model,
	}, nil
}

// Engine is a Loader that binds the shared client to language
func (g *Gemini) Engine(language string) (Engine, error) {
	return &geminiEngine{model: g.model, prompt: regionScanPrompt(language)}, nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}

type geminiEngine struct {
	model  *genai.GenerativeModel
	prompt string
}

func (e *geminiEngine) Recognize(img image.Image) ([]Region, error) {
	ctx, cancel := context.WithTimeout(context.Background(), geminiTimeout)
	defer cancel()

	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	// genai.ImageData expects just the format suffix (e.g., "png"), not the full MIME type
	resp, err := e.model.GenerateContent(ctx, genai.ImageData("png", data), genai.Text(e.prompt))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from gemini")
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	regions, err := parseRegionsJSON(responseText.String(), img.Bounds())
	if err != nil {
		return nil, fmt.Errorf("parsing gemini response: %w", err)
	}
	return regions, nil
}

// Close is a no-op; the client belongs to the provider
func (e *geminiEngine) Close() error {
	return nil
}
