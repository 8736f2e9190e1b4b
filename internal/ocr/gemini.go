package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"math"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

const geminiPrompt = `Detect every separate piece of text in this game screenshot.
Return a JSON array. Each item is one word or number exactly as printed:
{"text": "<text>", "box_2d": [ymin, xmin, ymax, xmax]}
Coordinates are normalized to 0-1000. Keep numbers with their thousands
separators. Reply with the JSON array only.`

// GeminiDetector asks a Gemini model for word boxes.
//
// Gemini reports boxes as [ymin, xmin, ymax, xmax] on a 0-1000 grid; they
// are scaled back to pixels using the image header.
type GeminiDetector struct {
	client    *genai.Client
	modelName string
}

// NewGeminiDetector creates a detector using the Gemini API with apiKey.
// An empty model selects the default flash model.
func NewGeminiDetector(ctx context.Context, apiKey, model string) (*GeminiDetector, error) {
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiDetector{client: client, modelName: model}, nil
}

type geminiWord struct {
	Text string     `json:"text"`
	Box  [4]float64 `json:"box_2d"`
}

// Detect sends the image to the model and converts the reply.
func (g *GeminiDetector) Detect(ctx context.Context, imageBytes []byte) ([]TextAnnotation, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: geminiPrompt},
				{InlineData: &genai.Blob{MIMEType: "image/" + format, Data: imageBytes}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}

	return parseGeminiWords([]byte(text), cfg.Width, cfg.Height)
}

// parseGeminiWords converts the model's JSON reply into pixel annotations.
func parseGeminiWords(data []byte, width, height int) ([]TextAnnotation, error) {
	var words []geminiWord
	if err := json.Unmarshal(data, &words); err != nil {
		return nil, fmt.Errorf("parse gemini JSON: %w", err)
	}

	sx := float64(width) / 1000
	sy := float64(height) / 1000

	out := make([]TextAnnotation, 0, len(words))
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" {
			continue
		}
		r := image.Rect(
			int(math.Round(w.Box[1]*sx)),
			int(math.Round(w.Box[0]*sy)),
			int(math.Round(w.Box[3]*sx)),
			int(math.Round(w.Box[2]*sy)),
		)
		out = append(out, NewAnnotation(text, r))
	}

	return withAggregate(out, image.Rect(0, 0, width, height)), nil
}
