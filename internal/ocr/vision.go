package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultVisionEndpoint is the Cloud Vision batch annotation endpoint.
const DefaultVisionEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// VisionDetector calls Cloud Vision TEXT_DETECTION with an API key.
type VisionDetector struct {
	APIKey   string
	Endpoint string
	Client   *http.Client
}

// NewVisionDetector creates a detector for the public endpoint.
func NewVisionDetector(apiKey string) *VisionDetector {
	return &VisionDetector{
		APIKey:   apiKey,
		Endpoint: DefaultVisionEndpoint,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

type visionRequest struct {
	Requests []visionImageRequest `json:"requests"`
}

type visionImageRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

// Detect submits the image and returns its text annotations.
func (d *VisionDetector) Detect(ctx context.Context, imageBytes []byte) ([]TextAnnotation, error) {
	if d.APIKey == "" {
		return nil, fmt.Errorf("vision API key not configured")
	}

	body, err := json.Marshal(visionRequest{Requests: []visionImageRequest{{
		Image:    visionImage{Content: base64.StdEncoding.EncodeToString(imageBytes)},
		Features: []visionFeature{{Type: "TEXT_DETECTION"}},
	}}})
	if err != nil {
		return nil, fmt.Errorf("failed to encode vision request: %w", err)
	}

	endpoint := d.Endpoint
	if endpoint == "" {
		endpoint = DefaultVisionEndpoint
	}
	reqURL := endpoint + "?key=" + url.QueryEscape(d.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build vision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read vision response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vision returned %s: %s", resp.Status, bytes.TrimSpace(data))
	}

	return ParseAnnotations(data)
}
