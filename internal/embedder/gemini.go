package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// defaultGeminiBaseURL is the Generative Language API base.
const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// GeminiEmbedder implements rag.Embedder using the Gemini batchEmbedContents
// REST endpoint. It is safe for concurrent use.
type GeminiEmbedder struct {
	// baseURL is the API base, overridable for tests.
	baseURL string
	// apiKey is sent via the x-goog-api-key header.
	apiKey string
	// model is the embedding model name (e.g. "gemini-embedding-001").
	model string
	// dimensions is the requested output dimensionality (0 = model default).
	dimensions int
	// client is the shared HTTP client with a sensible timeout.
	client *http.Client
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// BaseURL overrides the Generative Language API base (mainly for tests).
	BaseURL string
	// APIKey is the Google API key.
	APIKey string
	// Model is the embedding model name (e.g. "gemini-embedding-001").
	Model string
	// Dimensions is the requested output dimensionality (0 = model default).
	Dimensions int
}

// NewGeminiEmbedder constructs a GeminiEmbedder from the given config.
func NewGeminiEmbedder(cfg *GeminiConfig) *GeminiEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiEmbedder{
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// geminiBatchEmbedRequest is the JSON body sent to batchEmbedContents.
type geminiBatchEmbedRequest struct {
	Requests []geminiEmbedRequest `json:"requests"`
}

// geminiEmbedRequest is one text's embedding request. Model must be repeated
// per request and carry the "models/" resource prefix.
type geminiEmbedRequest struct {
	Model   string `json:"model"`
	Content struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"content"`
	OutputDimensionality int `json:"outputDimensionality,omitempty"`
}

// geminiBatchEmbedResponse is the JSON body returned from batchEmbedContents.
type geminiBatchEmbedResponse struct {
	Embeddings []struct {
		Values []float32 `json:"values"`
	} `json:"embeddings"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Embed converts a batch of texts into their corresponding embeddings.
// The returned slice is parallel to the input slice.
func (e *GeminiEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	body := geminiBatchEmbedRequest{
		Requests: make([]geminiEmbedRequest, len(texts)),
	}
	for i, text := range texts {
		req := geminiEmbedRequest{Model: "models/" + e.model}
		req.Content.Parts = []struct {
			Text string `json:"text"`
		}{{Text: text}}
		if e.dimensions > 0 {
			req.OutputDimensionality = e.dimensions
		}
		body.Requests[i] = req
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:batchEmbedContents", e.baseURL, e.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini embedder: request failed: %w", err)
	}
	defer resp.Body.Close()

	var result geminiBatchEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("gemini embedder: decode response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if result.Error != nil {
			msg = result.Error.Message
		}
		return nil, fmt.Errorf("gemini embedder: %s", msg)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embedder: expected %d embeddings, got %d", len(texts), len(result.Embeddings))
	}

	embeddings := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		embeddings[i] = emb.Values
	}

	return embeddings, nil
}
