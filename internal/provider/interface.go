// Package provider defines the chat model configuration and factory for
// selecting and constructing LLM backend implementations at runtime.
// Supported backends: Ollama, OpenAI, Azure OpenAI, AWS Bedrock, Google Gemini.
package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Backend enumerates the supported LLM inference providers.
type Backend string

const (
	// BackendOllama selects a locally running Ollama instance.
	BackendOllama Backend = "ollama"
	// BackendOpenAI selects the OpenAI API.
	BackendOpenAI Backend = "openai"
	// BackendAzure selects Azure OpenAI Service.
	BackendAzure Backend = "azure"
	// BackendBedrock selects AWS Bedrock.
	BackendBedrock Backend = "bedrock"
	// BackendGemini selects Google Gemini via AI Studio.
	BackendGemini Backend = "gemini"
)

// Config holds all provider-level configuration resolved from environment
// variables or explicit caller-supplied values.
type Config struct {
	// Backend identifies which inference provider to use.
	Backend Backend

	// Model is the model name or deployment ID to use (e.g. "gemini-2.5-flash").
	Model string

	// BaseURL overrides the default API endpoint (required for Ollama and Azure).
	BaseURL string

	// APIKey is the authentication credential for the selected provider.
	// For Bedrock this field is unused; AWS credentials are resolved via the SDK chain.
	APIKey string

	// AzureDeployment is the Azure OpenAI deployment name (Azure only).
	AzureDeployment string

	// AzureAPIVersion is the Azure OpenAI REST API version (Azure only).
	AzureAPIVersion string

	// AWSRegion is the AWS region for Bedrock (Bedrock only).
	AWSRegion string

	// MaxTokens caps the number of tokens the model may generate per response.
	MaxTokens int

	// Temperature controls response randomness (0.0–1.0).
	Temperature float32
}

// Validate checks the config for backend-specific required fields so callers
// get a clear error at startup rather than on the first request.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendOllama:
		// No credentials required — Ollama runs locally.
	case BackendOpenAI:
		if c.APIKey == "" {
			return fmt.Errorf("provider: OPENAI_API_KEY is required for openai backend")
		}
	case BackendAzure:
		if c.APIKey == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_API_KEY is required for azure backend")
		}
		if c.BaseURL == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_ENDPOINT is required for azure backend")
		}
		if c.AzureDeployment == "" {
			return fmt.Errorf("provider: AZURE_OPENAI_DEPLOYMENT is required for azure backend")
		}
	case BackendBedrock:
		if c.Model == "" {
			return fmt.Errorf("provider: BEDROCK_MODEL_ID is required for bedrock backend")
		}
	case BackendGemini:
		if c.APIKey == "" {
			return fmt.Errorf("provider: GOOGLE_API_KEY is required for gemini backend")
		}
	default:
		return fmt.Errorf("provider: unknown backend %q — valid values: ollama, openai, azure, bedrock, gemini", c.Backend)
	}

	if c.Model == "" && c.Backend != BackendAzure {
		return fmt.Errorf("provider: model name must not be empty for backend %q", c.Backend)
	}
	return nil
}

// HealthCheckConfig is a zero-cost backend reachability probe, used by the
// readiness endpoint instead of burning tokens on Generate calls.
type HealthCheckConfig interface {
	// HealthCheck returns nil when the backend is reachable.
	HealthCheck(ctx context.Context) error
}

// httpHealthCheck probes a backend by issuing a GET against a cheap endpoint.
type httpHealthCheck struct {
	url     string
	headers map[string]string
	client  *http.Client
}

// HealthCheck issues the probe request and treats any 2xx–4xx (other than 5xx
// and transport errors) as reachable: a 401 still proves the service is up.
func (h *httpHealthCheck) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.url, nil)
	if err != nil {
		return fmt.Errorf("provider: create health check request: %w", err)
	}
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("provider: health check request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("provider: backend unhealthy: HTTP %d", resp.StatusCode)
	}
	return nil
}

// HealthCheck constructs a zero-cost health check for the configured backend,
// or nil when the backend has no cheap probe endpoint (bedrock).
func (c *Config) HealthCheck() HealthCheckConfig {
	client := &http.Client{Timeout: 5 * time.Second}

	switch c.Backend {
	case BackendOllama:
		baseURL := c.BaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434"
		}
		return &httpHealthCheck{url: baseURL + "/api/tags", client: client}
	case BackendOpenAI:
		return &httpHealthCheck{
			url:     "https://api.openai.com/v1/models",
			headers: map[string]string{"Authorization": "Bearer " + c.APIKey},
			client:  client,
		}
	case BackendAzure:
		return &httpHealthCheck{
			url:     c.BaseURL + "/openai/models?api-version=" + c.AzureAPIVersion,
			headers: map[string]string{"api-key": c.APIKey},
			client:  client,
		}
	case BackendGemini:
		return &httpHealthCheck{
			url:     "https://generativelanguage.googleapis.com/v1beta/models",
			headers: map[string]string{"x-goog-api-key": c.APIKey},
			client:  client,
		}
	default:
		return nil
	}
}
