package embedder

import (
	"os"
	"strings"
	"testing"
)

// clearEmbedderEnv unsets every env var the factory reads so each test starts
// from a clean slate.
func clearEmbedderEnv(t *testing.T) {
	t.Helper()
	keys := []string{
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"EMBEDDING_API_KEY", "EMBEDDING_ENDPOINT",
		"MODEL_PROVIDER", "OLLAMA_HOST",
		"OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT",
		"GOOGLE_API_KEY",
	}
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// The default embedding backend is gemini, matching the chat provider's
// default.
func TestNewFromEnv_DefaultsToGemini(t *testing.T) {
	clearEmbedderEnv(t)
	t.Setenv("GOOGLE_API_KEY", "test-key")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if _, ok := e.(*GeminiEmbedder); !ok {
		t.Fatalf("expected *GeminiEmbedder, got %T", e)
	}
}

func TestNewFromEnv_Ollama(t *testing.T) {
	clearEmbedderEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "ollama")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if _, ok := e.(*OllamaEmbedder); !ok {
		t.Fatalf("expected *OllamaEmbedder, got %T", e)
	}
}

func TestNewFromEnv_Gemini(t *testing.T) {
	clearEmbedderEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "gemini")
	t.Setenv("GOOGLE_API_KEY", "test-key")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	ge, ok := e.(*GeminiEmbedder)
	if !ok {
		t.Fatalf("expected *GeminiEmbedder, got %T", e)
	}
	if ge.model != defaultGeminiModel {
		t.Errorf("model = %q, want %q", ge.model, defaultGeminiModel)
	}
}

func TestNewFromEnv_GeminiRequiresKey(t *testing.T) {
	clearEmbedderEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "gemini")

	if _, err := NewFromEnv(); err == nil {
		t.Fatal("expected error when gemini has no API key")
	}
}

func TestNewFromEnv_InheritsModelProvider(t *testing.T) {
	clearEmbedderEnv(t)
	t.Setenv("MODEL_PROVIDER", "ollama")

	e, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if _, ok := e.(*OllamaEmbedder); !ok {
		t.Fatalf("expected *OllamaEmbedder via MODEL_PROVIDER inheritance, got %T", e)
	}
}

func TestNewFromEnv_UnknownBackend(t *testing.T) {
	clearEmbedderEnv(t)
	t.Setenv("EMBEDDING_PROVIDER", "cohere")

	_, err := NewFromEnv()
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Fatalf("expected unknown backend error, got %v", err)
	}
}

func TestDefaultDimensions(t *testing.T) {
	clearEmbedderEnv(t)

	tests := []struct {
		backend string
		want    int
	}{
		{"ollama", defaultOllamaDimensions},
		{"gemini", defaultGeminiDimensions},
		{"openai", defaultOpenAIDimensions},
		{"azure", defaultOpenAIDimensions},
	}
	for _, tt := range tests {
		if got := DefaultDimensions(tt.backend); got != tt.want {
			t.Errorf("DefaultDimensions(%q) = %d, want %d", tt.backend, got, tt.want)
		}
	}
}

func TestDefaultDimensions_EnvOverride(t *testing.T) {
	clearEmbedderEnv(t)
	t.Setenv("EMBEDDING_DIMENSIONS", "512")

	if got := DefaultDimensions("gemini"); got != 512 {
		t.Errorf("DefaultDimensions with override = %d, want 512", got)
	}
}
