package budget

import (
	"strings"
	"testing"

	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docai-go/internal/rag"
)

func TestEstimate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"ab", 1}, // short non-empty rounds up to 1
		{"abcd", 1},
		{strings.Repeat("a", 400), 100},
	}
	for _, tt := range tests {
		if got := Estimate(tt.in); got != tt.want {
			t.Errorf("Estimate(%d chars) = %d, want %d", len(tt.in), got, tt.want)
		}
	}
}

func TestTrimHistory_DropsOldestFirst(t *testing.T) {
	t.Parallel()

	fixed := []*schema.Message{schema.SystemMessage(strings.Repeat("s", 400))}
	history := []*schema.Message{
		schema.UserMessage(strings.Repeat("1", 400)),
		schema.AssistantMessage(strings.Repeat("2", 400), nil),
		schema.UserMessage(strings.Repeat("3", 400)),
	}

	// Budget fits fixed plus roughly two history messages.
	trimmed := TrimHistory(fixed, history, 330)
	if len(trimmed) != 2 {
		t.Fatalf("got %d history messages, want 2", len(trimmed))
	}
	if trimmed[0].Content != history[1].Content {
		t.Error("oldest message was not the one dropped")
	}
}

func TestTrimHistory_FitsUntrimmed(t *testing.T) {
	t.Parallel()

	history := []*schema.Message{schema.UserMessage("hello")}
	trimmed := TrimHistory(nil, history, 1000)
	if len(trimmed) != 1 {
		t.Fatalf("history should be untouched, got %d messages", len(trimmed))
	}
}

func TestTrimChunks(t *testing.T) {
	t.Parallel()

	chunks := []rag.Chunk{
		{ID: "c1", Content: strings.Repeat("a", 4000), Score: 0.9},
		{ID: "c2", Content: strings.Repeat("b", 4000), Score: 0.8},
		{ID: "c3", Content: strings.Repeat("c", 4000), Score: 0.7},
	}

	trimmed := TrimChunks(chunks, 9000)
	if len(trimmed) != 2 {
		t.Fatalf("got %d chunks, want 2", len(trimmed))
	}
	if trimmed[0].ID != "c1" || trimmed[1].ID != "c2" {
		t.Error("trimming removed the wrong chunks — least relevant should go first")
	}
}

func TestTrimChunks_DefaultCap(t *testing.T) {
	t.Parallel()

	chunks := []rag.Chunk{
		{ID: "big", Content: strings.Repeat("a", DefaultMaxContextChars+1)},
	}
	if got := TrimChunks(chunks, 0); len(got) != 0 {
		t.Errorf("oversized single chunk should be dropped at the default cap, got %d chunks", len(got))
	}

	small := []rag.Chunk{{ID: "ok", Content: "fits"}}
	if got := TrimChunks(small, 0); len(got) != 1 {
		t.Errorf("small chunk should survive the default cap, got %d chunks", len(got))
	}
}
