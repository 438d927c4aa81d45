package roles

import (
	"errors"
	"strings"
	"testing"
)

func TestResolve_KnownRoles(t *testing.T) {
	t.Parallel()

	tests := []struct {
		role ID
		want string
	}{
		{Assistant, "helpful AI assistant"},
		{Analyst, "data analyst"},
		{Creative, "creative AI"},
		{Technical, "technical expert"},
		{Educator, "educator"},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			t.Parallel()
			got, err := Resolve(tt.role)
			if err != nil {
				t.Fatalf("Resolve(%q) returned error: %v", tt.role, err)
			}
			if !strings.Contains(got, tt.want) {
				t.Errorf("Resolve(%q) = %q, want substring %q", tt.role, got, tt.want)
			}
		})
	}
}

// TestResolve_Deterministic verifies the resolver is pure: repeated calls for
// the same role return the identical instruction string.
func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	first, err := Resolve(Analyst)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	for i := 0; i < 10; i++ {
		got, err := Resolve(Analyst)
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i, err)
		}
		if got != first {
			t.Fatalf("Resolve #%d = %q, want %q", i, got, first)
		}
	}
}

// TestResolve_UnknownRole verifies unknown roles are rejected rather than
// silently mapped to a default persona.
func TestResolve_UnknownRole(t *testing.T) {
	t.Parallel()

	for _, role := range []ID{"", "pirate", "ASSISTANT", "assistant "} {
		got, err := Resolve(role)
		if !errors.Is(err, ErrUnknownRole) {
			t.Errorf("Resolve(%q): expected ErrUnknownRole, got %v", role, err)
		}
		if got != "" {
			t.Errorf("Resolve(%q) returned instruction %q for invalid role", role, got)
		}
	}
}

func TestValid(t *testing.T) {
	t.Parallel()

	if !Valid(Educator) {
		t.Error("Valid(educator) = false, want true")
	}
	if Valid("summarizer") {
		t.Error("Valid(summarizer) = true, want false")
	}
}

func TestAll_SortedAndComplete(t *testing.T) {
	t.Parallel()

	all := All()
	if len(all) != 5 {
		t.Fatalf("All() returned %d roles, want 5", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Errorf("All() not sorted: %q before %q", all[i-1], all[i])
		}
	}
}
