// Package roles maps behavioral role identifiers to the fixed system
// instruction injected ahead of every generation call. The role set is
// closed: unrecognized roles are rejected with [ErrUnknownRole] rather than
// silently defaulted, so role selection stays auditable end to end.
package roles

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ID identifies a behavioral persona for the generation step.
type ID string

const (
	// Assistant is the general-purpose helpful persona.
	Assistant ID = "assistant"
	// Analyst provides analytical, data-driven responses.
	Analyst ID = "analyst"
	// Creative generates innovative ideas and imaginative content.
	Creative ID = "creative"
	// Technical provides detailed technical explanations and code examples.
	Technical ID = "technical"
	// Educator explains concepts with examples and structured learning.
	Educator ID = "educator"
)

// ErrUnknownRole is returned by [Resolve] for any role outside the fixed set.
var ErrUnknownRole = errors.New("roles: unknown role")

// prompts holds the fixed system instruction for each role. The map is never
// mutated after package init, so concurrent reads are safe.
var prompts = map[ID]string{
	Assistant: "You are a helpful AI assistant. Provide clear, accurate, and friendly responses.",
	Analyst:   "You are a data analyst. Provide analytical insights, identify patterns, and offer data-driven recommendations.",
	Creative:  "You are a creative AI. Generate innovative ideas, creative content, and imaginative solutions.",
	Technical: "You are a technical expert. Provide detailed technical explanations, code examples, and best practices.",
	Educator:  "You are an educator. Explain concepts clearly, use examples, and ensure understanding through structured learning.",
}

// Resolve returns the system instruction for the given role. Same role always
// yields the same instruction. Unrecognized roles fail with [ErrUnknownRole]
// wrapping the offending value and the list of valid roles.
func Resolve(role ID) (string, error) {
	prompt, ok := prompts[role]
	if !ok {
		return "", fmt.Errorf("%w: %q — valid roles: %s", ErrUnknownRole, role, strings.Join(All(), ", "))
	}
	return prompt, nil
}

// Valid reports whether role is a member of the fixed role set.
func Valid(role ID) bool {
	_, ok := prompts[role]
	return ok
}

// All returns the sorted list of valid role identifiers, for error messages
// and API documentation.
func All() []string {
	out := make([]string, 0, len(prompts))
	for id := range prompts {
		out = append(out, string(id))
	}
	sort.Strings(out)
	return out
}
