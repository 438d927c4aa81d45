// Package orchestrator runs the fixed chat task pipeline: a start node
// validates the request, a generate node calls the chat model, and an end
// node seals the result. Nodes communicate through a shared [State] merged
// with per-field reducer semantics, so each node only declares what it
// changed.
package orchestrator

import (
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docai-go/internal/roles"
)

// State is the task pipeline state threaded through every node.
type State struct {
	// Messages is the conversation history, oldest first.
	Messages []*schema.Message

	// Context is the retrieved document context injected into the system
	// message.
	Context string

	// Role is the behavioral role for the generation step.
	Role roles.ID

	// Response is the model's generated reply.
	Response string

	// Err records a node failure. Once set it short-circuits the pipeline
	// and is surfaced exactly once at the Run boundary.
	Err string
}

// merge folds a node's delta into the state. Messages append in order; every
// other field keeps its current value unless the delta carries a non-empty
// one (last-write-wins per field).
func (s *State) merge(delta State) {
	s.Messages = append(s.Messages, delta.Messages...)
	if delta.Context != "" {
		s.Context = delta.Context
	}
	if delta.Role != "" {
		s.Role = delta.Role
	}
	if delta.Response != "" {
		s.Response = delta.Response
	}
	if delta.Err != "" {
		s.Err = delta.Err
	}
}

// clone returns a deep-enough copy of the state for handing to a node: the
// message slice is copied so appends in deltas never alias the caller's
// backing array.
func (s State) clone() State {
	msgs := make([]*schema.Message, len(s.Messages))
	copy(msgs, s.Messages)
	s.Messages = msgs
	return s
}
