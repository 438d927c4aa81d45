package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/54b3r/docai-go/internal/logging"
	"github.com/54b3r/docai-go/internal/roles"
)

// TaskChat is the only supported task type.
const TaskChat = "chat"

// UnsupportedTaskResponse is returned verbatim for any task other than chat.
// Unknown tasks are a routing outcome, not a failure.
const UnsupportedTaskResponse = "Task not supported. Only 'chat' is available."

// Request describes one task invocation.
type Request struct {
	// Task selects the pipeline. Only [TaskChat] is routed; anything else
	// yields [UnsupportedTaskResponse].
	Task string

	// Messages is the conversation so far, oldest first, ending with the
	// current user message.
	Messages []*schema.Message

	// Context is the retrieved document context for this turn. May be empty.
	Context string

	// Role is the behavioral role. Empty defaults to assistant; unknown
	// roles fail the task.
	Role roles.ID
}

// Orchestrator executes the chat task pipeline against a chat model.
type Orchestrator struct {
	// chatModel is the LLM backend constructed by the provider factory.
	chatModel model.BaseChatModel
}

// New constructs an Orchestrator for the given chat model.
func New(chatModel model.BaseChatModel) (*Orchestrator, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("orchestrator: chat model must not be nil")
	}
	return &Orchestrator{chatModel: chatModel}, nil
}

// node is one step of the pipeline. It receives a copy of the current state
// and returns a delta to merge, or an error which is recorded in the state.
type node struct {
	name string
	run  func(ctx context.Context, s State) (State, error)
}

// Run executes the pipeline for one request: start → generate → end.
//
// A node failure is written into State.Err, stops the pipeline, and is
// surfaced exactly once as Run's error — callers never see a failure both in
// the state and as a separate panic path. The returned State always reflects
// everything that happened before the failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (State, error) {
	log := logging.FromContext(ctx)

	if req.Task != TaskChat {
		log.Info("orchestrator: unsupported task requested", slog.String("task", req.Task))
		return State{Response: UnsupportedTaskResponse}, nil
	}

	state := State{}
	pipeline := []node{
		{name: "start", run: o.start(req)},
		{name: "generate", run: o.generate},
		{name: "end", run: o.end},
	}

	for _, n := range pipeline {
		delta, err := n.run(ctx, state.clone())
		if err != nil {
			state.merge(State{Err: fmt.Sprintf("%s: %v", n.name, err)})
			break
		}
		state.merge(delta)
		if state.Err != "" {
			break
		}
	}

	if state.Err != "" {
		return state, fmt.Errorf("orchestrator: chat task failed: %s", state.Err)
	}
	return state, nil
}

// start seeds the state from the request and validates the role. The closed
// role set is enforced here so the generate node never sees an invalid role.
func (o *Orchestrator) start(req Request) func(ctx context.Context, s State) (State, error) {
	return func(_ context.Context, _ State) (State, error) {
		role := req.Role
		if role == "" {
			role = roles.Assistant
		}
		if !roles.Valid(role) {
			return State{}, fmt.Errorf("invalid role %q — valid roles: %v", role, roles.All())
		}
		if len(req.Messages) == 0 {
			return State{}, fmt.Errorf("conversation must contain at least one message")
		}

		return State{
			Messages: req.Messages,
			Context:  req.Context,
			Role:     role,
		}, nil
	}
}

// generate builds the system message from the role instruction and retrieved
// context, calls the chat model, and appends the reply to the conversation.
func (o *Orchestrator) generate(ctx context.Context, s State) (State, error) {
	instruction, err := roles.Resolve(s.Role)
	if err != nil {
		return State{}, err
	}

	system := fmt.Sprintf("%s\nContext: %s", instruction, s.Context)
	msgs := make([]*schema.Message, 0, len(s.Messages)+1)
	msgs = append(msgs, schema.SystemMessage(system))
	msgs = append(msgs, s.Messages...)

	reply, err := o.chatModel.Generate(ctx, msgs)
	if err != nil {
		return State{}, fmt.Errorf("model generate: %w", err)
	}
	if reply == nil || reply.Content == "" {
		return State{}, fmt.Errorf("model returned an empty reply")
	}

	return State{
		Messages: []*schema.Message{reply},
		Response: reply.Content,
	}, nil
}

// end seals the pipeline: a completed run must carry either a response or a
// recorded error.
func (o *Orchestrator) end(_ context.Context, s State) (State, error) {
	if s.Response == "" && s.Err == "" {
		return State{}, fmt.Errorf("pipeline finished without a response")
	}
	return State{}, nil
}
