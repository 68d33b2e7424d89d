package client

import (
	"context"

	"github.com/google/uuid"

	"tfpilot/internal/chat"
	"tfpilot/internal/logging"
	"tfpilot/internal/tools"
)

// TurnEventKind identifies the kind of a turn event.
type TurnEventKind string

const (
	// EventTextDelta carries an incremental span of assistant text.
	EventTextDelta TurnEventKind = "text_delta"
	// EventToolCall announces a tool call requested by the model.
	EventToolCall TurnEventKind = "tool_call"
	// EventToolResult carries the result of an auto-executed tool.
	EventToolResult TurnEventKind = "tool_result"
	// EventStepEnd marks the boundary of one model step.
	EventStepEnd TurnEventKind = "step_end"
)

// TurnEvent is one incremental event emitted while a turn is in flight.
// Exactly one of Text, Call, or Result is set, per Kind; EventStepEnd
// carries nothing.
type TurnEvent struct {
	Kind   TurnEventKind
	Text   string
	Call   *chat.ToolCall
	Result *chat.ToolResultEntry
}

// TurnStream is the duplex handle for a running turn: consume Events until
// closed, then call Wait for the authoritative step summary. The event
// stream is advisory; callers must rebuild state from the steps Wait
// returns, never from the events alone.
type TurnStream struct {
	Events <-chan TurnEvent

	done  chan struct{}
	steps []chat.Step
	err   error
}

// Wait blocks until the turn finishes and returns the per-step summary.
// The steps returned are valid even when err is non-nil: they cover
// everything completed before the failure or cancellation.
func (s *TurnStream) Wait() ([]chat.Step, error) {
	<-s.done
	return s.steps, s.err
}

// StartTurnStream runs fn on its own goroutine and exposes it as a
// TurnStream: events passed to emit appear on Events, and fn's return
// values become the Wait result. emit blocks when the consumer lags, so fn
// must stop emitting once the consumer is gone; consumers must drain Events
// before Wait.
func StartTurnStream(fn func(emit func(TurnEvent)) ([]chat.Step, error)) *TurnStream {
	events := make(chan TurnEvent, 16)
	s := &TurnStream{
		Events: events,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer close(events)
		s.steps, s.err = fn(func(ev TurnEvent) { events <- ev })
	}()

	return s
}

// TurnRunner drives multi-step turns against a model backend: it streams
// each model response, executes auto-approved tools inline, and stops when
// the model yields no calls, a call needs approval, or the step budget is
// exhausted.
type TurnRunner struct {
	client   Client
	registry *tools.Registry
	maxSteps int
}

// NewTurnRunner creates a turn runner. maxSteps bounds the number of model
// rounds in one turn; values below 1 are clamped to 1.
func NewTurnRunner(c Client, registry *tools.Registry, maxSteps int) *TurnRunner {
	if maxSteps < 1 {
		maxSteps = 1
	}
	return &TurnRunner{
		client:   c,
		registry: registry,
		maxSteps: maxSteps,
	}
}

// Run starts a turn over the given history and returns immediately with a
// stream handle. The turn runs until the model finishes, a tool call needs
// user approval, the step budget runs out, ctx is cancelled, or the backend
// fails. History is read once at the start; later appends are not observed.
func (r *TurnRunner) Run(ctx context.Context, history []chat.Message) *TurnStream {
	return StartTurnStream(func(send func(TurnEvent)) ([]chat.Step, error) {
		return r.run(ctx, history, send)
	})
}

func (r *TurnRunner) run(ctx context.Context, history []chat.Message, send func(TurnEvent)) ([]chat.Step, error) {
	contents := chat.ToGenaiContents(history)
	decls := r.registry.Declarations()

	// The consumer drains Events until close, so send cannot block forever;
	// the ctx check keeps cancellation latency within one event.
	emit := func(ev TurnEvent) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		send(ev)
		return nil
	}

	var steps []chat.Step
	for stepIdx := 0; stepIdx < r.maxSteps; stepIdx++ {
		resp, err := r.client.StreamGenerate(ctx, contents, decls)
		if err != nil {
			return steps, err
		}

		step, err := r.consumeStream(ctx, resp, emit)
		if err != nil {
			if len(step.Text) > 0 || len(step.Calls) > 0 {
				steps = append(steps, step)
			}
			return steps, err
		}

		// Execute what we can; anything needing approval ends the turn
		// with the call left unresolved.
		needsApproval := false
		for _, call := range step.Calls {
			tool, ok := r.registry.Get(call.Name)
			if !ok {
				entry := chat.ToolResultEntry{
					CallID: call.ID,
					Name:   call.Name,
					Result: tools.NewErrorResult("unknown tool: " + call.Name).ToMap(),
				}
				step.Results = append(step.Results, entry)
				if err := emit(TurnEvent{Kind: EventToolResult, Result: &entry}); err != nil {
					steps = append(steps, step)
					return steps, err
				}
				continue
			}
			if tool.RequiresApproval() {
				needsApproval = true
				continue
			}

			entry := chat.ToolResultEntry{
				CallID: call.ID,
				Name:   call.Name,
				Result: executeTool(ctx, tool, call).ToMap(),
			}
			step.Results = append(step.Results, entry)
			if err := emit(TurnEvent{Kind: EventToolResult, Result: &entry}); err != nil {
				steps = append(steps, step)
				return steps, err
			}
		}

		steps = append(steps, step)
		if err := emit(TurnEvent{Kind: EventStepEnd}); err != nil {
			return steps, err
		}

		if len(step.Calls) == 0 {
			return steps, nil
		}
		if needsApproval {
			logging.Debug("turn paused for approval", "step", stepIdx, "calls", len(step.Calls))
			return steps, nil
		}

		contents = append(contents, chat.ToGenaiContents(step.Messages())...)
	}

	logging.Warn("turn step budget exhausted", "max_steps", r.maxSteps)
	return steps, nil
}

// consumeStream drains one model response into a step, emitting text deltas
// and tool-call announcements as they arrive.
func (r *TurnRunner) consumeStream(ctx context.Context, resp *StreamingResponse, emit func(TurnEvent) error) (chat.Step, error) {
	var step chat.Step

	for chunk := range resp.Chunks {
		if chunk.Error != nil {
			return step, chunk.Error
		}

		if chunk.Text != "" {
			step.Text += chunk.Text
			if err := emit(TurnEvent{Kind: EventTextDelta, Text: chunk.Text}); err != nil {
				return step, err
			}
		}

		for _, fc := range chunk.FunctionCalls {
			if fc == nil {
				continue
			}
			call := chat.ToolCall{
				ID:   fc.ID,
				Name: fc.Name,
				Args: fc.Args,
			}
			// Some backends omit call IDs; assign one here so the call
			// has a stable identity for the rest of its life.
			if call.ID == "" {
				call.ID = uuid.NewString()
			}
			step.Calls = append(step.Calls, call)
			if err := emit(TurnEvent{Kind: EventToolCall, Call: &call}); err != nil {
				return step, err
			}
		}
	}

	select {
	case <-ctx.Done():
		return step, ctx.Err()
	default:
	}
	return step, nil
}

// executeTool validates and runs a tool, reporting failures in the result.
func executeTool(ctx context.Context, tool tools.Tool, call chat.ToolCall) tools.ToolResult {
	if err := tool.Validate(call.Args); err != nil {
		return tools.NewErrorResult("invalid arguments: " + err.Error())
	}
	logging.Debug("executing tool", "tool", call.Name, "call_id", call.ID)
	return tool.Execute(ctx, call.Args)
}
