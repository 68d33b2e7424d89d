package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tfpilot/internal/chat"
	"tfpilot/internal/client"
	"tfpilot/internal/logging"
	"tfpilot/internal/pubsub"
	"tfpilot/internal/tools"
)

// Status is the conversation state machine position.
type Status string

const (
	// StatusIdle means no turn is in flight and nothing is pending.
	StatusIdle Status = "idle"
	// StatusStreaming means a model turn is in flight.
	StatusStreaming Status = "streaming"
	// StatusAwaitingApproval means the turn is paused on the approval queue.
	StatusAwaitingApproval Status = "awaiting_approval"
	// StatusError means the last turn failed; only Reset recovers.
	StatusError Status = "error"
)

// ErrBusy is returned by Send when the conversation is not idle.
var ErrBusy = errors.New("conversation busy")

// rejectionMessage is the result content synthesized when the user rejects a
// pending tool call. The model sees it as an ordinary tool failure.
const rejectionMessage = "User rejected this action"

// Snapshot is the immutable view published after every state change. It is
// safe to retain: messages are deep copies. Pending is the approval queue
// head only.
type Snapshot struct {
	ID       uuid.UUID        `json:"id"`
	Status   Status           `json:"status"`
	Messages []chat.Message   `json:"messages"`
	Pending  *PendingApproval `json:"pending_approval,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// Conversation is the orchestrator: it owns the message history, the
// approval queue, and the stream driver, and exposes the five user
// operations. All state is guarded by a single mutex; turn callbacks and
// user operations serialize through it.
type Conversation struct {
	id       uuid.UUID
	registry *tools.Registry
	broker   *pubsub.Broker
	driver   *streamDriver

	mu       sync.Mutex
	gen      uint64
	status   Status
	history  []chat.Message
	turnTail []chat.Message // flushed steps of the in-flight turn, display only
	draft    stepDraft
	gate     approvalGate
	lastErr  error
}

// NewConversation creates an idle conversation. broker may be nil when no
// subscribers are wanted.
func NewConversation(runner TurnStarter, registry *tools.Registry, broker *pubsub.Broker) *Conversation {
	c := &Conversation{
		id:       uuid.New(),
		registry: registry,
		broker:   broker,
		driver:   newStreamDriver(runner),
		status:   StatusIdle,
	}

	c.mu.Lock()
	c.publishLocked(pubsub.ConversationEventKindCreated)
	c.mu.Unlock()
	return c
}

// ID returns the conversation's identity, used for its event channel.
func (c *Conversation) ID() uuid.UUID {
	return c.id
}

// Snapshot returns the current published view.
func (c *Conversation) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Send appends a user message and starts a turn. It is accepted only while
// idle; overlapping sends are rejected with ErrBusy.
func (c *Conversation) Send(text string) error {
	c.mu.Lock()
	if c.status != StatusIdle {
		defer c.mu.Unlock()
		return fmt.Errorf("%w: status %s", ErrBusy, c.status)
	}

	c.history = append(c.history, chat.UserMessage(text))
	c.status = StatusStreaming
	c.publishLocked(pubsub.ConversationEventKindMessageAppended)
	c.publishLocked(pubsub.ConversationEventKindStatusChange)

	gen := c.bumpGenLocked()
	history := chat.CloneMessages(c.history)
	c.mu.Unlock()

	c.startTurn(gen, history)
	return nil
}

// Approve executes the approval queue head. No-op when nothing is pending.
// When the queue drains, the model turn resumes with the updated history.
func (c *Conversation) Approve() {
	c.resolveHead(true)
}

// Reject resolves the approval queue head with a synthesized rejection
// result, without invoking the tool. No-op when nothing is pending.
func (c *Conversation) Reject() {
	c.resolveHead(false)
}

// Stop cancels the in-flight turn and returns to idle, discarding partial
// output. Valid only while streaming; a no-op otherwise.
func (c *Conversation) Stop() {
	c.mu.Lock()
	if c.status != StatusStreaming {
		c.mu.Unlock()
		return
	}

	c.gen++ // invalidate in-flight turn callbacks
	c.status = StatusIdle
	c.draft = stepDraft{}
	c.turnTail = nil
	c.publishLocked(pubsub.ConversationEventKindStatusChange)
	c.mu.Unlock()

	c.driver.stop()
}

// Reset discards all conversation state from any status: cancels the
// in-flight turn, clears history and the approval queue, and returns to
// idle.
func (c *Conversation) Reset() {
	c.mu.Lock()
	c.gen++
	c.status = StatusIdle
	c.history = nil
	c.turnTail = nil
	c.draft = stepDraft{}
	c.gate.clear()
	c.lastErr = nil
	c.publishLocked(pubsub.ConversationEventKindStatusChange)
	c.mu.Unlock()

	c.driver.stop()
}

// Close stops the in-flight turn without publishing. For shutdown.
func (c *Conversation) Close() {
	c.mu.Lock()
	c.gen++
	c.mu.Unlock()
	c.driver.stop()
}

// startTurn launches a model turn for the given generation. The generation
// is re-checked atomically with the driver registration, so a Stop or Reset
// racing in can never leave a superseded stream running behind an idle
// status: either it lands before registration and the start aborts, or the
// registered turn is the one its driver.stop cancels.
func (c *Conversation) startTurn(gen uint64, history []chat.Message) {
	c.driver.start(history,
		func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return gen == c.gen
		},
		func(ev client.TurnEvent) { c.applyEvent(gen, ev) },
		func(steps []chat.Step, err error) { c.finishTurn(gen, steps, err) },
	)
}

// applyEvent folds one stream event into the display accumulator and
// republishes. Events from superseded turns are dropped.
func (c *Conversation) applyEvent(gen uint64, ev client.TurnEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	switch ev.Kind {
	case client.EventTextDelta:
		c.draft.text += ev.Text

	case client.EventToolCall:
		if ev.Call != nil {
			c.draft.calls = append(c.draft.calls, chat.ToolCallRecord{Call: *ev.Call})
		}

	case client.EventToolResult:
		if ev.Result != nil {
			for i := range c.draft.calls {
				if c.draft.calls[i].Call.ID == ev.Result.CallID {
					c.draft.calls[i].Resolve(ev.Result.Result)
				}
			}
			c.draft.results = append(c.draft.results, *ev.Result)
		}

	case client.EventStepEnd:
		c.turnTail = append(c.turnTail, c.draft.messages()...)
		c.draft = stepDraft{}
	}

	c.publishLocked(pubsub.ConversationEventKindMessageAppended)
}

// finishTurn reconciles a completed turn: on success the step summary is
// rebuilt into history and any unresolved approval-required calls are
// queued; on cancellation partial output is discarded; on transport failure
// the partial output stays visible but is never resubmitted.
func (c *Conversation) finishTurn(gen uint64, steps []chat.Step, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			c.draft = stepDraft{}
			c.turnTail = nil
			c.status = StatusIdle
			c.publishLocked(pubsub.ConversationEventKindStatusChange)
			return
		}

		c.turnTail = append(c.turnTail, c.draft.messages()...)
		c.draft = stepDraft{}
		c.status = StatusError
		c.lastErr = err
		logging.Error("turn failed", "conversation", c.id, "error", err)
		c.publishLocked(pubsub.ConversationEventKindStatusChange)
		return
	}

	c.draft = stepDraft{}
	c.turnTail = nil
	c.history = append(c.history, RebuildMessages(steps)...)
	c.publishLocked(pubsub.ConversationEventKindMessageAppended)

	pending := PendingApprovals(steps, c.registry)
	if len(pending) > 0 {
		c.gate.enqueue(pending...)
		c.status = StatusAwaitingApproval
		c.publishLocked(pubsub.ConversationEventKindApprovalPending)
		return
	}

	c.status = StatusIdle
	c.publishLocked(pubsub.ConversationEventKindStatusChange)
}

// resolveHead executes or rejects the approval queue head, appends the tool
// result to history, and resumes the turn once the queue drains.
func (c *Conversation) resolveHead(approve bool) {
	c.mu.Lock()
	if c.status != StatusAwaitingApproval {
		c.mu.Unlock()
		return
	}
	head, ok := c.gate.head()
	if !ok {
		c.mu.Unlock()
		return
	}

	var result map[string]any
	if approve {
		result = c.executeApproved(head)
	} else {
		result = tools.NewErrorResult(rejectionMessage).ToMap()
	}

	c.resolveRecordLocked(head.CallID, result)
	c.history = append(c.history, chat.Message{
		Role: chat.RoleTool,
		Results: []chat.ToolResultEntry{{
			CallID: head.CallID,
			Name:   head.Tool,
			Result: result,
		}},
	})
	c.gate.pop()
	c.publishLocked(pubsub.ConversationEventKindMessageAppended)

	if !c.gate.empty() {
		// Next queued call becomes the displayed pending item.
		c.publishLocked(pubsub.ConversationEventKindApprovalPending)
		c.mu.Unlock()
		return
	}

	c.status = StatusStreaming
	c.publishLocked(pubsub.ConversationEventKindStatusChange)
	gen := c.bumpGenLocked()
	history := chat.CloneMessages(c.history)
	c.mu.Unlock()

	c.startTurn(gen, history)
}

// executeApproved re-validates and runs the tool for an approved call.
// Failures come back as error-shaped results, never as panics or Go errors.
func (c *Conversation) executeApproved(head PendingApproval) map[string]any {
	tool, ok := c.registry.Get(head.Tool)
	if !ok {
		return tools.NewErrorResult("unknown tool: " + head.Tool).ToMap()
	}
	if err := tool.Validate(head.Args); err != nil {
		return tools.NewErrorResult("invalid arguments: " + err.Error()).ToMap()
	}

	logging.Info("executing approved tool", "tool", head.Tool, "call_id", head.CallID)
	return tool.Execute(context.Background(), head.Args).ToMap()
}

// resolveRecordLocked marks the matching tool-call record in history
// resolved with the given result.
func (c *Conversation) resolveRecordLocked(callID string, result map[string]any) {
	for i := len(c.history) - 1; i >= 0; i-- {
		msg := &c.history[i]
		for j := range msg.Calls {
			if msg.Calls[j].Call.ID == callID {
				msg.Calls[j].Resolve(result)
				return
			}
		}
	}
}

func (c *Conversation) bumpGenLocked() uint64 {
	c.gen++
	return c.gen
}

func (c *Conversation) snapshotLocked() Snapshot {
	msgs := chat.CloneMessages(c.history)
	msgs = append(msgs, chat.CloneMessages(c.turnTail)...)
	msgs = append(msgs, c.draft.messages()...)

	snap := Snapshot{
		ID:       c.id,
		Status:   c.status,
		Messages: msgs,
	}
	if head, ok := c.gate.head(); ok {
		h := head
		snap.Pending = &h
	}
	if c.lastErr != nil {
		snap.Error = c.lastErr.Error()
	}
	return snap
}

// publishLocked fans the current snapshot out on the conversation's event
// channel. Delivery is asynchronous, so publishing under the mutex is safe.
func (c *Conversation) publishLocked(kind pubsub.ConversationEventKind) {
	if c.broker == nil {
		return
	}

	payload, err := json.Marshal(c.snapshotLocked())
	if err != nil {
		logging.Warn("marshal snapshot", "error", err)
		return
	}
	data, err := json.Marshal(pubsub.ConversationEvent{Kind: kind, Payload: payload})
	if err != nil {
		logging.Warn("marshal conversation event", "error", err)
		return
	}
	if err := c.broker.Publish(pubsub.ConversationEventChannel(c.id), data); err != nil {
		logging.Warn("publish conversation event", "error", err)
	}
}
