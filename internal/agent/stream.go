package agent

import (
	"context"
	"sync"

	"tfpilot/internal/chat"
	"tfpilot/internal/client"
	"tfpilot/internal/logging"
)

// TurnStarter starts one model turn over a history snapshot. It is the
// conversation's only dependency on the model backend; *client.TurnRunner
// satisfies it.
type TurnStarter interface {
	Run(ctx context.Context, history []chat.Message) *client.TurnStream
}

// streamDriver enforces the single-flight rule: at most one turn is in
// flight at a time. Starting a new turn cancels the previous one and waits
// for its consumer goroutine to wind down before launching.
type streamDriver struct {
	runner TurnStarter

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newStreamDriver(runner TurnStarter) *streamDriver {
	return &streamDriver{runner: runner}
}

// start launches a turn over history. begin is evaluated under the driver
// mutex immediately before the turn is registered: returning false aborts
// the launch, so a caller can atomically drop a start that a concurrent
// stop or reset has superseded. onEvent fires for every stream event and
// onDone exactly once with the final step summary. Callbacks run on the
// driver's consumer goroutine; callers must not invoke start or stop while
// holding a lock the callbacks also take.
func (d *streamDriver) start(history []chat.Message, begin func() bool, onEvent func(client.TurnEvent), onDone func([]chat.Step, error)) bool {
	d.stop()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	d.mu.Lock()
	if begin != nil && !begin() {
		d.mu.Unlock()
		cancel()
		return false
	}
	d.cancel = cancel
	d.done = done
	d.mu.Unlock()

	go func() {
		defer close(done)
		defer cancel()

		stream := d.runner.Run(ctx, history)
		for ev := range stream.Events {
			onEvent(ev)
		}

		steps, err := stream.Wait()
		if err != nil {
			logging.Debug("turn finished with error", "error", err)
		}
		onDone(steps, err)
	}()

	return true
}

// stepDraft accumulates the in-progress step from stream events, for display
// only. History is rebuilt from the turn's step summary when it finishes; the
// draft is discarded.
type stepDraft struct {
	text    string
	calls   []chat.ToolCallRecord
	results []chat.ToolResultEntry
}

func (d stepDraft) isEmpty() bool {
	return d.text == "" && len(d.calls) == 0 && len(d.results) == 0
}

// messages renders the draft in the same shape the reconciler produces.
func (d stepDraft) messages() []chat.Message {
	if d.isEmpty() {
		return nil
	}
	msgs := []chat.Message{{
		Role:    chat.RoleAssistant,
		Content: d.text,
		Calls:   append([]chat.ToolCallRecord(nil), d.calls...),
	}}
	if len(d.results) > 0 {
		msgs = append(msgs, chat.Message{
			Role:    chat.RoleTool,
			Results: append([]chat.ToolResultEntry(nil), d.results...),
		})
	}
	return msgs
}

// stop cancels the in-flight turn, if any, and waits for its consumer to
// finish. Safe to call with nothing in flight.
func (d *streamDriver) stop() {
	d.mu.Lock()
	cancel, done := d.cancel, d.done
	d.cancel, d.done = nil, nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}
