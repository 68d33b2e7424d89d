package agent

import (
	"tfpilot/internal/chat"
)

// ApprovalClassifier reports whether a tool requires user approval before
// execution. The tool registry satisfies it.
type ApprovalClassifier interface {
	ApprovalRequired(name string) bool
}

// RebuildMessages converts a turn's step summary into the messages it
// contributes to history: per step, one assistant message carrying the text
// and tool-call records (resolved where results exist, with the originally
// received arguments), followed by a tool message when the step produced
// results. History is always rebuilt from the summary; incremental stream
// events are never patched in.
func RebuildMessages(steps []chat.Step) []chat.Message {
	var msgs []chat.Message
	for _, step := range steps {
		msgs = append(msgs, step.Messages()...)
	}
	return msgs
}

// PendingApprovals extracts the approval queue from a turn summary: the
// unresolved approval-required calls of the final step, in emission order.
// Earlier steps cannot contribute; the backend only ends a turn mid-loop
// when the last step needs approval.
func PendingApprovals(steps []chat.Step, classifier ApprovalClassifier) []PendingApproval {
	if len(steps) == 0 {
		return nil
	}

	last := steps[len(steps)-1]
	var pending []PendingApproval
	for _, call := range last.Calls {
		if _, resolved := last.ResultFor(call.ID); resolved {
			continue
		}
		if !classifier.ApprovalRequired(call.Name) {
			continue
		}
		pending = append(pending, PendingApproval{
			CallID: call.ID,
			Tool:   call.Name,
			Args:   call.Args,
		})
	}
	return pending
}
