package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfpilot/internal/chat"
)

// classifierFunc adapts a function to ApprovalClassifier.
type classifierFunc func(name string) bool

func (f classifierFunc) ApprovalRequired(name string) bool { return f(name) }

var mutatingOnly = classifierFunc(func(name string) bool {
	return name == "edit_file" || name == "delete_file"
})

func TestRebuildMessages(t *testing.T) {
	steps := []chat.Step{
		{
			Text: "Let me look at the files.",
			Calls: []chat.ToolCall{
				{ID: "c1", Name: "list_files", Args: map[string]any{}},
			},
			Results: []chat.ToolResultEntry{
				{CallID: "c1", Name: "list_files", Result: map[string]any{"success": true, "content": "main.tf"}},
			},
		},
		{
			Text: "I'll add the variable.",
			Calls: []chat.ToolCall{
				{ID: "c2", Name: "edit_file", Args: map[string]any{"path": "main.tf", "old_content": "", "new_content": "variable \"x\" {}"}},
			},
		},
	}

	msgs := RebuildMessages(steps)
	require.Len(t, msgs, 3)

	assert.Equal(t, chat.RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Let me look at the files.", msgs[0].Content)
	require.Len(t, msgs[0].Calls, 1)
	assert.True(t, msgs[0].Calls[0].Resolved)

	assert.Equal(t, chat.RoleTool, msgs[1].Role)
	require.Len(t, msgs[1].Results, 1)
	assert.Equal(t, "c1", msgs[1].Results[0].CallID)

	// Unresolved approval-required call: record present, no tool message.
	assert.Equal(t, chat.RoleAssistant, msgs[2].Role)
	require.Len(t, msgs[2].Calls, 1)
	assert.False(t, msgs[2].Calls[0].Resolved)
	// Arguments are re-serialized exactly as received.
	assert.Equal(t, "main.tf", msgs[2].Calls[0].Call.Args["path"])
}

func TestRebuildMessagesParallelCalls(t *testing.T) {
	steps := []chat.Step{{
		Calls: []chat.ToolCall{
			{ID: "a", Name: "read_file"},
			{ID: "b", Name: "edit_file"},
			{ID: "c", Name: "edit_file"},
		},
		Results: []chat.ToolResultEntry{
			{CallID: "a", Name: "read_file", Result: map[string]any{"success": true}},
		},
	}}

	msgs := RebuildMessages(steps)
	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].Calls, 3)
	assert.True(t, msgs[0].Calls[0].Resolved)
	assert.False(t, msgs[0].Calls[1].Resolved)
	assert.False(t, msgs[0].Calls[2].Resolved)
}

func TestPendingApprovals(t *testing.T) {
	steps := []chat.Step{
		{
			// Earlier steps never contribute pending items.
			Calls: []chat.ToolCall{{ID: "old", Name: "edit_file"}},
			Results: []chat.ToolResultEntry{
				{CallID: "old", Name: "edit_file", Result: map[string]any{"success": true}},
			},
		},
		{
			Calls: []chat.ToolCall{
				{ID: "r", Name: "read_file"},
				{ID: "e1", Name: "edit_file", Args: map[string]any{"path": "a.tf"}},
				{ID: "e2", Name: "delete_file", Args: map[string]any{"path": "b.tf"}},
			},
			Results: []chat.ToolResultEntry{
				{CallID: "r", Name: "read_file", Result: map[string]any{"success": true}},
			},
		},
	}

	pending := PendingApprovals(steps, mutatingOnly)
	require.Len(t, pending, 2)

	// Emission order is preserved.
	assert.Equal(t, "e1", pending[0].CallID)
	assert.Equal(t, "edit_file", pending[0].Tool)
	assert.Equal(t, "a.tf", pending[0].Args["path"])
	assert.Equal(t, "e2", pending[1].CallID)
}

func TestPendingApprovalsEmpty(t *testing.T) {
	assert.Nil(t, PendingApprovals(nil, mutatingOnly))

	steps := []chat.Step{{
		Text:  "All done.",
		Calls: nil,
	}}
	assert.Nil(t, PendingApprovals(steps, mutatingOnly))
}

func TestApprovalGateFIFO(t *testing.T) {
	var g approvalGate

	// Empty gate: head reports nothing, pop is a no-op.
	_, ok := g.head()
	assert.False(t, ok)
	g.pop()

	g.enqueue(
		PendingApproval{CallID: "1", Tool: "edit_file"},
		PendingApproval{CallID: "2", Tool: "delete_file"},
	)

	head, ok := g.head()
	require.True(t, ok)
	assert.Equal(t, "1", head.CallID)

	g.pop()
	head, ok = g.head()
	require.True(t, ok)
	assert.Equal(t, "2", head.CallID)

	g.pop()
	assert.True(t, g.empty())
}
