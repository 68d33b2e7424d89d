package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestToolCallRecordResolveOnce(t *testing.T) {
	rec := ToolCallRecord{Call: ToolCall{ID: "c1", Name: "read_file"}}

	rec.Resolve(map[string]any{"success": true})
	require.True(t, rec.Resolved)

	// A second resolve is ignored; the first result is immutable.
	rec.Resolve(map[string]any{"success": false})
	assert.Equal(t, true, rec.Result["success"])
}

func TestStepMessages(t *testing.T) {
	step := Step{
		Text: "Checking the file.",
		Calls: []ToolCall{
			{ID: "a", Name: "read_file", Args: map[string]any{"path": "main.tf"}},
			{ID: "b", Name: "edit_file", Args: map[string]any{"path": "main.tf"}},
		},
		Results: []ToolResultEntry{
			{CallID: "a", Name: "read_file", Result: map[string]any{"success": true}},
		},
	}

	msgs := step.Messages()
	require.Len(t, msgs, 2)

	assistant := msgs[0]
	assert.Equal(t, RoleAssistant, assistant.Role)
	assert.Equal(t, "Checking the file.", assistant.Content)
	require.Len(t, assistant.Calls, 2)
	assert.True(t, assistant.Calls[0].Resolved)
	assert.False(t, assistant.Calls[1].Resolved)

	tool := msgs[1]
	assert.Equal(t, RoleTool, tool.Role)
	require.Len(t, tool.Results, 1)
	assert.Equal(t, "a", tool.Results[0].CallID)
}

func TestStepMessagesTextOnly(t *testing.T) {
	msgs := Step{Text: "done"}.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Empty(t, msgs[0].Calls)
}

func TestToGenaiContents(t *testing.T) {
	msgs := []Message{
		UserMessage("add a var"),
		{
			Role:    RoleAssistant,
			Content: "On it.",
			Calls: []ToolCallRecord{{
				Call: ToolCall{ID: "c1", Name: "edit_file", Args: map[string]any{"path": "main.tf"}},
			}},
		},
		{
			Role: RoleTool,
			Results: []ToolResultEntry{{
				CallID: "c1",
				Name:   "edit_file",
				Result: map[string]any{"success": true},
			}},
		},
	}

	contents := ToGenaiContents(msgs)
	require.Len(t, contents, 3)

	assert.Equal(t, genai.RoleUser, contents[0].Role)
	assert.Equal(t, "add a var", contents[0].Parts[0].Text)

	assert.Equal(t, genai.RoleModel, contents[1].Role)
	require.Len(t, contents[1].Parts, 2)
	assert.Equal(t, "On it.", contents[1].Parts[0].Text)
	fc := contents[1].Parts[1].FunctionCall
	require.NotNil(t, fc)
	assert.Equal(t, "c1", fc.ID)
	assert.Equal(t, "edit_file", fc.Name)

	// Tool results ride the user role as function responses.
	assert.Equal(t, genai.RoleUser, contents[2].Role)
	fr := contents[2].Parts[0].FunctionResponse
	require.NotNil(t, fr)
	assert.Equal(t, "c1", fr.ID)
	assert.Equal(t, true, fr.Response["success"])
}

func TestCloneMessagesIsDeep(t *testing.T) {
	orig := []Message{{
		Role: RoleAssistant,
		Calls: []ToolCallRecord{{
			Call: ToolCall{ID: "c1", Name: "read_file"},
		}},
	}}

	cloned := CloneMessages(orig)
	cloned[0].Calls[0].Resolve(map[string]any{"success": true})

	assert.False(t, orig[0].Calls[0].Resolved)
}
