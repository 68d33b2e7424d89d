package client

import (
	"testing"

	"github.com/ollama/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertOllamaToolCallKeepsProviderID(t *testing.T) {
	args := api.NewToolCallFunctionArguments()
	args.Set("path", "main.tf")

	fc := convertOllamaToolCall(api.ToolCall{
		ID: "prov-1",
		Function: api.ToolCallFunction{
			Name:      "read_file",
			Arguments: args,
		},
	})

	require.NotNil(t, fc)
	assert.Equal(t, "prov-1", fc.ID)
	assert.Equal(t, "read_file", fc.Name)
	assert.Equal(t, "main.tf", fc.Args["path"])
}

func TestConvertOllamaToolCallLeavesMissingIDEmpty(t *testing.T) {
	// No ID is ever fabricated here: chunk-local indexes would hand
	// distinct calls the same identity. The turn runner assigns a uuid.
	call := api.ToolCall{
		Function: api.ToolCallFunction{
			Name:      "edit_file",
			Arguments: api.NewToolCallFunctionArguments(),
		},
	}

	first := convertOllamaToolCall(call)
	second := convertOllamaToolCall(call)
	assert.Empty(t, first.ID)
	assert.Empty(t, second.ID)
}
