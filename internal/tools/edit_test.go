package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tfpilot/internal/filetree"
)

func TestEditFileSemantics(t *testing.T) {
	tests := []struct {
		name        string
		initial     map[string]string
		args        map[string]any
		wantSuccess bool
		wantAction  string
		wantContent string // checked when wantSuccess
		wantErrPart string // substring checked when !wantSuccess
	}{
		{
			name:        "empty old content creates missing file",
			initial:     map[string]string{},
			args:        map[string]any{"path": "main.tf", "old_content": "", "new_content": "variable \"x\" {}"},
			wantSuccess: true,
			wantAction:  "create",
			wantContent: "variable \"x\" {}",
		},
		{
			name:        "empty old content appends to existing file",
			initial:     map[string]string{"main.tf": "# header\n"},
			args:        map[string]any{"path": "main.tf", "old_content": "", "new_content": "variable \"x\" {}"},
			wantSuccess: true,
			wantAction:  "append",
			wantContent: "# header\nvariable \"x\" {}",
		},
		{
			name:        "empty old content overwrites empty file",
			initial:     map[string]string{"main.tf": ""},
			args:        map[string]any{"path": "main.tf", "old_content": "", "new_content": "fresh"},
			wantSuccess: true,
			wantAction:  "overwrite",
			wantContent: "fresh",
		},
		{
			name:        "omitted old content behaves as empty",
			initial:     map[string]string{},
			args:        map[string]any{"path": "new.tf", "new_content": "x"},
			wantSuccess: true,
			wantAction:  "create",
			wantContent: "x",
		},
		{
			name:        "unique occurrence is replaced",
			initial:     map[string]string{"main.tf": "a = 1\nb = 2\n"},
			args:        map[string]any{"path": "main.tf", "old_content": "b = 2", "new_content": "b = 3"},
			wantSuccess: true,
			wantAction:  "replace",
			wantContent: "a = 1\nb = 3\n",
		},
		{
			name:        "no occurrence fails with re-read hint",
			initial:     map[string]string{"main.tf": "a = 1\n"},
			args:        map[string]any{"path": "main.tf", "old_content": "z = 9", "new_content": "z = 10"},
			wantErrPart: "re-read",
		},
		{
			name:        "ambiguous occurrence fails asking for context",
			initial:     map[string]string{"main.tf": "x\nx\n"},
			args:        map[string]any{"path": "main.tf", "old_content": "x", "new_content": "y"},
			wantErrPart: "add more surrounding context",
		},
		{
			name:        "replace in missing file fails",
			initial:     map[string]string{},
			args:        map[string]any{"path": "gone.tf", "old_content": "a", "new_content": "b"},
			wantErrPart: "file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := filetree.NewStore(filetree.FromMap(tt.initial))
			tool := NewEditFileTool(store)

			require.NoError(t, tool.Validate(tt.args))
			result := tool.Execute(context.Background(), tt.args)

			if !tt.wantSuccess {
				require.False(t, result.Success)
				assert.Contains(t, result.Error, tt.wantErrPart)
				return
			}

			require.True(t, result.Success, "error: %s", result.Error)
			assert.Equal(t, tt.wantAction, result.Data["action"])

			path := tt.args["path"].(string)
			content, err := store.Snapshot().ReadText(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, content)
		})
	}
}

func TestEditFileFailureLeavesTreeUnchanged(t *testing.T) {
	store := filetree.NewStore(filetree.FromMap(map[string]string{"main.tf": "x\nx\n"}))
	tool := NewEditFileTool(store)

	result := tool.Execute(context.Background(), map[string]any{
		"path": "main.tf", "old_content": "x", "new_content": "y",
	})
	require.False(t, result.Success)

	content, err := store.Snapshot().ReadText("main.tf")
	require.NoError(t, err)
	assert.Equal(t, "x\nx\n", content)
}

func TestEditFileValidate(t *testing.T) {
	tool := NewEditFileTool(filetree.NewStore(filetree.New()))

	assert.Error(t, tool.Validate(map[string]any{"new_content": "x"}))
	assert.Error(t, tool.Validate(map[string]any{"path": "", "new_content": "x"}))
	assert.Error(t, tool.Validate(map[string]any{"path": "f", "old_content": 3, "new_content": "x"}))
	assert.Error(t, tool.Validate(map[string]any{"path": "f"}))
	assert.NoError(t, tool.Validate(map[string]any{"path": "f", "new_content": "x"}))
}

func TestEditRoundTrip(t *testing.T) {
	// An approved create followed by a read returns exactly the new content.
	store := filetree.NewStore(filetree.New())
	edit := NewEditFileTool(store)
	read := NewReadFileTool(store)

	result := edit.Execute(context.Background(), map[string]any{
		"path": "main.tf", "old_content": "", "new_content": "variable \"x\" {}",
	})
	require.True(t, result.Success)

	got := read.Execute(context.Background(), map[string]any{"path": "main.tf"})
	require.True(t, got.Success)
	assert.Equal(t, "variable \"x\" {}", got.Content)
}
