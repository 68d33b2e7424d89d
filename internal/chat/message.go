package chat

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is one tool invocation requested by the model. The ID is assigned
// by the model backend and is the only stable identity for correlating the
// call with its result and approval; it is treated as opaque and never
// regenerated.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolCallRecord tracks a requested call and its resolution. A record
// transitions pending→resolved exactly once; once resolved the result is
// immutable.
type ToolCallRecord struct {
	Call     ToolCall       `json:"call"`
	Resolved bool           `json:"resolved"`
	Result   map[string]any `json:"result,omitempty"`
}

// Resolve marks the record resolved with the given result.
// Resolving an already-resolved record is ignored.
func (r *ToolCallRecord) Resolve(result map[string]any) {
	if r.Resolved {
		return
	}
	r.Resolved = true
	r.Result = result
}

// ToolResultEntry pairs a call ID with the result payload fed back to the
// model in a tool message.
type ToolResultEntry struct {
	CallID string         `json:"call_id"`
	Name   string         `json:"name"`
	Result map[string]any `json:"result"`
}

// Message is one entry in the conversation history. Assistant messages may
// carry tool-call records; tool messages carry one result entry per resolved
// call. History is append-only.
type Message struct {
	Role    Role              `json:"role"`
	Content string            `json:"content,omitempty"`
	Calls   []ToolCallRecord  `json:"calls,omitempty"`
	Results []ToolResultEntry `json:"results,omitempty"`
}

// UserMessage builds a user message from free text.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	out := m
	if m.Calls != nil {
		out.Calls = make([]ToolCallRecord, len(m.Calls))
		copy(out.Calls, m.Calls)
	}
	if m.Results != nil {
		out.Results = make([]ToolResultEntry, len(m.Results))
		copy(out.Results, m.Results)
	}
	return out
}

// CloneMessages returns a deep copy of a message slice.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
