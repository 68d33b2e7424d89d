package chat

// Step is one model-backend-defined unit of a turn: an optional text span
// plus zero or more tool calls and the results produced in the same step.
// A step may bundle several parallel tool calls.
type Step struct {
	Text    string            `json:"text,omitempty"`
	Calls   []ToolCall        `json:"calls,omitempty"`
	Results []ToolResultEntry `json:"results,omitempty"`
}

// ResultFor returns the result entry for the given call ID, if any.
func (s Step) ResultFor(callID string) (ToolResultEntry, bool) {
	for _, r := range s.Results {
		if r.CallID == callID {
			return r, true
		}
	}
	return ToolResultEntry{}, false
}

// Messages converts the step into the linear messages it contributes to
// history: one assistant message carrying the text and the tool calls with
// their originally received arguments, followed by one tool message when the
// step produced results.
func (s Step) Messages() []Message {
	var records []ToolCallRecord
	if len(s.Calls) > 0 {
		records = make([]ToolCallRecord, len(s.Calls))
		for i, call := range s.Calls {
			rec := ToolCallRecord{Call: call}
			if res, ok := s.ResultFor(call.ID); ok {
				rec.Resolved = true
				rec.Result = res.Result
			}
			records[i] = rec
		}
	}

	msgs := []Message{{Role: RoleAssistant, Content: s.Text, Calls: records}}
	if len(s.Results) > 0 {
		results := make([]ToolResultEntry, len(s.Results))
		copy(results, s.Results)
		msgs = append(msgs, Message{Role: RoleTool, Results: results})
	}
	return msgs
}
