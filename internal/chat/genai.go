package chat

import "google.golang.org/genai"

// ToGenaiContents converts conversation history to the genai wire format.
// Tool messages are sent with the user role carrying function responses,
// which is what the API expects.
func ToGenaiContents(msgs []Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs))
	for _, m := range msgs {
		contents = append(contents, toGenaiContent(m))
	}
	return contents
}

func toGenaiContent(m Message) *genai.Content {
	switch m.Role {
	case RoleAssistant:
		var parts []*genai.Part
		if m.Content != "" {
			parts = append(parts, genai.NewPartFromText(m.Content))
		}
		for _, rec := range m.Calls {
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{
					ID:   rec.Call.ID,
					Name: rec.Call.Name,
					Args: rec.Call.Args,
				},
			})
		}
		if len(parts) == 0 {
			// The API rejects empty contents.
			parts = []*genai.Part{genai.NewPartFromText(" ")}
		}
		return &genai.Content{Role: genai.RoleModel, Parts: parts}

	case RoleTool:
		parts := make([]*genai.Part, 0, len(m.Results))
		for _, res := range m.Results {
			part := genai.NewPartFromFunctionResponse(res.Name, res.Result)
			part.FunctionResponse.ID = res.CallID
			parts = append(parts, part)
		}
		if len(parts) == 0 {
			parts = []*genai.Part{genai.NewPartFromText(" ")}
		}
		return &genai.Content{Role: genai.RoleUser, Parts: parts}

	default:
		text := m.Content
		if text == "" {
			text = " "
		}
		return genai.NewContentFromText(text, genai.RoleUser)
	}
}
