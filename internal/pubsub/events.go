package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/xerrors"
)

// ConversationEventChannel is the channel carrying lifecycle events for one
// conversation.
func ConversationEventChannel(conversationID uuid.UUID) string {
	return fmt.Sprintf("conversation:%s", conversationID)
}

// ConversationEvent is the envelope published on a conversation channel.
// Payload is the JSON-encoded conversation snapshot at the time of the
// event; subscribers decode it themselves so the broker stays decoupled
// from the snapshot type.
type ConversationEvent struct {
	Kind    ConversationEventKind `json:"kind"`
	Payload json.RawMessage       `json:"payload,omitempty"`
}

// ConversationEventKind classifies a conversation event.
type ConversationEventKind string

const (
	ConversationEventKindCreated         ConversationEventKind = "created"
	ConversationEventKindStatusChange    ConversationEventKind = "status_change"
	ConversationEventKindMessageAppended ConversationEventKind = "message_appended"
	ConversationEventKindApprovalPending ConversationEventKind = "approval_pending"
	ConversationEventKindDeleted         ConversationEventKind = "deleted"
)

// HandleConversationEvent adapts a typed callback to the raw listener shape
// the broker expects, decoding the envelope and reporting decode failures
// through the same callback.
func HandleConversationEvent(cb func(ctx context.Context, event ConversationEvent, err error)) Listener {
	return func(ctx context.Context, message []byte, err error) {
		if err != nil {
			cb(ctx, ConversationEvent{}, xerrors.Errorf("conversation event pubsub: %w", err))
			return
		}
		var event ConversationEvent
		if err := json.Unmarshal(message, &event); err != nil {
			cb(ctx, ConversationEvent{}, xerrors.Errorf("unmarshal conversation event: %w", err))
			return
		}

		cb(ctx, event, nil)
	}
}
