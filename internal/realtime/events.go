package realtime

import (
	"time"

	"github.com/ekinacar/solace/internal/chat"
	"github.com/ekinacar/solace/internal/services"
	"github.com/google/uuid"
)

// Envelope is the single frame shape on the wire, both to clients and
// across the backbone.
type Envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

const (
	EventConnected       = "connected"
	EventTyping          = "typing"
	EventMessageResponse = "messageResponse"
	EventError           = "error"
)

func ConnectedEvent(userID uuid.UUID) Envelope {
	return Envelope{Type: EventConnected, Payload: map[string]interface{}{
		"message": "connected",
		"userId":  userID.String(),
	}}
}

func TypingEvent(typing bool) Envelope {
	return Envelope{Type: EventTyping, Payload: map[string]interface{}{
		"typing": typing,
	}}
}

func MessageResponseEvent(result *services.TurnResult) Envelope {
	return Envelope{Type: EventMessageResponse, Payload: map[string]interface{}{
		"role":             chat.RoleAssistant.String(),
		"content":          result.Content,
		"messageId":        result.MessageID.String(),
		"timestamp":        result.Timestamp.UTC().Format(time.RFC3339),
		"tokens":           result.Usage,
		"contextRefreshed": result.ContextRefreshed,
	}}
}

func ErrorEvent(reason string) Envelope {
	return Envelope{Type: EventError, Payload: map[string]interface{}{
		"message": reason,
	}}
}
