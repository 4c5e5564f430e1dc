package websocket

import (
	"encoding/json"

	"github.com/dom/faceoff/internal/domain"
)

const MessageTypeConnected = "connected"

// Message is the JSON frame written to browsers.
type Message struct {
	Type  string        `json:"type"`
	Match *domain.Match `json:"match,omitempty"`
}

// NewMatchMessage builds the frame for a match event. Photos are never
// included.
func NewMatchMessage(event domain.MatchEvent, match *domain.Match) ([]byte, error) {
	return json.Marshal(Message{
		Type:  string(event),
		Match: match.Summary(),
	})
}

var connectedMessage, _ = json.Marshal(Message{Type: MessageTypeConnected})
