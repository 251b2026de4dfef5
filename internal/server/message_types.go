package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
const (
	// Client to server messages
	MessageTypeAuth       MessageType = "auth"
	MessageTypeDeal       MessageType = "deal"
	MessageTypeHit        MessageType = "hit"
	MessageTypeStand      MessageType = "stand"
	MessageTypeReset      MessageType = "reset"
	MessageTypeResetStats MessageType = "reset_stats"
	MessageTypeGetStats   MessageType = "get_stats"

	// Server to client messages
	MessageTypeAuthResponse MessageType = "auth_response"
	MessageTypeRoundState   MessageType = "round_state"
	MessageTypeRoundResult  MessageType = "round_result"
	MessageTypeStats        MessageType = "stats"
	MessageTypeError        MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
