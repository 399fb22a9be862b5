package entity

// ChatMessage is immutable once created except for the read flag, which only
// ever flips false to true. ID is assigned by the backend for persisted
// messages; LocalID is the provisional identifier of a message synthesized
// while the transport is degraded and never crosses the wire.
type ChatMessage struct {
	ID         int64     `json:"id,omitempty"`
	SenderID   int64     `json:"senderId"`
	ReceiverID int64     `json:"receiverId"`
	Message    string    `json:"message"`
	Timestamp  Timestamp `json:"timestamp"`
	Read       bool      `json:"read"`

	LocalID string `json:"-"`
}

func (that *ChatMessage) IsProvisional() bool {
	return that.ID == 0 && that.LocalID != ""
}

// Involves reports whether the given user is the sender or the receiver.
func (that *ChatMessage) Involves(userID int64) bool {
	return that.SenderID == userID || that.ReceiverID == userID
}
