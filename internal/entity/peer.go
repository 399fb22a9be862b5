package entity

// Peer is another authenticated user currently visible through presence.
// HasUnreadMessages is client-local state; the backend never sends it.
type Peer struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email,omitempty"`
	ProfileImageURL   string    `json:"profileImageUrl,omitempty"`
	LastSeen          Timestamp `json:"lastSeen"`
	HasUnreadMessages bool      `json:"hasUnreadMessages,omitempty"`
}
