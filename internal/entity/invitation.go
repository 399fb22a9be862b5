package entity

type NamedUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Invitation is a pending game invitation. It is removed on accept, decline
// or explicit dismissal, and implicitly when a game_start arrives for the
// same game id.
type Invitation struct {
	GameID    string    `json:"gameId"`
	FromUser  NamedUser `json:"fromUser"`
	ToUser    NamedUser `json:"toUser"`
	Timestamp Timestamp `json:"timestamp"`
}

// PlayAgainRequest is a one-shot rematch signal from the other party; it is
// cleared as soon as the UI consumes it.
type PlayAgainRequest struct {
	GameID          string `json:"gameId"`
	RequesterUserID int64  `json:"requesterUserId"`
}
