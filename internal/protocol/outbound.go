package protocol

// Outbound is a client-to-server frame.
type Outbound struct {
	Type       string `json:"type"`
	UserID     int64  `json:"userId,omitempty"`
	ReceiverID int64  `json:"receiverId,omitempty"`
	Message    string `json:"message,omitempty"`
	Data       any    `json:"data,omitempty"`
}

type GameRef struct {
	GameID string `json:"gameId"`
}

type InviteData struct {
	ToUserID int64 `json:"toUserId"`
}

type MoveData struct {
	GameID string `json:"gameId"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

// Join is the control message announcing the local user after every open.
func Join(userID int64) Outbound {
	return Outbound{Type: TypeJoin, UserID: userID}
}

func Chat(receiverID int64, text string) Outbound {
	return Outbound{Type: TypeChatMessage, ReceiverID: receiverID, Message: text}
}

func SendInvitation(toUserID int64) Outbound {
	return Outbound{Type: TypeSendInvitation, Data: InviteData{ToUserID: toUserID}}
}

func AcceptInvitation(gameID string) Outbound {
	return Outbound{Type: TypeAcceptInvitation, Data: GameRef{GameID: gameID}}
}

func DeclineInvitation(gameID string) Outbound {
	return Outbound{Type: TypeDeclineInvitation, Data: GameRef{GameID: gameID}}
}

func GameMove(gameID string, row, col int) Outbound {
	return Outbound{Type: TypeGameMove, Data: MoveData{GameID: gameID, Row: row, Col: col}}
}

func QuitGame(gameID string) Outbound {
	return Outbound{Type: TypeQuitGame, Data: GameRef{GameID: gameID}}
}

// PlayAgain doubles as proposal and acceptance: the server treats a second
// matching proposal as mutual agreement.
func PlayAgain(gameID string) Outbound {
	return Outbound{Type: TypePlayAgainRequest, Data: GameRef{GameID: gameID}}
}
