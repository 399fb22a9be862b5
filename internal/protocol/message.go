// Package protocol defines the JSON frames exchanged with the chat backend
// over the websocket channel. Every frame is tagged by a type discriminator;
// game frames carry their payload under data.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
)

// Inbound frame types.
const (
	TypeOnlineUsers      = "online_users"
	TypeUserJoined       = "user_joined"
	TypeUserLeft         = "user_left"
	TypeChatMessage      = "chat_message"
	TypeGameInvitation   = "game_invitation"
	TypeGameStart        = "game_start"
	TypeGameMove         = "game_move"
	TypeGameEnd          = "game_end"
	TypePlayAgainRequest = "play_again_request"
)

// Outbound-only frame types. chat_message, game_move and play_again_request
// are shared with the inbound set.
const (
	TypeJoin              = "join"
	TypeSendInvitation    = "send_game_invitation"
	TypeAcceptInvitation  = "accept_game_invitation"
	TypeDeclineInvitation = "decline_game_invitation"
	TypeQuitGame          = "quit_game"
)

var ErrMissingType = errors.New("frame has no type discriminator")

// Inbound is a server-to-client frame. Only the fields matching the frame
// type are populated.
type Inbound struct {
	Type string `json:"type"`

	// presence frames
	Users  []entity.Peer `json:"users,omitempty"`
	User   *entity.Peer  `json:"user,omitempty"`
	UserID int64         `json:"userId,omitempty"`

	// chat frames
	Message *entity.ChatMessage `json:"message,omitempty"`

	// game frames
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses one raw frame. Callers log and drop frames it rejects.
func Decode(raw []byte) (*Inbound, error) {
	var message Inbound

	if err := json.Unmarshal(raw, &message); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frame: %w", err)
	}

	if message.Type == "" {
		return nil, ErrMissingType
	}

	return &message, nil
}

// GameStartData is the game_start payload. The scoreboard is optional; a
// missing one means a fresh session with zeroed scores.
type GameStartData struct {
	GameID        string             `json:"gameId"`
	CurrentPlayer string             `json:"currentPlayer"`
	Players       entity.Players     `json:"players"`
	Scoreboard    *entity.Scoreboard `json:"scoreboard,omitempty"`
}

// GameMoveData is the authoritative game_move echo. Status may arrive
// uppercase and must be normalized before use.
type GameMoveData struct {
	GameID        string             `json:"gameId"`
	Board         entity.Board       `json:"board"`
	CurrentPlayer string             `json:"currentPlayer"`
	Status        string             `json:"status"`
	Winner        string             `json:"winner"`
	WinningLine   [][2]int           `json:"winningLine"`
	LastMove      *entity.Move       `json:"lastMove"`
	Scoreboard    *entity.Scoreboard `json:"scoreboard,omitempty"`
}

// GameEndData is the game_end payload. The opponent-quit variant carries
// only winner and reason, with no game id.
type GameEndData struct {
	GameID      string             `json:"gameId,omitempty"`
	Winner      string             `json:"winner"`
	WinningLine [][2]int           `json:"winningLine,omitempty"`
	Status      string             `json:"status,omitempty"`
	Reason      string             `json:"reason,omitempty"`
	Scoreboard  *entity.Scoreboard `json:"scoreboard,omitempty"`
}
