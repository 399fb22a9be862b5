package entity

import (
	"strings"

	"github.com/nguyengoctu/portfolio-realtime/internal/apperror"
)

const (
	BoardSize = 20

	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"

	SymbolX = "X"
	SymbolO = "O"

	EmptyCell = ""
)

// Board is the 20x20 caro grid. Empty cells decode from JSON null to "".
type Board [BoardSize][BoardSize]string

type Move struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

type Player struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

// Players holds the two participants; player1 always plays X and moves first.
type Players struct {
	Player1 Player `json:"player1"`
	Player2 Player `json:"player2"`
}

type Scoreboard struct {
	Player1Wins int `json:"player1Wins"`
	Player2Wins int `json:"player2Wins"`
	Draws       int `json:"draws"`
}

// Game is the client-side view of one board game. Fields are replaced
// wholesale from server events; the client never computes results itself,
// so there is no win detection anywhere in this package.
type Game struct {
	ID          string
	Board       Board
	Turn        string
	Players     Players
	Status      string
	Winner      string
	WinningLine [][2]int
	LastMove    *Move
	Scoreboard  Scoreboard
}

func NewGame(id string, players Players, scoreboard Scoreboard, turn string) *Game {
	if turn == "" {
		turn = SymbolX
	}

	return &Game{
		ID:         id,
		Turn:       turn,
		Players:    players,
		Status:     StatusPlaying,
		Scoreboard: scoreboard,
	}
}

func (that *Game) IsPlaying() bool {
	return that.Status == StatusPlaying
}

func (that *Game) IsFinished() bool {
	return that.Status == StatusFinished
}

func (that *Game) IsWaiting() bool {
	return that.Status == StatusWaiting
}

func (that *Game) PlayerBySymbol(symbol string) *Player {
	switch symbol {
	case that.Players.Player1.Symbol:
		return &that.Players.Player1
	case that.Players.Player2.Symbol:
		return &that.Players.Player2
	}

	return nil
}

func (that *Game) SymbolByPlayerID(userID int64) string {
	switch userID {
	case that.Players.Player1.ID:
		return that.Players.Player1.Symbol
	case that.Players.Player2.ID:
		return that.Players.Player2.Symbol
	}

	return ""
}

// CanMakeMove reports whether it is the given user's turn. It is derived
// from the current state on every call; the answer changes with every move.
func (that *Game) CanMakeMove(userID int64) bool {
	if !that.IsPlaying() {
		return false
	}

	current := that.PlayerBySymbol(that.Turn)

	return current != nil && current.ID == userID
}

// ValidateMove checks a move locally before it is sent. The board itself is
// only ever mutated by the authoritative game_move echo.
func (that *Game) ValidateMove(userID int64, row, col int) error {
	if !that.IsPlaying() {
		return apperror.ErrGameNotPlaying
	}

	if row < 0 || row >= BoardSize || col < 0 || col >= BoardSize {
		return apperror.ErrInvalidCell
	}

	if that.Board[row][col] != EmptyCell {
		return apperror.ErrCellOccupied
	}

	if !that.CanMakeMove(userID) {
		return apperror.ErrNotYourTurn
	}

	return nil
}

// NormalizeStatus lowers the mixed-case statuses the backend emits
// (PLAYING in move frames, playing everywhere else).
func NormalizeStatus(status string) string {
	return strings.ToLower(status)
}
