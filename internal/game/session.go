// Package game holds the client side of the board game: at most one live
// game, pending invitations and rematch negotiation. The server is
// authoritative for every board mutation; the only optimistic transition
// is quitting.
package game

import (
	"log/slog"
	"sync"

	"github.com/nguyengoctu/portfolio-realtime/internal/apperror"
	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
	"github.com/nguyengoctu/portfolio-realtime/internal/observer"
	"github.com/nguyengoctu/portfolio-realtime/internal/protocol"
)

type sender interface {
	Send(message protocol.Outbound)
}

// Session applies inbound game events and exposes the move/invitation
// actions. The current game pointer is replaced wholesale per event, never
// mutated in place, so a snapshot read always sees fields from one event.
type Session struct {
	logger      *slog.Logger
	localUserID int64
	sender      sender

	mu          sync.Mutex
	current     *entity.Game
	invitations []entity.Invitation

	gameState       *observer.State[*entity.Game]
	invitationState *observer.State[[]entity.Invitation]
	playAgainState  *observer.State[*entity.PlayAgainRequest]
}

func NewSession(logger *slog.Logger, localUserID int64, sender sender) *Session {
	return &Session{
		logger:      logger.With("component", "game"),
		localUserID: localUserID,
		sender:      sender,

		gameState:       observer.NewState[*entity.Game](nil),
		invitationState: observer.NewState([]entity.Invitation(nil)),
		playAgainState:  observer.NewState[*entity.PlayAgainRequest](nil),
	}
}

// HandleInvitation records an inbound invitation at the end of the pending
// list.
func (that *Session) HandleInvitation(invitation entity.Invitation) {
	that.mu.Lock()
	that.invitations = append(that.invitations, invitation)
	that.mu.Unlock()

	that.publishInvitations()
}

// HandleStart installs a fresh game, implicitly discarding any previous
// one, clears the matching invitation and any pending rematch signal. A
// missing scoreboard seeds zeroed scores.
func (that *Session) HandleStart(data protocol.GameStartData) {
	scoreboard := entity.Scoreboard{}
	if data.Scoreboard != nil {
		scoreboard = *data.Scoreboard
	}

	started := entity.NewGame(data.GameID, data.Players, scoreboard, data.CurrentPlayer)

	that.mu.Lock()
	that.current = started
	that.removeInvitationLocked(data.GameID)
	that.mu.Unlock()

	that.playAgainState.Set(nil)
	that.publishGame()
	that.publishInvitations()

	that.logger.Info("game started", "gameID", data.GameID)
}

// HandleMove replaces the board-facing fields as one unit from the server
// echo. A move carrying a terminal status finishes the game in place.
func (that *Session) HandleMove(data protocol.GameMoveData) {
	that.mu.Lock()
	if that.current == nil || that.current.ID != data.GameID {
		that.mu.Unlock()
		that.logger.Debug("ignoring move for unknown game", "gameID", data.GameID)
		return
	}

	updated := *that.current
	updated.Board = data.Board
	updated.Turn = data.CurrentPlayer
	updated.Status = entity.NormalizeStatus(data.Status)
	updated.Winner = data.Winner
	updated.WinningLine = data.WinningLine
	updated.LastMove = data.LastMove
	if data.Scoreboard != nil {
		updated.Scoreboard = *data.Scoreboard
	}

	that.current = &updated
	that.mu.Unlock()

	that.publishGame()
}

// HandleEnd finishes the current game, preserving the board exactly as the
// last move left it. The opponent-quit variant carries no game id and
// applies to whatever game is live.
func (that *Session) HandleEnd(data protocol.GameEndData) {
	that.mu.Lock()
	if that.current == nil || (data.GameID != "" && data.GameID != that.current.ID) {
		that.mu.Unlock()
		return
	}

	updated := *that.current
	updated.Status = entity.StatusFinished
	updated.Winner = data.Winner
	if data.WinningLine != nil {
		updated.WinningLine = data.WinningLine
	}
	if data.Scoreboard != nil {
		updated.Scoreboard = *data.Scoreboard
	}

	that.current = &updated
	that.mu.Unlock()

	that.publishGame()

	that.logger.Info("game finished", "winner", data.Winner, "reason", data.Reason)
}

// HandlePlayAgain surfaces a rematch proposal from the other party as a
// one-shot signal for the UI to confirm.
func (that *Session) HandlePlayAgain(request entity.PlayAgainRequest) {
	if request.RequesterUserID == that.localUserID {
		return
	}

	that.playAgainState.Set(&request)
}

func (that *Session) Invite(toUserID int64) {
	that.sender.Send(protocol.SendInvitation(toUserID))
}

// AcceptInvitation sends the accept and removes the local invitation; the
// server follows up with a game_start.
func (that *Session) AcceptInvitation(gameID string) {
	that.sender.Send(protocol.AcceptInvitation(gameID))
	that.RemoveInvitation(gameID)
}

// DeclineInvitation sends the decline; the server sends nothing further.
func (that *Session) DeclineInvitation(gameID string) {
	that.sender.Send(protocol.DeclineInvitation(gameID))
	that.RemoveInvitation(gameID)
}

func (that *Session) RemoveInvitation(gameID string) {
	that.mu.Lock()
	removed := that.removeInvitationLocked(gameID)
	that.mu.Unlock()

	if removed {
		that.publishInvitations()
	}
}

// MakeMove submits a move for the active game. Invalid moves are silent
// no-ops, and the board is never touched here: it only changes when the
// authoritative game_move echo arrives.
func (that *Session) MakeMove(row, col int) {
	current := that.snapshot()
	if current == nil {
		that.logger.Debug("move ignored", "error", apperror.ErrNoActiveGame)
		return
	}

	if err := current.ValidateMove(that.localUserID, row, col); err != nil {
		that.logger.Debug("move ignored", "gameID", current.ID, "error", err)
		return
	}

	that.sender.Send(protocol.GameMove(current.ID, row, col))
}

// QuitGame clears local state immediately, before any server
// acknowledgment, and notifies the server. With no active game it is a
// no-op and does not fault.
func (that *Session) QuitGame() {
	that.mu.Lock()
	current := that.current
	that.current = nil
	that.mu.Unlock()

	if current == nil {
		return
	}

	that.sender.Send(protocol.QuitGame(current.ID))
	that.playAgainState.Set(nil)
	that.publishGame()

	that.logger.Info("quit game", "gameID", current.ID)
}

// RequestPlayAgain proposes a rematch. Sending it while the peer's proposal
// is pending doubles as acceptance: the server treats a second matching
// proposal as mutual agreement.
func (that *Session) RequestPlayAgain() {
	current := that.snapshot()
	if current == nil {
		return
	}

	that.sender.Send(protocol.PlayAgain(current.ID))
}

// ConsumePlayAgain returns the pending rematch signal, if any, and clears
// it; the signal is one-shot and never stored beyond consumption.
func (that *Session) ConsumePlayAgain() *entity.PlayAgainRequest {
	request := that.playAgainState.Get()
	if request != nil {
		that.playAgainState.Set(nil)
	}

	return request
}

// CanMakeMove is re-derived from the current state on every call.
func (that *Session) CanMakeMove(userID int64) bool {
	current := that.snapshot()

	return current != nil && current.CanMakeMove(userID)
}

// CurrentGame returns a copy of the live game, or nil when there is none.
func (that *Session) CurrentGame() *entity.Game {
	current := that.snapshot()
	if current == nil {
		return nil
	}

	game := *current

	return &game
}

func (that *Session) Invitations() []entity.Invitation {
	that.mu.Lock()
	defer that.mu.Unlock()

	invitations := make([]entity.Invitation, len(that.invitations))
	copy(invitations, that.invitations)

	return invitations
}

func (that *Session) SubscribeGame() (<-chan *entity.Game, func()) {
	return that.gameState.Subscribe()
}

func (that *Session) SubscribeInvitations() (<-chan []entity.Invitation, func()) {
	return that.invitationState.Subscribe()
}

func (that *Session) SubscribePlayAgain() (<-chan *entity.PlayAgainRequest, func()) {
	return that.playAgainState.Subscribe()
}

func (that *Session) snapshot() *entity.Game {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.current
}

// removeInvitationLocked assumes the caller holds the lock.
func (that *Session) removeInvitationLocked(gameID string) bool {
	for i, invitation := range that.invitations {
		if invitation.GameID == gameID {
			that.invitations = append(that.invitations[:i], that.invitations[i+1:]...)
			return true
		}
	}

	return false
}

func (that *Session) publishGame() {
	that.gameState.Set(that.CurrentGame())
}

func (that *Session) publishInvitations() {
	that.invitationState.Set(that.Invitations())
}
