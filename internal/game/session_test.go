package game

import (
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
	"github.com/nguyengoctu/portfolio-realtime/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const localUserID = int64(1)

type fakeSender struct {
	mu   sync.Mutex
	sent []protocol.Outbound
}

func (that *fakeSender) Send(message protocol.Outbound) {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.sent = append(that.sent, message)
}

func (that *fakeSender) all() []protocol.Outbound {
	that.mu.Lock()
	defer that.mu.Unlock()

	sent := make([]protocol.Outbound, len(that.sent))
	copy(sent, that.sent)

	return sent
}

func newTestSession(t *testing.T) (*Session, *fakeSender) {
	t.Helper()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	sender := &fakeSender{}

	return NewSession(logger, localUserID, sender), sender
}

func startData(gameID string) protocol.GameStartData {
	return protocol.GameStartData{
		GameID:        gameID,
		CurrentPlayer: entity.SymbolX,
		Players: entity.Players{
			Player1: entity.Player{ID: localUserID, Name: "alice", Symbol: entity.SymbolX},
			Player2: entity.Player{ID: 2, Name: "bob", Symbol: entity.SymbolO},
		},
	}
}

func invitation(gameID string) entity.Invitation {
	return entity.Invitation{
		GameID:   gameID,
		FromUser: entity.NamedUser{ID: 2, Name: "bob"},
		ToUser:   entity.NamedUser{ID: localUserID, Name: "alice"},
	}
}

func TestSession_Invitations(t *testing.T) {
	t.Run("Inbound invitations accumulate in order", func(t *testing.T) {
		// Given: two invitations
		session, _ := newTestSession(t)

		// When: both arrive
		session.HandleInvitation(invitation("g1"))
		session.HandleInvitation(invitation("g2"))

		// Then: they are pending in arrival order
		pending := session.Invitations()
		require.Len(t, pending, 2)
		assert.Equal(t, "g1", pending[0].GameID)
		assert.Equal(t, "g2", pending[1].GameID)
	})

	t.Run("Accept sends the frame and removes the invitation", func(t *testing.T) {
		// Given: a pending invitation
		session, sender := newTestSession(t)
		session.HandleInvitation(invitation("g1"))

		// When: accepting it
		session.AcceptInvitation("g1")

		// Then: the accept frame went out and the invitation is gone
		sent := sender.all()
		require.Len(t, sent, 1)
		assert.Equal(t, protocol.TypeAcceptInvitation, sent[0].Type)
		assert.Empty(t, session.Invitations())
	})

	t.Run("Decline sends the frame and removes the invitation", func(t *testing.T) {
		session, sender := newTestSession(t)
		session.HandleInvitation(invitation("g1"))

		session.DeclineInvitation("g1")

		sent := sender.all()
		require.Len(t, sent, 1)
		assert.Equal(t, protocol.TypeDeclineInvitation, sent[0].Type)
		assert.Empty(t, session.Invitations())
	})

	t.Run("Invite sends the target user id", func(t *testing.T) {
		session, sender := newTestSession(t)

		session.Invite(7)

		sent := sender.all()
		require.Len(t, sent, 1)
		assert.Equal(t, protocol.TypeSendInvitation, sent[0].Type)
		assert.Equal(t, protocol.InviteData{ToUserID: 7}, sent[0].Data)
	})
}

func TestSession_HandleStart(t *testing.T) {
	t.Run("Installs the game and clears the matching invitation", func(t *testing.T) {
		// Given: a pending invitation for the game about to start
		session, _ := newTestSession(t)
		session.HandleInvitation(invitation("g1"))
		session.HandleInvitation(invitation("g2"))

		// When: the game starts
		session.HandleStart(startData("g1"))

		// Then: the game is live, playing, X to move, and the invitation gone
		current := session.CurrentGame()
		require.NotNil(t, current)
		assert.Equal(t, "g1", current.ID)
		assert.True(t, current.IsPlaying())
		assert.Equal(t, entity.SymbolX, current.Turn)

		pending := session.Invitations()
		require.Len(t, pending, 1)
		assert.Equal(t, "g2", pending[0].GameID)
	})

	t.Run("A missing scoreboard seeds zeroed scores", func(t *testing.T) {
		session, _ := newTestSession(t)

		session.HandleStart(startData("g1"))

		assert.Equal(t, entity.Scoreboard{}, session.CurrentGame().Scoreboard)
	})

	t.Run("A new start replaces the previous game", func(t *testing.T) {
		// Given: a live game
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))

		// When: another start arrives
		session.HandleStart(startData("g2"))

		// Then: only the new game exists
		assert.Equal(t, "g2", session.CurrentGame().ID)
	})
}

func TestSession_HandleMove(t *testing.T) {
	moveEcho := func(gameID string) protocol.GameMoveData {
		data := protocol.GameMoveData{
			GameID:        gameID,
			CurrentPlayer: entity.SymbolO,
			Status:        "PLAYING",
			LastMove:      &entity.Move{Row: 0, Col: 0},
		}
		data.Board[0][0] = entity.SymbolX

		return data
	}

	t.Run("Applies the echo as one unit and flips the turn", func(t *testing.T) {
		// Given: a live game with X to move
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))
		require.True(t, session.CanMakeMove(localUserID))

		// When: the authoritative echo arrives
		session.HandleMove(moveEcho("g1"))

		// Then: board, turn and last move come from the echo; the status is
		// normalized; the turn question flips
		current := session.CurrentGame()
		assert.Equal(t, entity.SymbolX, current.Board[0][0])
		assert.Equal(t, entity.StatusPlaying, current.Status)
		assert.Equal(t, entity.SymbolO, current.Turn)
		require.NotNil(t, current.LastMove)
		assert.False(t, session.CanMakeMove(localUserID))
		assert.True(t, session.CanMakeMove(2))
	})

	t.Run("Ignores an echo for an unknown game", func(t *testing.T) {
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))

		session.HandleMove(moveEcho("other"))

		assert.Equal(t, entity.EmptyCell, session.CurrentGame().Board[0][0])
	})

	t.Run("A terminal echo finishes the game in place", func(t *testing.T) {
		// Given: a live game
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))

		// When: the winning move echo arrives
		data := moveEcho("g1")
		data.Status = "FINISHED"
		data.Winner = entity.SymbolX
		data.WinningLine = [][2]int{{0, 0}, {0, 1}, {0, 2}, {0, 3}, {0, 4}}
		data.Scoreboard = &entity.Scoreboard{Player1Wins: 1}
		session.HandleMove(data)

		// Then: the game is finished with winner, line and updated scores
		current := session.CurrentGame()
		assert.True(t, current.IsFinished())
		assert.Equal(t, entity.SymbolX, current.Winner)
		assert.Len(t, current.WinningLine, 5)
		assert.Equal(t, 1, current.Scoreboard.Player1Wins)
	})
}

func TestSession_HandleEnd(t *testing.T) {
	t.Run("Finishes the game and preserves the board", func(t *testing.T) {
		// Given: a live game with one cell taken
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))

		echo := protocol.GameMoveData{GameID: "g1", CurrentPlayer: entity.SymbolO, Status: "PLAYING"}
		echo.Board[3][3] = entity.SymbolX
		session.HandleMove(echo)

		// When: game_end arrives
		session.HandleEnd(protocol.GameEndData{GameID: "g1", Winner: entity.SymbolX})

		// Then: the board is exactly as the last move left it
		current := session.CurrentGame()
		assert.True(t, current.IsFinished())
		assert.Equal(t, entity.SymbolX, current.Winner)
		assert.Equal(t, entity.SymbolX, current.Board[3][3])
	})

	t.Run("The opponent-quit variant applies without a game id", func(t *testing.T) {
		// Given: a live game
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))

		// When: the opponent quits
		session.HandleEnd(protocol.GameEndData{Winner: entity.SymbolX, Reason: "opponent_quit"})

		// Then: the live game finishes
		assert.True(t, session.CurrentGame().IsFinished())
	})

	t.Run("Ignores an end for a different game", func(t *testing.T) {
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))

		session.HandleEnd(protocol.GameEndData{GameID: "other", Winner: entity.SymbolO})

		assert.True(t, session.CurrentGame().IsPlaying())
	})

	t.Run("Ignores an end with no game live", func(t *testing.T) {
		session, _ := newTestSession(t)

		session.HandleEnd(protocol.GameEndData{Winner: entity.SymbolO})

		assert.Nil(t, session.CurrentGame())
	})
}

func TestSession_MakeMove(t *testing.T) {
	t.Run("Sends the move and never touches the board", func(t *testing.T) {
		// Given: a live game with the local player to move
		session, sender := newTestSession(t)
		session.HandleStart(startData("g1"))

		// When: making a move
		session.MakeMove(4, 5)

		// Then: the frame went out but the board is untouched until the echo
		sent := sender.all()
		require.Len(t, sent, 1)
		assert.Equal(t, protocol.TypeGameMove, sent[0].Type)
		assert.Equal(t, protocol.MoveData{GameID: "g1", Row: 4, Col: 5}, sent[0].Data)
		assert.Equal(t, entity.EmptyCell, session.CurrentGame().Board[4][5])
	})

	t.Run("Silently ignores a move with no game", func(t *testing.T) {
		session, sender := newTestSession(t)

		session.MakeMove(0, 0)

		assert.Empty(t, sender.all())
	})

	t.Run("Silently ignores a move out of turn", func(t *testing.T) {
		// Given: a game where the opponent holds the turn
		session, sender := newTestSession(t)
		data := startData("g1")
		data.CurrentPlayer = entity.SymbolO
		session.HandleStart(data)

		// When: moving anyway
		session.MakeMove(0, 0)

		// Then: nothing is sent
		assert.Empty(t, sender.all())
	})

	t.Run("Silently ignores an out-of-bounds move", func(t *testing.T) {
		session, sender := newTestSession(t)
		session.HandleStart(startData("g1"))

		session.MakeMove(entity.BoardSize, 0)

		assert.Empty(t, sender.all())
	})
}

func TestSession_QuitGame(t *testing.T) {
	t.Run("Clears local state before any acknowledgment", func(t *testing.T) {
		// Given: a live game
		session, sender := newTestSession(t)
		session.HandleStart(startData("g1"))

		// When: quitting
		session.QuitGame()

		// Then: the game is gone locally and the quit frame went out
		assert.Nil(t, session.CurrentGame())
		sent := sender.all()
		require.Len(t, sent, 1)
		assert.Equal(t, protocol.TypeQuitGame, sent[0].Type)
	})

	t.Run("Quitting with no game is a no-op", func(t *testing.T) {
		session, sender := newTestSession(t)

		session.QuitGame()
		session.QuitGame()

		assert.Empty(t, sender.all())
	})
}

func TestSession_PlayAgain(t *testing.T) {
	t.Run("A peer proposal surfaces as a one-shot signal", func(t *testing.T) {
		// Given: a finished game and a peer rematch proposal
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))
		session.HandlePlayAgain(entity.PlayAgainRequest{GameID: "g1", RequesterUserID: 2})

		// When: consuming it twice
		first := session.ConsumePlayAgain()
		second := session.ConsumePlayAgain()

		// Then: only the first consumption sees it
		require.NotNil(t, first)
		assert.Equal(t, int64(2), first.RequesterUserID)
		assert.Nil(t, second)
	})

	t.Run("The local user's own echo is ignored", func(t *testing.T) {
		session, _ := newTestSession(t)

		session.HandlePlayAgain(entity.PlayAgainRequest{GameID: "g1", RequesterUserID: localUserID})

		assert.Nil(t, session.ConsumePlayAgain())
	})

	t.Run("RequestPlayAgain references the live game", func(t *testing.T) {
		// Given: a finished game
		session, sender := newTestSession(t)
		session.HandleStart(startData("g1"))

		// When: proposing a rematch
		session.RequestPlayAgain()

		// Then: the frame carries the game id
		sent := sender.all()
		require.Len(t, sent, 1)
		assert.Equal(t, protocol.TypePlayAgainRequest, sent[0].Type)
		assert.Equal(t, protocol.GameRef{GameID: "g1"}, sent[0].Data)
	})

	t.Run("RequestPlayAgain with no game is a no-op", func(t *testing.T) {
		session, sender := newTestSession(t)

		session.RequestPlayAgain()

		assert.Empty(t, sender.all())
	})

	t.Run("A new game start clears a stale proposal", func(t *testing.T) {
		// Given: a pending proposal
		session, _ := newTestSession(t)
		session.HandleStart(startData("g1"))
		session.HandlePlayAgain(entity.PlayAgainRequest{GameID: "g1", RequesterUserID: 2})

		// When: the rematch actually starts
		session.HandleStart(startData("g2"))

		// Then: the signal is gone
		assert.Nil(t, session.ConsumePlayAgain())
	})
}

func TestSession_SubscribeGame(t *testing.T) {
	// Given: a subscriber primed with no game
	session, _ := newTestSession(t)
	games, cancel := session.SubscribeGame()
	defer cancel()
	assert.Nil(t, <-games)

	// When: a game starts
	session.HandleStart(startData("g1"))

	// Then: the subscriber receives it
	current := <-games
	require.NotNil(t, current)
	assert.Equal(t, "g1", current.ID)
}
