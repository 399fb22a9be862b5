// Package session is the public surface of the real-time layer: one inbound
// dispatch point feeding three siloed state containers (presence, messages,
// game) and the outbound action methods the UI calls.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nguyengoctu/portfolio-realtime/internal/auth"
	"github.com/nguyengoctu/portfolio-realtime/internal/chat"
	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
	"github.com/nguyengoctu/portfolio-realtime/internal/game"
	"github.com/nguyengoctu/portfolio-realtime/internal/presence"
	"github.com/nguyengoctu/portfolio-realtime/internal/protocol"
	"github.com/nguyengoctu/portfolio-realtime/internal/realtime"
)

type Config struct {
	ServerURL            string
	LocalUserID          int64
	ReconnectMaxAttempts int
	ReconnectDelay       time.Duration
	HistoryTimeout       time.Duration
}

type Session struct {
	logger      *slog.Logger
	localUserID int64

	conn     *realtime.Manager
	presence *presence.Tracker
	messages *chat.Store
	game     *game.Session
	history  *chat.HistoryClient

	mu         sync.Mutex
	activePeer int64
}

func New(logger *slog.Logger, conf Config, tokens auth.TokenAccessor) (*Session, error) {
	that := &Session{
		logger:      logger.With("component", "session"),
		localUserID: conf.LocalUserID,
		presence:    presence.NewTracker(conf.LocalUserID),
		messages:    chat.NewStore(conf.LocalUserID),
		history:     chat.NewHistoryClient(logger, conf.ServerURL, conf.HistoryTimeout, tokens),
	}

	manager, err := realtime.NewManager(logger, conf.ServerURL, conf.ReconnectMaxAttempts, conf.ReconnectDelay, that.Dispatch)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection manager: %w", err)
	}

	that.conn = manager
	that.game = game.NewSession(logger, conf.LocalUserID, manager)

	return that, nil
}

// Dispatch routes one inbound frame to the single container owning its
// event type; no type ever reaches more than one container. Frames it
// cannot make sense of are logged and dropped.
func (that *Session) Dispatch(message *protocol.Inbound) {
	log := that.logger.With("method", "Dispatch")

	switch message.Type {
	case protocol.TypeOnlineUsers:
		that.presence.ReplaceAll(message.Users)

	case protocol.TypeUserJoined:
		if message.User == nil {
			log.Error("user_joined frame without user")
			return
		}
		that.presence.Add(*message.User)

	case protocol.TypeUserLeft:
		that.presence.Remove(message.UserID)

	case protocol.TypeChatMessage:
		if message.Message == nil {
			log.Error("chat_message frame without message")
			return
		}
		that.messages.Append(*message.Message)
		that.flagUnread(message.Message.SenderID)

	case protocol.TypeGameInvitation:
		var invitation entity.Invitation
		if err := json.Unmarshal(message.Data, &invitation); err != nil {
			log.Error("dropping malformed invitation", "error", err)
			return
		}
		that.game.HandleInvitation(invitation)

	case protocol.TypeGameStart:
		var data protocol.GameStartData
		if err := json.Unmarshal(message.Data, &data); err != nil {
			log.Error("dropping malformed game_start", "error", err)
			return
		}
		that.game.HandleStart(data)

	case protocol.TypeGameMove:
		var data protocol.GameMoveData
		if err := json.Unmarshal(message.Data, &data); err != nil {
			log.Error("dropping malformed game_move", "error", err)
			return
		}
		that.game.HandleMove(data)

	case protocol.TypeGameEnd:
		var data protocol.GameEndData
		if err := json.Unmarshal(message.Data, &data); err != nil {
			log.Error("dropping malformed game_end", "error", err)
			return
		}
		that.game.HandleEnd(data)

	case protocol.TypePlayAgainRequest:
		var request entity.PlayAgainRequest
		if err := json.Unmarshal(message.Data, &request); err != nil {
			log.Error("dropping malformed play_again_request", "error", err)
			return
		}
		that.game.HandlePlayAgain(request)

	default:
		log.Warn("dropping frame of unknown type", "type", message.Type)
	}
}

func (that *Session) Connect() {
	that.conn.Connect(that.localUserID)
}

// Disconnect tears down the transport and the peer list. Chat history and a
// finished game's last known state survive: disconnection is a transport
// event, not a data-clearing one.
func (that *Session) Disconnect() {
	that.conn.Disconnect()
	that.presence.Clear()
}

// Connected is the UI-facing status; degraded-simulated mode reports as
// connected.
func (that *Session) Connected() bool {
	return that.conn.Connected()
}

func (that *Session) Status() realtime.Status {
	return that.conn.Status()
}

func (that *Session) SubscribeStatus() (<-chan realtime.Status, func()) {
	return that.conn.SubscribeStatus()
}

// SendChatMessage transmits over the live channel when it is open.
// Otherwise the text is captured as a provisional local message so the
// sender's own view stays complete; in degraded mode the receiver gets
// nothing, which is the documented limitation of that mode.
func (that *Session) SendChatMessage(receiverID int64, text string) {
	if text == "" {
		return
	}

	if that.conn.Open() {
		that.conn.Send(protocol.Chat(receiverID, text))
		return
	}

	that.messages.AppendLocal(receiverID, text)
}

// LoadHistory fetches persisted messages for one peer over the REST
// boundary and merges them into the log. Failure is logged and otherwise
// ignored; chat continues with live-only data.
func (that *Session) LoadHistory(ctx context.Context, peerID int64) {
	log := that.logger.With("method", "LoadHistory")

	history, err := that.history.Load(ctx, that.localUserID, peerID)
	if err != nil {
		log.Error("failed to load chat history", "peerID", peerID, "error", err)
		return
	}

	added := that.messages.MergeHistory(history)
	log.Debug("merged chat history", "peerID", peerID, "fetched", len(history), "added", added)
}

// OpenChat makes a peer's conversation the active view: their messages are
// marked read and their unread flag cleared.
func (that *Session) OpenChat(peerID int64) {
	that.mu.Lock()
	that.activePeer = peerID
	that.mu.Unlock()

	that.messages.MarkRead(peerID)
	that.presence.ClearUnread(peerID)
}

func (that *Session) CloseChat() {
	that.mu.Lock()
	that.activePeer = 0
	that.mu.Unlock()
}

func (that *Session) Peers() []entity.Peer {
	return that.presence.Peers()
}

func (that *Session) PeerCount() int {
	return that.presence.Count()
}

func (that *Session) UnreadCount() int {
	return that.presence.UnreadCount()
}

func (that *Session) SubscribePeers() (<-chan []entity.Peer, func()) {
	return that.presence.Subscribe()
}

func (that *Session) MessagesWith(peerID int64) []entity.ChatMessage {
	return that.messages.MessagesWith(peerID)
}

func (that *Session) SubscribeMessages() (<-chan []entity.ChatMessage, func()) {
	return that.messages.Subscribe()
}

func (that *Session) InvitePlayer(toUserID int64) {
	that.game.Invite(toUserID)
}

func (that *Session) AcceptInvitation(gameID string) {
	that.game.AcceptInvitation(gameID)
}

func (that *Session) DeclineInvitation(gameID string) {
	that.game.DeclineInvitation(gameID)
}

func (that *Session) RemoveInvitation(gameID string) {
	that.game.RemoveInvitation(gameID)
}

func (that *Session) Invitations() []entity.Invitation {
	return that.game.Invitations()
}

func (that *Session) MakeMove(row, col int) {
	that.game.MakeMove(row, col)
}

func (that *Session) QuitGame() {
	that.game.QuitGame()
}

func (that *Session) RequestPlayAgain() {
	that.game.RequestPlayAgain()
}

func (that *Session) ConsumePlayAgain() *entity.PlayAgainRequest {
	return that.game.ConsumePlayAgain()
}

func (that *Session) CanMakeMove(userID int64) bool {
	return that.game.CanMakeMove(userID)
}

func (that *Session) CurrentGame() *entity.Game {
	return that.game.CurrentGame()
}

func (that *Session) SubscribeGame() (<-chan *entity.Game, func()) {
	return that.game.SubscribeGame()
}

func (that *Session) SubscribeInvitations() (<-chan []entity.Invitation, func()) {
	return that.game.SubscribeInvitations()
}

func (that *Session) SubscribePlayAgain() (<-chan *entity.PlayAgainRequest, func()) {
	return that.game.SubscribePlayAgain()
}

// flagUnread marks the sender as unread unless the message is the local
// user's own echo or that peer's chat window is the active view, in which
// case the message is read immediately.
func (that *Session) flagUnread(senderID int64) {
	if senderID == that.localUserID {
		return
	}

	that.mu.Lock()
	active := that.activePeer
	that.mu.Unlock()

	if senderID == active {
		that.messages.MarkRead(senderID)
		return
	}

	that.presence.MarkUnread(senderID)
}
