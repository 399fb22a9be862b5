package application

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nguyengoctu/portfolio-realtime/internal/auth"
	"github.com/nguyengoctu/portfolio-realtime/internal/config"
	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
	"github.com/nguyengoctu/portfolio-realtime/internal/session"
)

var ErrUserNotConfigured = errors.New("user id is not configured")

// RunApp - runs the terminal client: presence, chat and game updates stream
// to stdout, commands come from stdin.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	if conf.User.ID == 0 {
		return ErrUserNotConfigured
	}

	tokens := auth.NewMemoryTokenStore(conf.User.Token)

	sess, err := session.New(logger, session.Config{
		ServerURL:            conf.ServerURL,
		LocalUserID:          conf.User.ID,
		ReconnectMaxAttempts: conf.Reconnect.MaxAttempts,
		ReconnectDelay:       conf.Reconnect.Delay,
		HistoryTimeout:       conf.History.Timeout,
	}, tokens)
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}

	sess.Connect()
	defer sess.Disconnect()

	go watchPresence(ctx, sess)
	go watchMessages(ctx, sess, conf.User.ID)
	go watchGame(ctx, sess, conf.User.ID)

	commands := make(chan string)
	go readCommands(ctx, commands)

	fmt.Printf("connected as %s (#%d); type /help for commands\n", conf.User.Name, conf.User.ID)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-commands:
			if !ok {
				return nil
			}
			handleCommand(ctx, sess, line)
		}
	}
}

func readCommands(ctx context.Context, commands chan<- string) {
	defer close(commands)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		select {
		case commands <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func watchPresence(ctx context.Context, sess *session.Session) {
	peers, cancel := sess.SubscribePeers()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case current := <-peers:
			names := make([]string, 0, len(current))
			for _, peer := range current {
				name := fmt.Sprintf("%s(#%d)", peer.Name, peer.ID)
				if peer.HasUnreadMessages {
					name += "*"
				}
				names = append(names, name)
			}
			fmt.Printf("online: [%s]\n", strings.Join(names, ", "))
		}
	}
}

func watchMessages(ctx context.Context, sess *session.Session, localUserID int64) {
	messages, cancel := sess.SubscribeMessages()
	defer cancel()

	seen := 0
	for {
		select {
		case <-ctx.Done():
			return
		case entries := <-messages:
			for ; seen < len(entries); seen++ {
				message := entries[seen]
				if message.SenderID == localUserID {
					continue
				}
				fmt.Printf("#%d: %s\n", message.SenderID, message.Message)
			}
		}
	}
}

func watchGame(ctx context.Context, sess *session.Session, localUserID int64) {
	games, cancelGames := sess.SubscribeGame()
	defer cancelGames()

	invitations, cancelInvitations := sess.SubscribeInvitations()
	defer cancelInvitations()

	rematches, cancelRematches := sess.SubscribePlayAgain()
	defer cancelRematches()

	for {
		select {
		case <-ctx.Done():
			return
		case game := <-games:
			printGame(game, localUserID)
		case pending := <-invitations:
			for _, invitation := range pending {
				fmt.Printf("invitation from %s(#%d), game %s: /accept %s or /decline %s\n",
					invitation.FromUser.Name, invitation.FromUser.ID,
					invitation.GameID, invitation.GameID, invitation.GameID)
			}
		case request := <-rematches:
			if request != nil {
				fmt.Printf("#%d wants a rematch, /again to accept\n", request.RequesterUserID)
			}
		}
	}
}

func printGame(game *entity.Game, localUserID int64) {
	if game == nil {
		return
	}

	fmt.Println(renderBoard(&game.Board))

	switch {
	case game.IsFinished() && game.Winner != "":
		fmt.Printf("game over, %s wins (%d:%d, %d draws)\n", game.Winner,
			game.Scoreboard.Player1Wins, game.Scoreboard.Player2Wins, game.Scoreboard.Draws)
	case game.IsFinished():
		fmt.Println("game over, draw")
	case game.CanMakeMove(localUserID):
		fmt.Println("your turn, /move <row> <col>")
	default:
		fmt.Printf("waiting for %s\n", game.Turn)
	}
}

func renderBoard(board *entity.Board) string {
	var sb strings.Builder

	for _, row := range board {
		for _, cell := range row {
			if cell == entity.EmptyCell {
				sb.WriteString(". ")
				continue
			}
			sb.WriteString(cell + " ")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func handleCommand(ctx context.Context, sess *session.Session, line string) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return
	}

	switch fields[0] {
	case "/help":
		fmt.Println("/msg <id> <text>, /open <id>, /history <id>, /invite <id>, /accept <game>, /decline <game>, /move <row> <col>, /quit-game, /again, /peers")
	case "/msg":
		if len(fields) < 3 {
			return
		}
		receiverID, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return
		}
		sess.SendChatMessage(receiverID, strings.Join(fields[2:], " "))
	case "/open":
		if peerID, err := parseID(fields); err == nil {
			sess.OpenChat(peerID)
			for _, message := range sess.MessagesWith(peerID) {
				fmt.Printf("#%d: %s\n", message.SenderID, message.Message)
			}
		}
	case "/history":
		if peerID, err := parseID(fields); err == nil {
			sess.LoadHistory(ctx, peerID)
		}
	case "/invite":
		if peerID, err := parseID(fields); err == nil {
			sess.InvitePlayer(peerID)
		}
	case "/accept":
		if len(fields) == 2 {
			sess.AcceptInvitation(fields[1])
		}
	case "/decline":
		if len(fields) == 2 {
			sess.DeclineInvitation(fields[1])
		}
	case "/move":
		if len(fields) != 3 {
			return
		}
		row, errRow := strconv.Atoi(fields[1])
		col, errCol := strconv.Atoi(fields[2])
		if errRow == nil && errCol == nil {
			sess.MakeMove(row, col)
		}
	case "/quit-game":
		sess.QuitGame()
	case "/again":
		sess.ConsumePlayAgain()
		sess.RequestPlayAgain()
	case "/peers":
		fmt.Printf("%d online, %d unread\n", sess.PeerCount(), sess.UnreadCount())
	default:
		fmt.Println("unknown command, /help for help")
	}
}

func parseID(fields []string) (int64, error) {
	if len(fields) != 2 {
		return 0, strconv.ErrSyntax
	}

	return strconv.ParseInt(fields[1], 10, 64)
}
