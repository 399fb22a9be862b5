package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nguyengoctu/portfolio-realtime/internal/auth"
	"github.com/nguyengoctu/portfolio-realtime/internal/entity"
)

var ErrUnexpectedStatus = errors.New("history request returned unexpected status")

// HistoryClient fetches persisted conversation history over the ordinary
// REST boundary, outside the live channel. The backend returns the last 24
// hours of messages between the two users.
type HistoryClient struct {
	logger  *slog.Logger
	client  *http.Client
	baseURL string
	tokens  auth.TokenAccessor
}

func NewHistoryClient(logger *slog.Logger, baseURL string, timeout time.Duration, tokens auth.TokenAccessor) *HistoryClient {
	return &HistoryClient{
		logger:  logger.With("component", "history"),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		tokens:  tokens,
	}
}

// historyMessage mirrors the REST response shape, which spells the read
// flag differently from the live frames.
type historyMessage struct {
	ID         int64            `json:"id"`
	SenderID   int64            `json:"senderId"`
	ReceiverID int64            `json:"receiverId"`
	Message    string           `json:"message"`
	Timestamp  entity.Timestamp `json:"timestamp"`
	IsRead     bool             `json:"isRead"`
}

func (that *HistoryClient) Load(ctx context.Context, localUserID, peerID int64) ([]entity.ChatMessage, error) {
	url := fmt.Sprintf("%s/api/chat/messages/%d/%d", that.baseURL, localUserID, peerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build history request: %w", err)
	}

	if token := that.tokens.Get(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := that.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	var raw []historyMessage
	if err = json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode history response: %w", err)
	}

	messages := make([]entity.ChatMessage, 0, len(raw))
	for _, message := range raw {
		messages = append(messages, entity.ChatMessage{
			ID:         message.ID,
			SenderID:   message.SenderID,
			ReceiverID: message.ReceiverID,
			Message:    message.Message,
			Timestamp:  message.Timestamp,
			Read:       message.IsRead,
		})
	}

	return messages, nil
}
