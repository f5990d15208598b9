package telegram

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"CitationWatch/internal/ports"
)

// maxMessageRunes is the Bot API limit for a single text message.
const maxMessageRunes = 4096

// Notifier mirrors alert digests to a Telegram chat via the bot API.
type Notifier struct {
	botToken string
	chatID   string
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	api *tgbotapi.BotAPI
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier. The bot is contacted on first publish.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// PublishAlerts posts a plain-text message to the configured chat.
func (n *Notifier) PublishAlerts(ctx context.Context, text string) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}
	chatID, err := strconv.ParseInt(n.chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram chat id %q: %w", n.chatID, err)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	api, err := n.bot(ctx)
	if err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, truncate(text, maxMessageRunes))
	msg.DisableWebPagePreview = true

	if _, err := api.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// bot lazily authenticates; the caller holds n.mu.
func (n *Notifier) bot(ctx context.Context) (*tgbotapi.BotAPI, error) {
	client := contextClient{ctx: ctx, client: n.client}
	if n.api != nil {
		n.api.Client = client
		return n.api, nil
	}

	api, err := tgbotapi.NewBotAPIWithClient(n.botToken, n.endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	n.api = api
	return api, nil
}

// contextClient binds outgoing bot API requests to the caller's context.
type contextClient struct {
	ctx    context.Context
	client *http.Client
}

func (c contextClient) Do(req *http.Request) (*http.Response, error) {
	return c.client.Do(req.WithContext(c.ctx))
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
