package notifier

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
)

// Telegram sends reminder digests through a bot. Credentials are read from
// the settings on every call so updates take effect without a restart.
type Telegram struct {
	endpoint string
	client   *http.Client

	mu    sync.Mutex
	bot   *tgbotapi.BotAPI
	token string
}

type TelegramOption func(*Telegram)

// WithTelegramEndpoint overrides the Bot API endpoint format
func WithTelegramEndpoint(endpoint string) TelegramOption {
	return func(t *Telegram) {
		t.endpoint = endpoint
	}
}

func WithTelegramHTTPClient(client *http.Client) TelegramOption {
	return func(t *Telegram) {
		t.client = client
	}
}

func NewTelegram(opts ...TelegramOption) *Telegram {
	t := &Telegram{
		endpoint: tgbotapi.APIEndpoint,
		client:   &http.Client{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, settings *model.Settings, message string) error {
	if settings == nil || !settings.HasTelegram() {
		return goerr.Wrap(model.ErrNotConfigured, "telegram bot token or chat ID is not set")
	}
	if err := ctx.Err(); err != nil {
		return goerr.Wrap(err, "telegram notification cancelled")
	}

	bot, err := t.botFor(settings.TelegramBotToken)
	if err != nil {
		return err
	}

	msg, err := newTelegramMessage(settings.TelegramChatID, message)
	if err != nil {
		return err
	}
	if _, err := bot.Send(msg); err != nil {
		return goerr.Wrap(err, "failed to send telegram message", goerr.V("chat_id", settings.TelegramChatID))
	}
	return nil
}

// botFor reuses the bot while the token is unchanged
func (t *Telegram) botFor(token string) (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil && t.token == token {
		return t.bot, nil
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, t.endpoint, t.client)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create telegram bot")
	}
	t.bot = bot
	t.token = token
	return bot, nil
}

// newTelegramMessage accepts a numeric chat ID or an @channel name
func newTelegramMessage(chatID, text string) (tgbotapi.MessageConfig, error) {
	chatID = strings.TrimSpace(chatID)
	if strings.HasPrefix(chatID, "@") {
		return tgbotapi.NewMessageToChannel(chatID, text), nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return tgbotapi.MessageConfig{}, goerr.Wrap(model.ErrValidation, "invalid telegram chat ID", goerr.V("chat_id", chatID))
	}
	return tgbotapi.NewMessage(id, text), nil
}
