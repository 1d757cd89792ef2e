package telegram

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"backtest-engine/config"
	"backtest-engine/pkg/logger"
	"backtest-engine/pkg/ratelimit"

	"golang.org/x/time/rate"
	"gopkg.in/telebot.v3"
)

var ErrDisabled = errors.New("telegram notifier disabled")

// Notifier pushes Markdown messages to Telegram chats. It never polls for
// updates. Sends are throttled globally and per chat.
type Notifier struct {
	cfg           *config.TelegramConfig
	log           *logger.Logger
	bot           *telebot.Bot
	globalLimiter *rate.Limiter
	chatLimiters  *ratelimit.LimiterStore
	mu            sync.Mutex
}

// NewNotifier returns a notifier. With telegram disabled it returns a
// notifier whose sends report ErrDisabled. apiURL overrides the Telegram API
// endpoint and may be empty.
func NewNotifier(cfg *config.TelegramConfig, log *logger.Logger, apiURL string) (*Notifier, error) {
	n := &Notifier{cfg: cfg, log: log}
	if !cfg.Enabled {
		return n, nil
	}

	timeout := cfg.TimeoutDuration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	bot, err := telebot.NewBot(telebot.Settings{
		Client:  &http.Client{Timeout: timeout},
		URL:     apiURL,
		Token:   cfg.BotToken,
		Offline: true,
		OnError: func(err error, _ telebot.Context) {
			log.Error("Telegram bot error", logger.ErrorField(err))
		},
	})
	if err != nil {
		return nil, err
	}

	perSecond := cfg.MaxGlobalRequestPerSecond
	if perSecond <= 0 {
		perSecond = 20
	}
	n.bot = bot
	n.globalLimiter = rate.NewLimiter(rate.Limit(perSecond), perSecond)
	n.chatLimiters = ratelimit.NewLimiterStore(rate.Limit(1), 3)
	return n, nil
}

func (n *Notifier) Enabled() bool {
	return n != nil && n.bot != nil
}

// SendMessage sends a Markdown message to chatID.
func (n *Notifier) SendMessage(ctx context.Context, chatID int64, message string) error {
	if !n.Enabled() {
		return ErrDisabled
	}

	if err := n.globalLimiter.Wait(ctx); err != nil {
		return err
	}
	if err := n.chatLimiters.GetLimiter(strconv.FormatInt(chatID, 10)).Wait(ctx); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if _, err := n.bot.Send(&telebot.Chat{ID: chatID}, message, telebot.ModeMarkdown); err != nil {
		n.log.ErrorContext(ctx, "Failed to send telegram message", logger.ErrorField(err))
		return err
	}
	return nil
}

// SendAlert sends message to the configured operator chat.
func (n *Notifier) SendAlert(ctx context.Context, message string) error {
	if !n.Enabled() {
		return ErrDisabled
	}
	return n.SendMessage(ctx, n.cfg.ChatID, message)
}
