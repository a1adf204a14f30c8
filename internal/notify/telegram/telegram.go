// Package telegram delivers job postings to a Telegram chat or channel.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/JakeFAU/careerwatch/internal/crawler"
)

// Config holds the bot credentials and destination.
type Config struct {
	Token string
	// ChatID is a numeric chat ID or an @channel username.
	ChatID string
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier sends Markdown messages through the Bot API.
type Notifier struct {
	bot      sender
	chatID   int64
	username string
}

// New authenticates against the Bot API and returns a Notifier.
func New(cfg Config) (*Notifier, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("telegram token is required")
	}
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return NewWithSender(bot, cfg.ChatID)
}

// NewWithSender builds a Notifier around an existing client (primarily for testing).
func NewWithSender(bot sender, chatID string) (*Notifier, error) {
	if bot == nil {
		return nil, fmt.Errorf("telegram client is required")
	}
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, fmt.Errorf("telegram chat id is required")
	}
	n := &Notifier{bot: bot}
	if strings.HasPrefix(chatID, "@") {
		n.username = chatID
		return n, nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram chat id %q: %w", chatID, err)
	}
	n.chatID = id
	return n, nil
}

// Notify sends message. Any API error is reported as a NotifyFailure.
func (n *Notifier) Notify(ctx context.Context, posting crawler.JobPosting, message string) error {
	if err := ctx.Err(); err != nil {
		return crawler.NewError(crawler.KindNotifyFailure, "telegram.notify", posting.ApplyLink, err)
	}
	var msg tgbotapi.MessageConfig
	if n.username != "" {
		msg = tgbotapi.NewMessageToChannel(n.username, message)
	} else {
		msg = tgbotapi.NewMessage(n.chatID, message)
	}
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return crawler.NewError(crawler.KindNotifyFailure, "telegram.notify", posting.ApplyLink, err)
	}
	return nil
}
