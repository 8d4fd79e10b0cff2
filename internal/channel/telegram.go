package channel

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"relaybot/internal/domain"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram implements domain.Channel for Telegram Bot.
type Telegram struct {
	token  string
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// TelegramConfig configures the Telegram channel.
type TelegramConfig struct {
	Token  string
	Logger *slog.Logger
}

// NewTelegram creates a new Telegram channel handler.
func NewTelegram(cfg TelegramConfig) *Telegram {
	return &Telegram{
		token:  cfg.Token,
		logger: cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
// It blocks until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(bus, update)
		}
	}
}

// Stop is a no-op: the bot stops when Start's context is cancelled.
// Calling StopReceivingUpdates twice panics.
func (t *Telegram) Stop() error { return nil }

func (t *Telegram) handleUpdate(bus domain.MessageBus, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	chatID := msg.Chat.ID

	t.logger.Info("telegram message received",
		"user_id", msg.From.ID,
		"chat_id", chatID,
		"text_len", len(msg.Text),
	)

	attachments := t.collectAttachments(msg)

	content := msg.Text
	if content == "" {
		content = msg.Caption
	}

	bus.Publish(domain.InboundMessage{
		Channel:     "telegram",
		ChatID:      strconv.FormatInt(chatID, 10),
		SenderID:    strconv.FormatInt(msg.From.ID, 10),
		SenderName:  msg.From.UserName,
		FromBot:     msg.From.IsBot,
		Content:     content,
		Attachments: attachments,
		ReplyTo:     &telegramConversation{bot: t.bot, chatID: chatID},
		Timestamp:   time.Unix(int64(msg.Date), 0),
	})
}

// collectAttachments maps Telegram voice, audio, and document payloads to
// attachments with a resolvable download URL.
func (t *Telegram) collectAttachments(msg *tgbotapi.Message) []domain.Attachment {
	var attachments []domain.Attachment

	if v := msg.Voice; v != nil {
		if url, err := t.bot.GetFileDirectURL(v.FileID); err == nil {
			mime := v.MimeType
			if mime == "" {
				mime = "audio/ogg"
			}
			attachments = append(attachments, domain.Attachment{
				Filename:    "voice.ogg",
				ContentType: mime,
				Size:        int64(v.FileSize),
				URL:         url,
			})
		} else {
			t.logger.Error("failed to resolve voice file", "error", err)
		}
	}

	if a := msg.Audio; a != nil {
		if url, err := t.bot.GetFileDirectURL(a.FileID); err == nil {
			name := a.FileName
			if name == "" {
				name = "audio.mp3"
			}
			mime := a.MimeType
			if mime == "" {
				mime = "audio/mpeg"
			}
			attachments = append(attachments, domain.Attachment{
				Filename:    name,
				ContentType: mime,
				Size:        int64(a.FileSize),
				URL:         url,
			})
		} else {
			t.logger.Error("failed to resolve audio file", "error", err)
		}
	}

	if d := msg.Document; d != nil {
		if url, err := t.bot.GetFileDirectURL(d.FileID); err == nil {
			attachments = append(attachments, domain.Attachment{
				Filename:    d.FileName,
				ContentType: d.MimeType,
				Size:        int64(d.FileSize),
				URL:         url,
			})
		} else {
			t.logger.Error("failed to resolve document file", "error", err)
		}
	}

	return attachments
}

// telegramConversation replies into the chat an inbound message came from.
type telegramConversation struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func (c *telegramConversation) SendText(_ context.Context, text string) error {
	if _, err := c.bot.Send(tgbotapi.NewMessage(c.chatID, text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

func (c *telegramConversation) SendFile(_ context.Context, filename string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(c.chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	if _, err := c.bot.Send(doc); err != nil {
		return fmt.Errorf("telegram file send: %w", err)
	}
	return nil
}

func (c *telegramConversation) NotifyProgress(_ context.Context, text string) (domain.ProgressNotice, error) {
	sent, err := c.bot.Send(tgbotapi.NewMessage(c.chatID, text))
	if err != nil {
		return nil, fmt.Errorf("telegram notice: %w", err)
	}
	return &telegramNotice{bot: c.bot, chatID: c.chatID, messageID: sent.MessageID}, nil
}

type telegramNotice struct {
	bot       *tgbotapi.BotAPI
	chatID    int64
	messageID int
}

func (n *telegramNotice) Edit(_ context.Context, text string) error {
	if _, err := n.bot.Send(tgbotapi.NewEditMessageText(n.chatID, n.messageID, text)); err != nil {
		return fmt.Errorf("telegram notice edit: %w", err)
	}
	return nil
}

func (n *telegramNotice) Delete(_ context.Context) error {
	if _, err := n.bot.Request(tgbotapi.NewDeleteMessage(n.chatID, n.messageID)); err != nil {
		return fmt.Errorf("telegram notice delete: %w", err)
	}
	return nil
}
