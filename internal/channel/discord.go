// Package channel holds the platform adapters. Each adapter turns platform
// events into domain.InboundMessage values and materializes a
// domain.Conversation per event for replies.
package channel

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"relaybot/internal/domain"

	"github.com/bwmarrin/discordgo"
)

// Discord implements domain.Channel for Discord.
type Discord struct {
	token          string
	guildID        string
	messageContent bool
	session        *discordgo.Session
	logger         *slog.Logger
}

// DiscordConfig configures the Discord channel.
type DiscordConfig struct {
	Token   string
	GuildID string // optional: restrict to one guild
	// MessageContent requests the privileged message-content intent. Without
	// it the bot only sees attachments and mentions.
	MessageContent bool
	Logger         *slog.Logger
}

// NewDiscord creates a new Discord channel handler.
func NewDiscord(cfg DiscordConfig) *Discord {
	return &Discord{
		token:          cfg.Token,
		guildID:        cfg.GuildID,
		messageContent: cfg.MessageContent,
		logger:         cfg.Logger,
	}
}

func (d *Discord) Name() string { return "discord" }

// Start connects to Discord using a bot token and begins listening.
// It blocks until ctx is cancelled.
func (d *Discord) Start(ctx context.Context, bus domain.MessageBus) error {
	session, err := discordgo.New("Bot " + d.token)
	if err != nil {
		return fmt.Errorf("discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentsDirectMessages
	if d.messageContent {
		session.Identify.Intents |= discordgo.IntentsMessageContent
	}

	d.session = session

	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		fromBot := m.Author.Bot || m.Author.ID == s.State.User.ID

		if d.guildID != "" && m.GuildID != d.guildID {
			return
		}

		d.logger.Info("discord message received",
			"author", m.Author.Username,
			"channel_id", m.ChannelID,
			"content_len", len(m.Content),
			"attachments", len(m.Attachments),
		)

		attachments := make([]domain.Attachment, 0, len(m.Attachments))
		for _, a := range m.Attachments {
			attachments = append(attachments, domain.Attachment{
				Filename:    a.Filename,
				ContentType: a.ContentType,
				Size:        int64(a.Size),
				URL:         a.URL,
			})
		}

		bus.Publish(domain.InboundMessage{
			Channel:     "discord",
			ChatID:      m.ChannelID,
			SenderID:    m.Author.ID,
			SenderName:  m.Author.Username,
			FromBot:     fromBot,
			Content:     m.Content,
			Attachments: attachments,
			ReplyTo:     &discordConversation{session: s, channelID: m.ChannelID},
			Timestamp:   time.Now(),
		})
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord connect: %w", err)
	}

	d.logger.Info("discord bot connected", "user", session.State.User.Username)

	<-ctx.Done()
	d.logger.Info("discord bot disconnecting")
	return session.Close()
}

// Stop is a no-op: the session closes when Start's context is cancelled.
func (d *Discord) Stop() error { return nil }

// discordConversation replies into the channel an inbound message came from.
type discordConversation struct {
	session   *discordgo.Session
	channelID string
}

func (c *discordConversation) SendText(_ context.Context, text string) error {
	if _, err := c.session.ChannelMessageSend(c.channelID, text); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}

func (c *discordConversation) SendFile(_ context.Context, filename string, data []byte, caption string) error {
	_, err := c.session.ChannelFileSendWithMessage(c.channelID, caption, filename, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("discord file send: %w", err)
	}
	return nil
}

func (c *discordConversation) NotifyProgress(_ context.Context, text string) (domain.ProgressNotice, error) {
	msg, err := c.session.ChannelMessageSend(c.channelID, text)
	if err != nil {
		return nil, fmt.Errorf("discord notice: %w", err)
	}
	return &discordNotice{session: c.session, channelID: c.channelID, messageID: msg.ID}, nil
}

type discordNotice struct {
	session   *discordgo.Session
	channelID string
	messageID string
}

func (n *discordNotice) Edit(_ context.Context, text string) error {
	if _, err := n.session.ChannelMessageEdit(n.channelID, n.messageID, text); err != nil {
		return fmt.Errorf("discord notice edit: %w", err)
	}
	return nil
}

func (n *discordNotice) Delete(_ context.Context) error {
	if err := n.session.ChannelMessageDelete(n.channelID, n.messageID); err != nil {
		return fmt.Errorf("discord notice delete: %w", err)
	}
	return nil
}
