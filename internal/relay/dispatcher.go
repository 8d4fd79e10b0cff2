// Package relay consumes inbound chat messages, forwards them to the
// automation endpoint, and delivers the rendered reply back to the
// conversation.
package relay

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"relaybot/internal/domain"
	"relaybot/internal/fileconv"
	"relaybot/internal/metrics"
	"relaybot/internal/render"
	"relaybot/internal/webhook"
)

const (
	defaultConcurrency = 3
	defaultMaxFileSize = 10 * 1024 * 1024

	transcribingNotice   = "🎤 Transcription en cours..."
	processingFileNotice = "📎 Traitement du fichier en cours..."
	transcriptionFailed  = "❌ Erreur lors de la transcription"
	ttsCaption           = "🎵 Voici la réponse TTS :"
)

// WebhookCaller sends one signed request to the automation endpoint.
type WebhookCaller interface {
	Send(ctx context.Context, req webhook.Request) (*webhook.Response, error)
}

// Transcriber converts audio bytes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, data []byte, filename string) (string, error)
}

// DispatcherConfig holds all dependencies and tuning parameters for the dispatcher.
type DispatcherConfig struct {
	Bus         domain.MessageBus
	Webhook     WebhookCaller
	Transcriber Transcriber
	Fetcher     Fetcher
	Logger      *slog.Logger

	// AllowFrom is an optional sender allow-list; empty means allow all.
	AllowFrom []string
	// CommandPrefix marks built-in commands (default "!").
	CommandPrefix string
	// MaxFileSize caps relayed attachments, checked before download.
	MaxFileSize int64
	// Concurrency is the max number of messages handled in parallel.
	Concurrency int
	Deliver     DeliverOptions
}

// Dispatcher routes each inbound message through the audio, file, or text
// path and is the top-level failure boundary for one message: nothing a
// path does propagates past it.
type Dispatcher struct {
	bus         domain.MessageBus
	webhook     WebhookCaller
	transcriber Transcriber
	fetcher     Fetcher
	logger      *slog.Logger

	allowFrom   map[string]bool
	prefix      string
	maxFileSize int64
	concurrency int
	deliver     DeliverOptions
}

// NewDispatcher creates a dispatcher with the given configuration.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.CommandPrefix == "" {
		cfg.CommandPrefix = "!"
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = defaultMaxFileSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	allow := make(map[string]bool, len(cfg.AllowFrom))
	for _, id := range cfg.AllowFrom {
		if id = strings.TrimSpace(id); id != "" {
			allow[id] = true
		}
	}
	return &Dispatcher{
		bus:         cfg.Bus,
		webhook:     cfg.Webhook,
		transcriber: cfg.Transcriber,
		fetcher:     cfg.Fetcher,
		logger:      cfg.Logger,
		allowFrom:   allow,
		prefix:      cfg.CommandPrefix,
		maxFileSize: cfg.MaxFileSize,
		concurrency: cfg.Concurrency,
		deliver:     cfg.Deliver,
	}
}

// Run consumes inbound messages and handles them with bounded concurrency.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started", "concurrency", d.concurrency)

	sem := make(chan struct{}, d.concurrency)
	inbound := d.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				d.logger.Info("inbound channel closed, dispatcher stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				d.Handle(ctx, m)
			}(msg)
		}
	}
}

// Handle runs one message through the state machine. Exported so channel
// tests can drive the dispatcher without a bus.
func (d *Dispatcher) Handle(ctx context.Context, msg domain.InboundMessage) {
	if msg.FromBot {
		d.logger.Debug("ignoring message from bot/self", "sender", msg.SenderName)
		return
	}

	d.logger.Info("received message", "channel", msg.Channel, "sender", msg.SenderName, "sender_id", msg.SenderID)
	metrics.MessagesTotal.Inc()

	if len(d.allowFrom) > 0 && !d.allowFrom[msg.SenderID] {
		d.logger.Warn("unauthorized sender", "sender", msg.SenderName, "sender_id", msg.SenderID)
		return
	}

	conv := msg.ReplyTo

	if len(msg.Attachments) == 0 && strings.HasPrefix(msg.Content, d.prefix) {
		if d.handleCommand(ctx, conv, strings.TrimPrefix(msg.Content, d.prefix)) {
			return
		}
	}

	if len(msg.Attachments) > 0 {
		// Sequential, with a per-attachment error boundary: one bad
		// attachment does not stop the next.
		for _, att := range msg.Attachments {
			if att.IsAudio() {
				d.runPath(ctx, conv, "Erreur lors du traitement de l'audio", func() error {
					return d.handleAudio(ctx, msg, att)
				})
			} else {
				d.runPath(ctx, conv, "Erreur lors du traitement du fichier", func() error {
					return d.handleFile(ctx, msg, att)
				})
			}
		}
		return
	}

	if msg.Content != "" {
		d.runPath(ctx, conv, "Erreur lors du traitement du message", func() error {
			return d.handleText(ctx, msg)
		})
		return
	}

	d.logger.Warn("message has no content and no attachments", "sender", msg.SenderName)
}

// runPath is the failure boundary for one path: an error is logged and
// reported to the user, never propagated.
func (d *Dispatcher) runPath(ctx context.Context, conv domain.Conversation, errContext string, fn func() error) {
	if err := fn(); err != nil {
		d.logger.Error("path failed", "context", errContext, "error", err)
		if sendErr := conv.SendText(ctx, fmt.Sprintf("❌ %s: %s", errContext, err)); sendErr != nil {
			d.logger.Error("failed to report error to user", "error", sendErr)
		}
	}
}

// handleCommand serves built-in commands without calling the webhook.
// Returns false for unknown commands, which then flow to the text path.
func (d *Dispatcher) handleCommand(ctx context.Context, conv domain.Conversation, cmd string) bool {
	cmd = strings.ToLower(strings.TrimSpace(strings.SplitN(cmd, " ", 2)[0]))
	switch cmd {
	case "ping":
		d.sendText(ctx, conv, "🏓 Pong !")
		return true
	case "help":
		d.sendText(ctx, conv, strings.Join([]string{
			"**Commandes disponibles:**",
			"`" + d.prefix + "ping` - Vérifie que le bot répond",
			"`" + d.prefix + "help` - Affiche cette aide",
			"",
			"Envoyez un message, un fichier ou un vocal pour interagir avec l'assistant.",
		}, "\n"))
		return true
	default:
		return false
	}
}

func (d *Dispatcher) handleAudio(ctx context.Context, msg domain.InboundMessage, att domain.Attachment) error {
	conv := msg.ReplyTo
	d.logger.Info("audio attachment detected", "filename", att.Filename, "url", att.URL)

	notice, err := conv.NotifyProgress(ctx, transcribingNotice)
	if err != nil {
		return fmt.Errorf("send progress notice: %w", err)
	}

	metrics.TranscriptionsTotal.Inc()

	data, err := d.fetcher.Fetch(ctx, att.URL)
	if err != nil {
		d.editNotice(ctx, notice, fmt.Sprintf("❌ Erreur: %s", err))
		return nil
	}

	transcript, err := d.transcriber.Transcribe(ctx, data, att.Filename)
	if err != nil {
		d.logger.Error("transcription failed", "filename", att.Filename, "error", err)
		d.editNotice(ctx, notice, fmt.Sprintf("❌ Erreur: %s", err))
		return nil
	}
	if transcript == "" {
		d.logger.Error("transcription returned empty text", "filename", att.Filename)
		d.editNotice(ctx, notice, transcriptionFailed)
		return nil
	}

	d.logger.Info("transcription completed", "filename", att.Filename, "chars", len(transcript))

	// The notice goes away before the webhook round trip starts.
	if err := notice.Delete(ctx); err != nil {
		d.logger.Warn("failed to delete progress notice", "error", err)
	}

	payload, failure := d.exchange(ctx, webhook.NewRequest(transcript, msg.SenderID, msg.SenderName, nil))
	if failure != "" {
		return conv.SendText(ctx, failure)
	}
	return d.deliverPayload(ctx, conv, payload)
}

func (d *Dispatcher) handleFile(ctx context.Context, msg domain.InboundMessage, att domain.Attachment) error {
	conv := msg.ReplyTo
	d.logger.Info("file attachment detected", "filename", att.Filename, "type", att.ContentType, "size", att.Size)

	if att.Size > d.maxFileSize {
		return conv.SendText(ctx, fmt.Sprintf("❌ Le fichier est trop volumineux (max %d MB)", d.maxFileSize/(1024*1024)))
	}

	notice, err := conv.NotifyProgress(ctx, processingFileNotice)
	if err != nil {
		return fmt.Errorf("send progress notice: %w", err)
	}

	data, err := d.fetcher.Fetch(ctx, att.URL)
	if err != nil {
		d.editNotice(ctx, notice, fmt.Sprintf("❌ Erreur: %s", err))
		return nil
	}

	norm := fileconv.Normalize(att.ContentType, att.Filename)
	if norm.Converted {
		d.logger.Info("attachment converted", "from", att.ContentType, "to", norm.MimeType)
	}

	file := &webhook.FilePayload{
		Filename: norm.Filename,
		MimeType: norm.MimeType,
		Size:     int64(len(data)),
		Data:     base64.StdEncoding.EncodeToString(data),
	}
	if norm.Converted {
		file.OriginalFilename = att.Filename
		file.OriginalMimeType = att.ContentType
		file.Converted = true
	}

	message := msg.Content
	if message == "" {
		message = "Fichier envoyé: " + att.Filename
	}

	metrics.FilesRelayed.Inc()
	payload, failure := d.exchange(ctx, webhook.NewRequest(message, msg.SenderID, msg.SenderName, file))

	if err := notice.Delete(ctx); err != nil {
		d.logger.Warn("failed to delete progress notice", "error", err)
	}

	if failure != "" {
		return conv.SendText(ctx, failure)
	}
	return d.deliverPayload(ctx, conv, payload)
}

func (d *Dispatcher) handleText(ctx context.Context, msg domain.InboundMessage) error {
	conv := msg.ReplyTo
	d.logger.Info("processing text message", "chars", len(msg.Content))

	payload, failure := d.exchange(ctx, webhook.NewRequest(msg.Content, msg.SenderID, msg.SenderName, nil))
	if failure != "" {
		return conv.SendText(ctx, failure)
	}
	return d.deliverPayload(ctx, conv, payload)
}

// exchange performs one webhook round trip. On failure it returns the
// user-facing error message instead of a payload; a transport failure has
// no status and reads "status: None".
func (d *Dispatcher) exchange(ctx context.Context, req webhook.Request) (domain.Payload, string) {
	metrics.WebhookRequests.Inc()
	start := time.Now()

	resp, err := d.webhook.Send(ctx, req)
	metrics.WebhookLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.WebhookErrors.Inc()
		d.logger.Error("webhook call failed", "error", err)
		return domain.Payload{}, "❌ Erreur lors de l'envoi au webhook (status: None)"
	}
	if resp.Status != 200 {
		metrics.WebhookErrors.Inc()
		d.logger.Error("webhook call failed", "status", resp.Status, "body", string(resp.Body))
		return domain.Payload{}, fmt.Sprintf("❌ Erreur lors de l'envoi au webhook (status: %d)", resp.Status)
	}

	d.logger.Info("webhook call successful", "status", resp.Status)
	return render.Render(resp.Body), ""
}

// deliverPayload sends the rendered reply: audio as a captioned file
// attachment, text through the long-response delivery policy.
func (d *Dispatcher) deliverPayload(ctx context.Context, conv domain.Conversation, payload domain.Payload) error {
	if payload.Kind == domain.PayloadAudio {
		return conv.SendFile(ctx, payload.Filename, payload.Audio, ttsCaption)
	}
	return Deliver(ctx, conv, payload.Text, d.deliver)
}

func (d *Dispatcher) sendText(ctx context.Context, conv domain.Conversation, text string) {
	if err := conv.SendText(ctx, text); err != nil {
		d.logger.Error("failed to send message", "error", err)
	}
}

func (d *Dispatcher) editNotice(ctx context.Context, notice domain.ProgressNotice, text string) {
	if err := notice.Edit(ctx, text); err != nil {
		d.logger.Warn("failed to edit progress notice", "error", err)
	}
}
