package relay

import (
	"context"
	"strings"

	"relaybot/internal/domain"
)

const (
	defaultMaxMessageLen = 2000
	defaultFileThreshold = 4000
	defaultResponseFile  = "response.txt"
	emptyResponseText    = "✅ Action effectuée avec succès"
	longResponseCaption  = "📄 La réponse est trop longue, voici le fichier:"
)

// DeliverOptions tunes the long-response delivery policy. Zero values fall
// back to the platform defaults (Discord's 2000-char message limit).
type DeliverOptions struct {
	MaxMessageLen int
	FileThreshold int
	Filename      string
}

// Deliver sends rendered text to a conversation, choosing between a single
// message, several newline-split messages, or a text-file attachment:
//
//   - empty text: the fixed success message
//   - length <= MaxMessageLen: one message
//   - length > FileThreshold: one file attachment with a caption
//   - otherwise: split on newline boundaries into several messages
func Deliver(ctx context.Context, conv domain.Conversation, text string, opts DeliverOptions) error {
	if opts.MaxMessageLen <= 0 {
		opts.MaxMessageLen = defaultMaxMessageLen
	}
	if opts.FileThreshold <= 0 {
		opts.FileThreshold = defaultFileThreshold
	}
	if opts.Filename == "" {
		opts.Filename = defaultResponseFile
	}

	if text == "" {
		return conv.SendText(ctx, emptyResponseText)
	}

	length := len([]rune(text))

	if length <= opts.MaxMessageLen {
		return conv.SendText(ctx, text)
	}

	if length > opts.FileThreshold {
		return conv.SendFile(ctx, opts.Filename, []byte(text), longResponseCaption)
	}

	for _, chunk := range splitOnLines(text, opts.MaxMessageLen) {
		if err := conv.SendText(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// splitOnLines greedily packs whole lines into chunks of at most maxLen
// characters. A single line longer than maxLen is never broken; it becomes
// its own oversized chunk.
func splitOnLines(text string, maxLen int) []string {
	var chunks []string
	current := ""

	for _, line := range strings.Split(text, "\n") {
		if len([]rune(current))+len([]rune(line))+1 > maxLen && current != "" {
			chunks = append(chunks, current)
			current = ""
		}
		if current == "" {
			current = line
		} else {
			current += "\n" + line
		}
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}
