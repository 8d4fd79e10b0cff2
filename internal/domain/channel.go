package domain

import "context"

// Channel is the interface for a platform adapter (Discord, Telegram).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}

// Conversation is the reply surface for one inbound message. Channels
// materialize one per event; the dispatcher and delivery policy only ever
// talk to this interface, which keeps them testable with a fake.
type Conversation interface {
	SendText(ctx context.Context, text string) error
	SendFile(ctx context.Context, filename string, data []byte, caption string) error
	// NotifyProgress posts a transient placeholder message ("working on
	// it...") and returns a handle to later edit or remove it.
	NotifyProgress(ctx context.Context, text string) (ProgressNotice, error)
}

// ProgressNotice is a placeholder message that resolves in one of two ways:
// edited into final content, or deleted once the real response is ready.
type ProgressNotice interface {
	Edit(ctx context.Context, text string) error
	Delete(ctx context.Context) error
}
