package domain

import "time"

// InboundMessage is one user event delivered by a platform channel.
// It is immutable once published on the bus.
type InboundMessage struct {
	Channel     string
	ChatID      string
	SenderID    string
	SenderName  string
	FromBot     bool // sender is a bot (including ourselves)
	Content     string
	Attachments []Attachment
	ReplyTo     Conversation // where responses for this event go
	Timestamp   time.Time
}

// Attachment describes a file carried by an inbound message. The byte
// content is not downloaded here; the dispatcher fetches it lazily so
// oversized files can be rejected before any network I/O.
type Attachment struct {
	Filename    string
	ContentType string // declared MIME type, may be empty
	Size        int64  // declared size in bytes
	URL         string
}

// IsAudio reports whether the attachment declares an audio MIME type.
func (a Attachment) IsAudio() bool {
	return len(a.ContentType) >= 6 && a.ContentType[:6] == "audio/"
}
